package mongodb

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// reviewDoc — представление отзыва в коллекции.
type reviewDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	DoctorID      string             `bson:"doctor_id"`
	PatientID     string             `bson:"patient_id"`
	AppointmentID string             `bson:"appointment_id"`
	PatientName   string             `bson:"patient_name"`
	Rating        int32              `bson:"rating"`
	Comment       string             `bson:"comment"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

func (d reviewDoc) toModel() (models.Review, error) {
	doctorID, err := uuid.Parse(d.DoctorID)
	if err != nil {
		return models.Review{}, err
	}

	patientID, err := uuid.Parse(d.PatientID)
	if err != nil {
		return models.Review{}, err
	}

	apptID, err := uuid.Parse(d.AppointmentID)
	if err != nil {
		return models.Review{}, err
	}

	return models.Review{
		ID:            d.ID.Hex(),
		DoctorID:      doctorID,
		PatientID:     patientID,
		AppointmentID: apptID,
		PatientName:   d.PatientName,
		Rating:        d.Rating,
		Comment:       d.Comment,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

// encodeCursor кодирует пару (created_at, _id) в непрозрачный токен.
func encodeCursor(t time.Time, id primitive.ObjectID) string {
	raw := fmt.Sprintf("%d|%s", t.UTC().UnixNano(), id.Hex())

	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor декодирует токен обратно в пару ключей.
func decodeCursor(token string) (time.Time, primitive.ObjectID, error) {
	res, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	parts := strings.SplitN(string(res), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, primitive.NilObjectID, fmt.Errorf("bad parts")
	}

	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	oid, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return time.Time{}, primitive.NilObjectID, err
	}

	return time.Unix(0, nanos).UTC(), oid, nil
}

// limitOrDefault приводит запрошенный размер страницы к [Default, Max].
func (m *Mongo) limitOrDefault(pageSize int32) int64 {
	lim := pageSize
	if lim <= 0 {
		lim = m.cfg.Reviews.PageSizeDefault
	}

	if lim > m.cfg.Reviews.PageSizeMax {
		lim = m.cfg.Reviews.PageSizeMax
	}

	return int64(lim)
}

// CreateReview создаёт отзыв. Повторный отзыв по тому же приёму — ErrAlreadyExists.
func (m *Mongo) CreateReview(ctx context.Context, review models.Review) (*models.Review, error) {
	const op = "storage/mongodb/CreateReview"

	// MongoDB DateTime хранит миллисекунды.
	now := time.Now().UTC().Truncate(time.Millisecond)

	doc := reviewDoc{
		DoctorID:      review.DoctorID.String(),
		PatientID:     review.PatientID.String(),
		AppointmentID: review.AppointmentID.String(),
		PatientName:   review.PatientName,
		Rating:        review.Rating,
		Comment:       review.Comment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	res, err := m.reviews.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type", op)
	}

	doc.ID = oid
	out, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ReviewByID возвращает отзыв по строковому идентификатору.
func (m *Mongo) ReviewByID(ctx context.Context, id string) (*models.Review, error) {
	const op = "storage/mongodb/ReviewByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc reviewDoc
	if err := m.reviews.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// ListByDoctor возвращает страницу отзывов врача (created_at DESC, затем _id DESC).
func (m *Mongo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, p models.ListParams) (*models.ReviewPage, error) {
	const op = "storage/mongodb/ListByDoctor"

	limit := m.limitOrDefault(p.PageSize)

	filter := bson.D{{Key: "doctor_id", Value: doctorID.String()}}

	if p.PageToken != "" {
		ts, oid, err := decodeCursor(p.PageToken)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrInvalidCursor)
		}

		// Строго "дальше" курсора при сортировке DESC.
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: ts}}}},
			bson.D{
				{Key: "created_at", Value: ts},
				{Key: "_id", Value: bson.D{{Key: "$lt", Value: oid}}},
			},
		}})
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit + 1) // +1, чтобы понять, есть ли следующая страница

	cur, err := m.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []reviewDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page := &models.ReviewPage{}

	hasMore := int64(len(docs)) > limit
	if hasMore {
		docs = docs[:limit]
	}

	for _, d := range docs {
		r, err := d.toModel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		page.Items = append(page.Items, r)
	}

	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		page.NextPageToken = encodeCursor(last.CreatedAt, last.ID)
	}

	return page, nil
}

// RatingSummary возвращает среднюю оценку и число отзывов врача.
func (m *Mongo) RatingSummary(ctx context.Context, doctorID uuid.UUID) (float64, int64, error) {
	const op = "storage/mongodb/RatingSummary"

	pipeline := mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "doctor_id", Value: doctorID.String()}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := m.reviews.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var res []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &res); err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	if len(res) == 0 {
		return 0, 0, nil
	}

	return res[0].Avg, res[0].Count, nil
}

// Проверка на соответствие интерфейсу ReviewStorage.
var _ storage.ReviewStorage = (*Mongo)(nil)
