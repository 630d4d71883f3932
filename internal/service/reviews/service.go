// reviews содержит бизнес-логику отзывов о врачах.
//
// Отзыв привязан к завершённому приёму: оставить его может только
// пациент этого приёма и только один раз (уникальный индекс по
// appointment_id в MongoDB).
package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

var (
	// ErrInvalidRating — оценка вне диапазона 1..5. Транспорт: HTTP 400.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrAppointmentNotFound — приём не найден. Транспорт: HTTP 404.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAppointmentNotCompleted — отзыв возможен только после
	// завершённого приёма. Транспорт: HTTP 409.
	ErrAppointmentNotCompleted = errors.New("appointment is not completed")

	// ErrNotYourAppointment — приём принадлежит другому пациенту.
	// Транспорт: HTTP 403.
	ErrNotYourAppointment = errors.New("appointment belongs to another patient")

	// ErrDuplicateReview — по этому приёму отзыв уже оставлен.
	// Транспорт: HTTP 409.
	ErrDuplicateReview = errors.New("review already exists for this appointment")

	// ErrInvalidPageToken — битый page_token. Транспорт: HTTP 400.
	ErrInvalidPageToken = errors.New("invalid page token")
)

// Service описывает бизнес-логику отзывов.
type Service struct {
	reviews storage.ReviewStorage
	users   storage.Storage
	cfg     config.ReviewsConfig
}

// New создаёт новый экземпляр Service.
func New(reviews storage.ReviewStorage, users storage.Storage, cfg config.ReviewsConfig) *Service {
	return &Service{
		reviews: reviews,
		users:   users,
		cfg:     cfg,
	}
}

// CreateParams — данные нового отзыва.
type CreateParams struct {
	PatientID     uuid.UUID
	AppointmentID uuid.UUID
	Rating        int32
	Comment       string
}

// Create создаёт отзыв по завершённому приёму.
func (s *Service) Create(ctx context.Context, p CreateParams) (*models.Review, error) {
	const op = "service.reviews.Create"

	if p.Rating < 1 || p.Rating > 5 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRating)
	}

	appointment, err := s.users.AppointmentByID(ctx, p.AppointmentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if appointment.PatientID != p.PatientID {
		return nil, fmt.Errorf("%s: %w", op, ErrNotYourAppointment)
	}

	if appointment.Status != models.AppointmentCompleted {
		return nil, fmt.Errorf("%s: %w", op, ErrAppointmentNotCompleted)
	}

	patientName := ""
	if patient, err := s.users.UserByID(ctx, p.PatientID); err == nil {
		patientName = strings.TrimSpace(patient.FirstName + " " + patient.LastName)
	}

	review, err := s.reviews.CreateReview(ctx, models.Review{
		DoctorID:      appointment.DoctorID,
		PatientID:     p.PatientID,
		AppointmentID: p.AppointmentID,
		PatientName:   patientName,
		Rating:        p.Rating,
		Comment:       strings.TrimSpace(p.Comment),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateReview)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return review, nil
}

// ListByDoctor возвращает страницу отзывов врача (новые сверху).
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, params models.ListParams) (*models.ReviewPage, error) {
	const op = "service.reviews.ListByDoctor"

	if params.PageSize <= 0 {
		params.PageSize = s.cfg.PageSizeDefault
	}
	if params.PageSize > s.cfg.PageSizeMax {
		params.PageSize = s.cfg.PageSizeMax
	}

	page, err := s.reviews.ListByDoctor(ctx, doctorID, params)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidCursor) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidPageToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

// RatingSummary возвращает среднюю оценку и число отзывов врача.
func (s *Service) RatingSummary(ctx context.Context, doctorID uuid.UUID) (float64, int64, error) {
	const op = "service.reviews.RatingSummary"

	avg, count, err := s.reviews.RatingSummary(ctx, doctorID)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}

	return avg, count, nil
}
