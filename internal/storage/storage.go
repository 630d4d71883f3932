// storage содержит контракты слоя хранилищ платформы.
//
// Postgres — пользователи, refresh-токены, записи на приём, уведомления
// и журнал аудита; MongoDB — отзывы о врачах; MinIO/S3 — аватары.
// Сервисный слой зависит только от интерфейсов этого пакета.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/refresh-token/слот/отзыв).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCursor — битый/чужой page_token.
	ErrInvalidCursor = errors.New("invalid cursor")
	// ErrInvalidArgument — аргумент не проходит ограничения хранилища.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ProfileUpdate — частичный апдейт профиля.
// Обновляются только поля с непустыми указателями.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Specialty *string
}

// UserFilter — фильтр списка пользователей для админки.
type UserFilter struct {
	Role   *models.Role
	Active *bool
	Limit  int32
	Offset int32
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateProfile выполняет частичное обновление профиля и обновляет updated_at.
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error)
	// UpdatePassword заменяет bcrypt-хэш пароля.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// ListUsers возвращает страницу пользователей по фильтру (для админки).
	ListUsers(ctx context.Context, filter UserFilter) ([]models.User, error)
	// ListDoctors возвращает активных пользователей с ролью MEDICO.
	ListDoctors(ctx context.Context) ([]models.User, error)
	// SetActive включает/выключает учётную запись.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	// SetRole меняет роль пользователя.
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
	// ConfirmAvatarUpload фиксирует avatar_key/avatar_url после загрузки в S3.
	ConfirmAvatarUpload(ctx context.Context, id uuid.UUID, key, publicURL string) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshTokenByHash находит refresh-токен по его хэшу.
	RefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	// RevokeRefreshToken пытается отозвать refresh-токен:
	//   (true, nil)  — был активен и отозван сейчас;
	//   (false, nil) — существует, но уже был отозван;
	//   (false, ErrNotFound) — не найден.
	RevokeRefreshToken(ctx context.Context, hash string) (bool, error)
	// DeleteExpiredTokens удаляет все просроченные токены.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// AppointmentStorage выполняет операции над записями на приём.
type AppointmentStorage interface {
	// SaveAppointment создаёт запись; занятый слот (doctor_id, starts_at)
	// среди неотменённых — ErrAlreadyExists.
	SaveAppointment(ctx context.Context, a *models.Appointment) error
	// AppointmentByID возвращает запись по ID.
	AppointmentByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	// UpdateAppointmentStatus меняет статус и обновляет updated_at.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) (*models.Appointment, error)
	// ListByPatient возвращает записи пациента (starts_at DESC).
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error)
	// ListByDoctorDay возвращает записи врача за сутки day (UTC, starts_at ASC).
	ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]models.Appointment, error)
	// TakenSlots возвращает занятые starts_at врача за сутки day (неотменённые).
	TakenSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]time.Time, error)
	// CountActiveByPatient считает записи пациента в статусе PROGRAMADA.
	CountActiveByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}

// NotificationStorage — уведомления и их outbox-доставка.
type NotificationStorage interface {
	// SaveNotification кладёт уведомление в ленту (и в outbox).
	SaveNotification(ctx context.Context, n *models.Notification) error
	// ListByUser возвращает последние уведомления пользователя (created_at DESC).
	ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]models.Notification, error)
	// MarkRead помечает уведомление прочитанным; чужое/отсутствующее — ErrNotFound.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	// PendingNotifications возвращает недоставленные уведомления (created_at ASC).
	PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	// MarkDelivered помечает уведомления доставленными.
	MarkDelivered(ctx context.Context, ids []uuid.UUID, at time.Time) error
	// DeleteDeliveredBefore удаляет доставленные уведомления старше cutoff.
	DeleteDeliveredBefore(ctx context.Context, cutoff time.Time) error
}

// AuditFilter — фильтр журнала аудита.
type AuditFilter struct {
	ActorID *uuid.UUID
	Action  string
	From    time.Time
	To      time.Time
	Limit   int32
	Offset  int32
}

// AuditStorage — журнал аудита.
type AuditStorage interface {
	// SaveEvent записывает событие аудита.
	SaveEvent(ctx context.Context, e *models.AuditEvent) error
	// ListEvents возвращает события по фильтру (created_at DESC).
	ListEvents(ctx context.Context, filter AuditFilter) ([]models.AuditEvent, error)
}

// Storage задаёт контракт работы с Postgres.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	AppointmentStorage
	NotificationStorage
	AuditStorage
	Close()
}

// ReviewStorage — отзывы о врачах (MongoDB).
type ReviewStorage interface {
	// CreateReview создаёт отзыв; повторный отзыв по тому же приёму — ErrAlreadyExists.
	CreateReview(ctx context.Context, review models.Review) (*models.Review, error)
	// ReviewByID возвращает отзыв по строковому идентификатору.
	ReviewByID(ctx context.Context, id string) (*models.Review, error)
	// ListByDoctor возвращает страницу отзывов врача (created_at DESC).
	// При некорректном page_token — ErrInvalidCursor.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, p models.ListParams) (*models.ReviewPage, error)
	// RatingSummary возвращает среднюю оценку и число отзывов врача.
	RatingSummary(ctx context.Context, doctorID uuid.UUID) (avg float64, count int64, err error)
	// Close закрывает соединение с MongoDB.
	Close(ctx context.Context) error
}

// UploadInfo — параметры presigned-загрузки аватара.
type UploadInfo struct {
	UploadURL      string
	AvatarKey      string
	Expires        time.Duration
	RequiredHeader map[string]string
}

// AvatarStorage — presigned-загрузка аватаров в S3/MinIO.
type AvatarStorage interface {
	// AvatarUploadURL генерирует presigned PUT URL для загрузки.
	AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, contentLength int64) (*UploadInfo, error)
	// CheckAvatarUpload подтверждает факт загрузки и возвращает публичный URL.
	CheckAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (string, error)
}
