// notifications содержит ленту уведомлений пользователя и их
// outbox-доставку на внешний webhook.
//
// Создание уведомления — это вставка строки в Postgres; доставка
// выполняется отдельным периодическим диспетчером (StartDispatcher),
// так что падение webhook не влияет на бизнес-операции.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// ErrNotificationNotFound — уведомление не найдено или принадлежит
// другому пользователю. Транспорт: HTTP 404.
var ErrNotificationNotFound = errors.New("notification not found")

// Service описывает ленту уведомлений и их доставку.
type Service struct {
	storage storage.Storage
	cfg     config.NotifyConfig
	client  *http.Client
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, cfg config.NotifyConfig) *Service {
	return &Service{
		storage: st,
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// enqueue кладёт уведомление в ленту (и в outbox).
// Ошибка логируется и глотается: уведомление вторично к операции.
func (s *Service) enqueue(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, title, body string) {
	const op = "service.notifications.enqueue"

	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.storage.SaveNotification(ctx, n); err != nil {
		log.From(ctx).Error("notification_enqueue_failed",
			"op", op,
			"kind", string(kind),
			"err", err.Error(),
		)
	}
}

// AppointmentCreated — уведомление пациенту о созданной записи.
func (s *Service) AppointmentCreated(ctx context.Context, a *models.Appointment) {
	s.enqueue(ctx, a.PatientID, models.NotifyAppointmentCreated,
		"Cita programada",
		fmt.Sprintf("Su cita del %s ha sido programada.", a.StartsAt.Format("02.01.2006 15:04")),
	)
}

// AppointmentCancelled — уведомление пациенту об отменённой записи.
func (s *Service) AppointmentCancelled(ctx context.Context, a *models.Appointment) {
	s.enqueue(ctx, a.PatientID, models.NotifyAppointmentCancelled,
		"Cita cancelada",
		fmt.Sprintf("Su cita del %s ha sido cancelada.", a.StartsAt.Format("02.01.2006 15:04")),
	)
}

// SecurityEvent — уведомление о событии безопасности (смена пароля и т.п.).
func (s *Service) SecurityEvent(ctx context.Context, userID uuid.UUID, body string) {
	s.enqueue(ctx, userID, models.NotifySecurity, "Aviso de seguridad", body)
}

// ListByUser возвращает последние уведомления пользователя.
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]models.Notification, error) {
	const op = "service.notifications.ListByUser"

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items, err := s.storage.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// MarkRead помечает уведомление прочитанным.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	const op = "service.notifications.MarkRead"

	if err := s.storage.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotificationNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
