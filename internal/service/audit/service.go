// audit содержит журнал действий пользователей.
//
// Record вызывается из транспорта и других сервисов по принципу
// fire-and-forget: отказ журнала не должен ломать бизнес-операцию,
// ошибка только логируется.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// Service описывает журнал аудита.
type Service struct {
	storage storage.Storage
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage) *Service {
	return &Service{storage: st}
}

// Event — параметры записываемого события.
type Event struct {
	ActorID    uuid.UUID
	ActorEmail string
	Action     string
	Entity     string
	EntityID   string
	Detail     string
}

// Record записывает событие аудита. Ошибка глотается после логирования.
func (s *Service) Record(ctx context.Context, e Event) {
	const op = "service.audit.Record"

	event := &models.AuditEvent{
		ID:         uuid.New(),
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Action:     e.Action,
		Entity:     e.Entity,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.storage.SaveEvent(ctx, event); err != nil {
		log.From(ctx).Error("audit_record_failed",
			"op", op,
			"action", e.Action,
			"err", err.Error(),
		)
	}
}

// List возвращает события журнала по фильтру (новые сверху).
func (s *Service) List(ctx context.Context, filter storage.AuditFilter) ([]models.AuditEvent, error) {
	const op = "service.audit.List"

	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	events, err := s.storage.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}
