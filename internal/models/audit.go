package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent — запись журнала аудита.
//
// ActorID может быть uuid.Nil для анонимных событий (неудачный логин).
// Action — стабильный машинный код ("auth.login", "admin.user.deactivate", ...).
type AuditEvent struct {
	ID         uuid.UUID
	ActorID    uuid.UUID
	ActorEmail string
	Action     string
	Entity     string
	EntityID   string
	Detail     string
	CreatedAt  time.Time
}
