package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind — тип уведомления.
type NotificationKind string

const (
	NotifyAppointmentCreated   NotificationKind = "CITA_CREADA"
	NotifyAppointmentCancelled NotificationKind = "CITA_CANCELADA"
	NotifySecurity             NotificationKind = "SEGURIDAD"
)

// Notification — уведомление пользователя.
//
// Строка играет роль outbox-записи: диспетчер периодически забирает
// недоставленные (delivered=false) и отправляет их на внешний webhook,
// после чего помечает delivered=true. Read — признак «прочитано в приложении».
type Notification struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Kind        NotificationKind
	Title       string
	Body        string
	Read        bool
	Delivered   bool
	DeliveredAt time.Time
	CreatedAt   time.Time
}
