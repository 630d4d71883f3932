package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsultType — формат приёма. Значения — контракт фронтенда.
type ConsultType string

const (
	ConsultVideo    ConsultType = "VIDEOCONSULTA"
	ConsultInPerson ConsultType = "PRESENCIAL"
)

// Valid сообщает, допустим ли формат приёма.
func (c ConsultType) Valid() bool {
	return c == ConsultVideo || c == ConsultInPerson
}

// AppointmentStatus — статус записи на приём.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "PROGRAMADA"
	AppointmentCancelled AppointmentStatus = "CANCELADA"
	AppointmentCompleted AppointmentStatus = "COMPLETADA"
)

// Appointment — запись на приём.
//
// StartsAt — начало слота (UTC); пара (DoctorID, StartsAt) уникальна
// среди неотменённых записей. Длительность слота фиксирована конфигом.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time
	Type      ConsultType
	Reason    string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
