// Package models содержит доменные сущности платформы телемедицины.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role — роль пользователя в системе.
// На проводе сериализуется строкой ("PACIENTE"/"MEDICO"/"ADMIN") —
// это контракт фронтенда, менять значения нельзя.
type Role string

const (
	RolePatient Role = "PACIENTE"
	RoleDoctor  Role = "MEDICO"
	RoleAdmin   Role = "ADMIN"
)

// Valid сообщает, допустимо ли значение роли.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}

	return false
}

// User — модель пользователя.
//
// Email уникален и нормализован (нижний регистр, без внешних пробелов).
// PasswordHash — bcrypt; наружу никогда не отдаётся.
// Specialty заполняется только для роли MEDICO.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Phone         string
	Role          Role
	Specialty     string
	Active        bool
	EmailVerified bool
	AvatarKey     string
	AvatarURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
