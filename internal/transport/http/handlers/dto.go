package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// Wire-DTO публичного API. Имена полей фиксированы контрактом с фронтом
// (испанские ключи), менять без миграции фронта нельзя.

type userDTO struct {
	ID            string `json:"id"`
	Email         string `json:"correo"`
	FirstName     string `json:"nombre"`
	LastName      string `json:"apellido"`
	Phone         string `json:"telefono,omitempty"`
	Role          string `json:"rol"`
	Specialty     string `json:"especialidad,omitempty"`
	Active        bool   `json:"activo"`
	EmailVerified bool   `json:"correoVerificado"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	CreatedAt     string `json:"creadoEn"`
}

func toUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:            u.ID.String(),
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		Role:          string(u.Role),
		Specialty:     u.Specialty,
		Active:        u.Active,
		EmailVerified: u.EmailVerified,
		AvatarURL:     u.AvatarURL,
		CreatedAt:     u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type tokensDTO struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	AccessExpiresAt string `json:"accesoExpiraEn"`
}

func toTokensDTO(t *models.TokenPair) tokensDTO {
	return tokensDTO{
		AccessToken:     t.AccessToken,
		RefreshToken:    t.RefreshToken,
		AccessExpiresAt: t.AccessExpiresAt.UTC().Format(time.RFC3339),
	}
}

// authResponse — ответ register/login/refresh: профиль плюс токены.
type authResponse struct {
	User   userDTO   `json:"usuario"`
	Tokens tokensDTO `json:"tokens"`
}

type appointmentDTO struct {
	ID        string `json:"id"`
	PatientID string `json:"pacienteId"`
	DoctorID  string `json:"medicoId"`
	StartsAt  string `json:"inicio"`
	Type      string `json:"tipo"`
	Reason    string `json:"motivo,omitempty"`
	Status    string `json:"estado"`
	CreatedAt string `json:"creadoEn"`
}

func toAppointmentDTO(a *models.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:        a.ID.String(),
		PatientID: a.PatientID.String(),
		DoctorID:  a.DoctorID.String(),
		StartsAt:  a.StartsAt.UTC().Format(time.RFC3339),
		Type:      string(a.Type),
		Reason:    a.Reason,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toAppointmentDTOs(items []models.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(items))
	for i := range items {
		out = append(out, toAppointmentDTO(&items[i]))
	}
	return out
}

type reviewDTO struct {
	ID            string `json:"id"`
	DoctorID      string `json:"medicoId"`
	PatientID     string `json:"pacienteId"`
	AppointmentID string `json:"citaId"`
	PatientName   string `json:"nombrePaciente,omitempty"`
	Rating        int32  `json:"calificacion"`
	Comment       string `json:"comentario,omitempty"`
	CreatedAt     string `json:"creadoEn"`
}

func toReviewDTO(rv *models.Review) reviewDTO {
	return reviewDTO{
		ID:            rv.ID,
		DoctorID:      rv.DoctorID.String(),
		PatientID:     rv.PatientID.String(),
		AppointmentID: rv.AppointmentID.String(),
		PatientName:   rv.PatientName,
		Rating:        rv.Rating,
		Comment:       rv.Comment,
		CreatedAt:     rv.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type notificationDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"tipo"`
	Title     string `json:"titulo"`
	Body      string `json:"cuerpo"`
	Read      bool   `json:"leida"`
	CreatedAt string `json:"creadoEn"`
}

func toNotificationDTO(n *models.Notification) notificationDTO {
	return notificationDTO{
		ID:        n.ID.String(),
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type auditEventDTO struct {
	ID         string `json:"id"`
	ActorID    string `json:"actorId,omitempty"`
	ActorEmail string `json:"actorCorreo,omitempty"`
	Action     string `json:"accion"`
	Entity     string `json:"entidad,omitempty"`
	EntityID   string `json:"entidadId,omitempty"`
	Detail     string `json:"detalle,omitempty"`
	CreatedAt  string `json:"creadoEn"`
}

func toAuditEventDTO(e *models.AuditEvent) auditEventDTO {
	dto := auditEventDTO{
		ActorEmail: e.ActorEmail,
		Action:     e.Action,
		Entity:     e.Entity,
		EntityID:   e.EntityID,
		Detail:     e.Detail,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
	}
	dto.ID = e.ID.String()
	if e.ActorID != uuid.Nil {
		dto.ActorID = e.ActorID.String()
	}
	return dto
}

type uploadInfoDTO struct {
	UploadURL      string            `json:"urlSubida"`
	AvatarKey      string            `json:"claveAvatar"`
	ExpiresSeconds int64             `json:"expiraEnSegundos"`
	Headers        map[string]string `json:"cabeceras,omitempty"`
}

func toUploadInfoDTO(u *storage.UploadInfo) uploadInfoDTO {
	return uploadInfoDTO{
		UploadURL:      u.UploadURL,
		AvatarKey:      u.AvatarKey,
		ExpiresSeconds: int64(u.Expires.Seconds()),
		Headers:        u.RequiredHeader,
	}
}
