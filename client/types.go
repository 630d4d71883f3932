package client

import (
	"errors"
	"fmt"
	"time"
)

// Wire-типы публичного API. JSON-ключи фиксированы контрактом сервера.

// User — профиль пользователя.
type User struct {
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

// TokenPair — пара токенов из ответа сервера.
type TokenPair struct {
	AccessToken     string    `json:"accessToken"`
	RefreshToken    string    `json:"refreshToken"`
	AccessExpiresAt time.Time `json:"accesoExpiraEn"`
}

type authResponse struct {
	User   User      `json:"usuario"`
	Tokens TokenPair `json:"tokens"`
}

// Appointment — запись на приём.
type Appointment struct {
	ID        string `json:"id"`
	PatientID string `json:"pacienteId"`
	DoctorID  string `json:"medicoId"`
	StartsAt  string `json:"inicio"`
	Type      string `json:"tipo"`
	Reason    string `json:"motivo,omitempty"`
	Status    string `json:"estado"`
	CreatedAt string `json:"creadoEn"`
}

// Review — отзыв о враче.
type Review struct {
	ID            string `json:"id"`
	DoctorID      string `json:"medicoId"`
	PatientID     string `json:"pacienteId"`
	AppointmentID string `json:"citaId"`
	PatientName   string `json:"nombrePaciente,omitempty"`
	Rating        int32  `json:"calificacion"`
	Comment       string `json:"comentario,omitempty"`
	CreatedAt     string `json:"creadoEn"`
}

// ReviewPage — страница отзывов со сводкой рейтинга врача.
type ReviewPage struct {
	Items         []Review `json:"resenas"`
	NextPageToken string   `json:"nextPageToken"`
	Rating        float64  `json:"calificacion"`
	Total         int64    `json:"total"`
}

// Notification — уведомление из ленты.
type Notification struct {
	ID        string `json:"id"`
	Kind      string `json:"tipo"`
	Title     string `json:"titulo"`
	Body      string `json:"cuerpo"`
	Read      bool   `json:"leida"`
	CreatedAt string `json:"creadoEn"`
}

// AuditEvent — запись журнала аудита (админ).
type AuditEvent struct {
	ID         string `json:"id"`
	ActorID    string `json:"actorId,omitempty"`
	ActorEmail string `json:"actorCorreo,omitempty"`
	Action     string `json:"accion"`
	Entity     string `json:"entidad,omitempty"`
	EntityID   string `json:"entidadId,omitempty"`
	Detail     string `json:"detalle,omitempty"`
	CreatedAt  string `json:"creadoEn"`
}

// Стабильные коды ошибок сервера, на которые ветвится клиент.
const (
	CodeUnauthenticated  = "unauthenticated"
	CodeAppointmentLimit = "limite_citas"
	CodeSlotTaken        = "horario_ocupado"
)

// APIError — доменная ошибка сервера с HTTP-статусом и стабильным кодом.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// IsAppointmentLimit — пациент упёрся в лимит активных записей;
// фронт открывает на этом сценарий расширенного тарифа.
func IsAppointmentLimit(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Code == CodeAppointmentLimit
}

// AsAPIError достаёт *APIError из цепочки ошибок.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
