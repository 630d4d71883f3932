// apierrors стандартизирует ответы об ошибках HTTP-слоя.
// На вход — доменная ошибка сервисного слоя, на выход:
//   - корректный HTTP-статус;
//   - короткий стабильный код для машиночитаемой обработки на фронте;
//   - безопасное message без утечки деталей.
//
// Коды стабильны — фронт ветвится на них (например, limite_citas
// запускает сценарий предложения расширенного тарифа), поэтому
// сопоставление идёт по типизированным ошибкам, а не по подстрокам.
package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-telemed/internal/service/admin"
	"github.com/pribylovaa/go-telemed/internal/service/appointments"
	"github.com/pribylovaa/go-telemed/internal/service/auth"
	"github.com/pribylovaa/go-telemed/internal/service/notifications"
	"github.com/pribylovaa/go-telemed/internal/service/reviews"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// StatusClientClosedRequest — нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат ошибки для фронта.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ErrBadRequest — локальная ошибка парсинга запроса в хендлере.
var ErrBadRequest = errors.New("bad request")

// mapping — таблица доменная ошибка -> (HTTP, код, сообщение).
// Порядок важен: первое совпадение по errors.Is выигрывает.
var mapping = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument", "invalid argument"},

	// auth
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "unauthenticated", "invalid credentials"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "unauthenticated", "invalid token"},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "unauthenticated", "token expired"},
	{auth.ErrTokenRevoked, http.StatusUnauthorized, "unauthenticated", "token revoked"},
	{auth.ErrEmailTaken, http.StatusConflict, "already_exists", "email already taken"},
	{auth.ErrInvalidEmail, http.StatusBadRequest, "invalid_argument", "invalid email"},
	{auth.ErrWeakPassword, http.StatusBadRequest, "contrasena_debil", "password is too weak"},
	{auth.ErrEmptyPassword, http.StatusBadRequest, "invalid_argument", "password is empty"},
	{auth.ErrInvalidRole, http.StatusBadRequest, "invalid_argument", "invalid role"},
	{auth.ErrSpecialtyRequired, http.StatusBadRequest, "invalid_argument", "specialty required"},
	{auth.ErrUserInactive, http.StatusForbidden, "cuenta_desactivada", "account is deactivated"},
	{auth.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{auth.ErrAvatarsUnavailable, http.StatusServiceUnavailable, "unavailable", "avatar storage unavailable"},

	// appointments
	{appointments.ErrDoctorNotFound, http.StatusNotFound, "not_found", "doctor not found"},
	{appointments.ErrAppointmentNotFound, http.StatusNotFound, "not_found", "appointment not found"},
	{appointments.ErrPastDate, http.StatusBadRequest, "invalid_argument", "date is in the past"},
	{appointments.ErrOffSchedule, http.StatusBadRequest, "fuera_de_horario", "time is off schedule"},
	{appointments.ErrInvalidConsultType, http.StatusBadRequest, "invalid_argument", "invalid consult type"},
	{appointments.ErrSlotTaken, http.StatusConflict, "horario_ocupado", "slot already taken"},
	{appointments.ErrAppointmentLimit, http.StatusUnprocessableEntity, "limite_citas", "active appointment limit reached"},
	{appointments.ErrPermissionDenied, http.StatusForbidden, "permission_denied", "permission denied"},
	{appointments.ErrNotCancellable, http.StatusConflict, "estado_invalido", "appointment is not cancellable"},

	// reviews
	{reviews.ErrInvalidRating, http.StatusBadRequest, "invalid_argument", "rating must be between 1 and 5"},
	{reviews.ErrAppointmentNotFound, http.StatusNotFound, "not_found", "appointment not found"},
	{reviews.ErrAppointmentNotCompleted, http.StatusConflict, "estado_invalido", "appointment is not completed"},
	{reviews.ErrNotYourAppointment, http.StatusForbidden, "permission_denied", "appointment belongs to another patient"},
	{reviews.ErrDuplicateReview, http.StatusConflict, "already_exists", "review already exists"},
	{reviews.ErrInvalidPageToken, http.StatusBadRequest, "invalid_argument", "invalid page token"},

	// notifications
	{notifications.ErrNotificationNotFound, http.StatusNotFound, "not_found", "notification not found"},

	// admin
	{admin.ErrUserNotFound, http.StatusNotFound, "not_found", "user not found"},
	{admin.ErrInvalidRole, http.StatusBadRequest, "invalid_argument", "invalid role"},
	{admin.ErrSelfChange, http.StatusConflict, "estado_invalido", "cannot change own account"},

	// storage-уровень (если просочился без сервисного маппинга)
	{storage.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{storage.ErrAlreadyExists, http.StatusConflict, "already_exists", "already exists"},
	{storage.ErrInvalidCursor, http.StatusBadRequest, "invalid_argument", "invalid page token"},
	{storage.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument", "invalid argument"},

	// контекст
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и тело ответа.
// nil и неизвестные ошибки дают 500/internal: лучше честная пятисотка,
// чем "200 OK" с телом ошибки.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range mapping {
			if errors.Is(err, m.target) {
				return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.message}}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{Code: "internal", Message: "internal error"},
	}
}

// WriteError — хелпер для HTTP-хендлеров: пишет статус/тело и
// добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
