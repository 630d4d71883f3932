// handlers — HTTP-хендлеры публичного API.
//
// Хендлеры тонкие: распарсить запрос, вызвать сервис, сконвертировать
// результат в wire-DTO. Вся бизнес-логика живёт в сервисном слое,
// маппинг ошибок — в apierrors.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-telemed/internal/service/admin"
	"github.com/pribylovaa/go-telemed/internal/service/appointments"
	"github.com/pribylovaa/go-telemed/internal/service/audit"
	"github.com/pribylovaa/go-telemed/internal/service/auth"
	"github.com/pribylovaa/go-telemed/internal/service/notifications"
	"github.com/pribylovaa/go-telemed/internal/service/reviews"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
	"github.com/pribylovaa/go-telemed/internal/transport/http/middleware"
)

// Handlers агрегирует сервисы-зависимости.
type Handlers struct {
	Auth          *auth.Service
	Appointments  *appointments.Service
	Reviews       *reviews.Service
	Notifications *notifications.Service
	Admin         *admin.Service
	Audit         *audit.Service
}

func New(a *auth.Service, ap *appointments.Service, rv *reviews.Service, nt *notifications.Service, ad *admin.Service, au *audit.Service) *Handlers {
	return &Handlers{
		Auth:          a,
		Appointments:  ap,
		Reviews:       rv,
		Notifications: nt,
		Admin:         ad,
		Audit:         au,
	}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// badRequest — локальная ошибка парсинга -> 400/invalid_argument.
func badRequest(reason string) error {
	return fmt.Errorf("%w: %s", apierrors.ErrBadRequest, reason)
}

// callerID достаёт личность вызывающего, положенную Authn-мидлварём.
func callerID(r *http.Request) (middleware.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return middleware.Identity{}, auth.ErrInvalidToken
	}
	return id, nil
}

// pathUUID парсит uuid из сегмента пути chi.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}

// parseUUID парсит uuid из тела запроса.
func parseUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}

func parseInt32(raw string) (int32, error) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
