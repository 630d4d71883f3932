package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/service/appointments"
	"github.com/pribylovaa/go-telemed/internal/service/auth"
	"github.com/pribylovaa/go-telemed/internal/transport/http/apierrors"
)

// TokenValidator проверяет access-токен и возвращает личность вызывающего.
// Реализуется сервисом auth.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, models.Role, error)
}

// Identity — аутентифицированный вызывающий, извлечённый из access-токена.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

type identityKey struct{}

// IdentityFrom достаёт личность из контекста запроса.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Authn требует валидный Bearer-токен и кладёт Identity в контекст.
// Навешивается только на защищённые маршруты.
func Authn(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.WriteError(w, r, auth.ErrInvalidToken)
				return
			}

			uid, email, role, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, Identity{
				UserID: uid,
				Email:  email,
				Role:   role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только вызывающих с одной из перечисленных ролей.
// Ставится после Authn.
func RequireRole(roles ...models.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				apierrors.WriteError(w, r, auth.ErrInvalidToken)
				return
			}

			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			apierrors.WriteError(w, r, appointments.ErrPermissionDenied)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}

	return strings.TrimSpace(h[len(prefix):]), true
}
