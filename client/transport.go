package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/pribylovaa/go-telemed/client/tokenstore"
)

// errNoRefreshToken — в хранилище нет refresh-токена, обновлять нечем.
var errNoRefreshToken = errors.New("no refresh token")

// retryMarker помечает уже повторённый запрос. Маркер живёт в контексте
// клона, а не в мутируемом поле разделяемого запроса: параллельные
// запросы не видят чужих пометок.
type retryMarker struct{}

// refreshFunc обменивает refresh-токен на новую пару.
type refreshFunc func(ctx context.Context, refreshToken string) (tokenstore.Tokens, error)

// Transport — http.RoundTripper с прозрачным обновлением сессии:
//
//   - исходящий запрос получает Authorization: Bearer, если access-токен
//     есть в хранилище; ожидания токена нет;
//   - на 401 по ещё не повторённому запросу выполняется ровно одна
//     попытка refresh и не более одного повтора запроса; 401 на повторе
//     уходит вызывающему как есть;
//   - отказ refresh стирает обе записи хранилища и дёргает
//     onSessionExpired, после чего исходный 401 уходит вызывающему.
//
// Одновременные 401 разделяют один in-flight refresh под мьютексом:
// второй запрос после захвата замечает, что пара уже сменилась,
// и уходит на повтор без собственного похода на сервер.
type Transport struct {
	base             http.RoundTripper
	store            tokenstore.Store
	refresh          refreshFunc
	onSessionExpired func()

	mu sync.Mutex
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tokens, err := t.store.Load()
	if err == nil && tokens.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Context().Value(retryMarker{}) != nil {
		return resp, nil
	}

	fresh, refreshErr := t.refreshSession(req.Context(), tokens.AccessToken)
	if refreshErr != nil {
		return resp, nil
	}

	retry, cloneErr := cloneForRetry(req)
	if cloneErr != nil {
		return resp, nil
	}
	retry.Header.Set("Authorization", "Bearer "+fresh.AccessToken)

	_ = resp.Body.Close()

	return t.base.RoundTrip(retry)
}

// refreshSession — единственная точка обновления пары. staleAccess —
// access-токен, с которым запрос получил 401: если к моменту захвата
// мьютекса пара уже другая, обновление сделал параллельный запрос.
func (t *Transport) refreshSession(ctx context.Context, staleAccess string) (tokenstore.Tokens, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, err := t.store.Load()
	if err == nil && current.AccessToken != "" && current.AccessToken != staleAccess {
		return current, nil
	}
	if current.RefreshToken == "" {
		return tokenstore.Tokens{}, errNoRefreshToken
	}

	fresh, err := t.refresh(ctx, current.RefreshToken)
	if err != nil {
		// Невосстановимый отказ: сессия закончилась.
		_ = t.store.Clear()
		if t.onSessionExpired != nil {
			t.onSessionExpired()
		}
		return tokenstore.Tokens{}, err
	}

	if err := t.store.Save(fresh); err != nil {
		return tokenstore.Tokens{}, err
	}

	return fresh, nil
}

// cloneForRetry клонирует запрос с перемотанным телом и маркером повтора.
func cloneForRetry(req *http.Request) (*http.Request, error) {
	retry := req.Clone(context.WithValue(req.Context(), retryMarker{}, true))

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	return retry, nil
}
