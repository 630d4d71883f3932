package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-telemed/client/tokenstore"
)

// fakeAPI — минимальный сервер для сквозных тестов клиента:
// /auth/login и /auth/refresh выдают настраиваемые пары, /auth/profile
// принимает только текущий access-токен.
type fakeAPI struct {
	mu           sync.Mutex
	validAccess  string
	validRefresh string
	refreshCalls int32
	loginCalls   int32
	refreshFails bool
	logoutStatus int

	// profileAlways401 имитирует сервер, который не признаёт даже
	// обновлённый access-токен.
	profileAlways401 bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	writeAuth := func(w http.ResponseWriter, access, refresh string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"usuario": map[string]any{"id": "u1", "correo": "a@b.com", "rol": "PACIENTE", "activo": true},
			"tokens": map[string]any{
				"accessToken":    access,
				"refreshToken":   refresh,
				"accesoExpiraEn": time.Now().Add(time.Hour).Format(time.RFC3339),
			},
		})
	}

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.loginCalls, 1)
		f.mu.Lock()
		f.validAccess, f.validRefresh = "AT1", "RT1"
		f.mu.Unlock()
		writeAuth(w, "AT1", "RT1")
	})

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.refreshCalls, 1)

		if f.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "unauthenticated", "message": "token revoked"},
			})
			return
		}

		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		defer f.mu.Unlock()
		if body.RefreshToken != f.validRefresh {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "unauthenticated", "message": "invalid token"},
			})
			return
		}

		f.validAccess, f.validRefresh = "AT2", "RT2"
		writeAuth(w, "AT2", "RT2")
	})

	mux.HandleFunc("/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		valid := "Bearer " + f.validAccess
		f.mu.Unlock()

		if f.profileAlways401 || r.Header.Get("Authorization") != valid {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "unauthenticated", "message": "invalid token"},
			})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "u1", "correo": "a@b.com", "rol": "PACIENTE"})
	})

	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		status := f.logoutStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, onExpired func()) (*Client, *tokenstore.Memory) {
	t.Helper()

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemory()
	c := New(Options{
		BaseURL:          srv.URL,
		Store:            store,
		OnSessionExpired: onExpired,
	})
	return c, store
}

// login -> isAuthenticated true, пара в хранилище; logout -> false.
func TestClient_LoginLogout_RoundTrip(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c, store := newTestClient(t, api, nil)
	ctx := context.Background()

	require.False(t, c.IsAuthenticated())

	user, err := c.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", user.Email)
	require.True(t, c.IsAuthenticated())

	tokens, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "AT1", tokens.AccessToken)
	require.Equal(t, "RT1", tokens.RefreshToken)

	require.NoError(t, c.Logout(ctx))
	require.False(t, c.IsAuthenticated())
}

// 401 -> один refresh -> один повтор -> 200; в хранилище AT2/RT2.
func TestClient_ProfileAfter401_RefreshesAndReplays(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c, store := newTestClient(t, api, nil)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	// Сервер инвалидирует access-токен (например, после рестарта).
	api.mu.Lock()
	api.validAccess = "AT-rotated"
	api.mu.Unlock()

	user, err := c.GetProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", user.Email)
	require.Equal(t, int32(1), atomic.LoadInt32(&api.refreshCalls))

	tokens, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "AT2", tokens.AccessToken)
	require.Equal(t, "RT2", tokens.RefreshToken)
}

// 401 на повторе уходит вызывающему; второго refresh нет.
func TestClient_SecondUnauthorized_PropagatesWithoutLoop(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{profileAlways401: true}
	c, store := newTestClient(t, api, nil)
	ctx := context.Background()

	// Пара есть, refresh сработает, но профиль отвечает 401 и на повтор.
	require.NoError(t, store.Save(tokenstore.Tokens{
		AccessToken:      "stale",
		RefreshToken:     "RT1",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}))
	api.mu.Lock()
	api.validRefresh = "RT1"
	api.mu.Unlock()

	_, err := c.GetProfile(ctx)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, int32(1), atomic.LoadInt32(&api.refreshCalls))
}

// Отказ refresh стирает пару и дёргает OnSessionExpired; исходный 401
// уходит вызывающему.
func TestClient_RefreshFailure_ClearsTokensAndFiresHook(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{refreshFails: true}

	var expired int32
	c, store := newTestClient(t, api, func() { atomic.AddInt32(&expired, 1) })
	ctx := context.Background()

	require.NoError(t, store.Save(tokenstore.Tokens{
		AccessToken:      "stale",
		RefreshToken:     "RT1",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(time.Hour),
	}))
	api.mu.Lock()
	api.validAccess = "other"
	api.mu.Unlock()

	_, err := c.GetProfile(ctx)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.Equal(t, int32(1), atomic.LoadInt32(&expired))
	require.False(t, c.IsAuthenticated())
}

// Без refresh-токена 401 уходит сразу, refresh не вызывается.
func TestClient_NoRefreshToken_PropagatesWithoutRefresh(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c, _ := newTestClient(t, api, nil)

	api.mu.Lock()
	api.validAccess = "valid"
	api.mu.Unlock()

	_, err := c.GetProfile(context.Background())
	require.Error(t, err)
	require.Equal(t, int32(0), atomic.LoadInt32(&api.refreshCalls))
}

// logout() стирает пару даже при отказе сервера.
func TestClient_Logout_ClearsTokensOnRemoteFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{logoutStatus: http.StatusInternalServerError}
	c, _ := newTestClient(t, api, nil)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	err = c.Logout(ctx)
	require.Error(t, err)
	require.False(t, c.IsAuthenticated())
}

// Одновременные 401 разделяют один refresh.
func TestClient_Concurrent401_SingleRefresh(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	c, _ := newTestClient(t, api, nil)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@b.com", "secret123")
	require.NoError(t, err)

	api.mu.Lock()
	api.validAccess = "AT-rotated"
	api.mu.Unlock()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetProfile(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&api.refreshCalls))
}

func TestClient_AppointmentLimit_StableCodeBranch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "limite_citas", "message": "active appointment limit reached"},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(Options{BaseURL: srv.URL})

	_, err := c.CreateAppointment(context.Background(), CreateAppointmentParams{
		DoctorID: "d1",
		StartsAt: time.Now().Format(time.RFC3339),
		Type:     "VIDEOCONSULTA",
	})
	require.Error(t, err)
	require.True(t, IsAppointmentLimit(err))

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}
