// client — Go SDK телемедицинского API.
//
// Клиент склеивает три вещи: хранилище токенов (tokenstore), транспорт
// с прозрачным обновлением сессии по 401 (Transport) и типизированные
// методы поверх REST-эндпойнтов. Доменные ошибки сервера приходят как
// *APIError со стабильным кодом.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-telemed/client/tokenstore"
)

// Options — параметры сборки клиента.
type Options struct {
	// BaseURL — корень API, например "https://api.clinica.mx".
	BaseURL string
	// Store — хранилище токенов; по умолчанию NewMemory().
	Store tokenstore.Store
	// Base — базовый RoundTripper; по умолчанию http.DefaultTransport.
	Base http.RoundTripper
	// OnSessionExpired вызывается при невосстановимом отказе refresh —
	// аналог редиректа на /login в веб-версии.
	OnSessionExpired func()
	// Timeout HTTP-запросов; по умолчанию 15s.
	Timeout time.Duration
}

// Client — сессионный фасад и типизированные вызовы API.
type Client struct {
	baseURL string
	store   tokenstore.Store

	// authed ходит через Transport (bearer + refresh), plain — напрямую:
	// им выполняются сами auth-вызовы, чтобы не зациклить refresh.
	authed *http.Client
	plain  *http.Client
}

func New(opts Options) *Client {
	store := opts.Store
	if store == nil {
		store = tokenstore.NewMemory()
	}
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		store:   store,
	}

	c.plain = &http.Client{Transport: base, Timeout: timeout}
	c.authed = &http.Client{
		Transport: &Transport{
			base:             base,
			store:            store,
			refresh:          c.refreshTokens,
			onSessionExpired: opts.OnSessionExpired,
		},
		Timeout: timeout,
	}

	return c
}

// RegisterParams — данные регистрации.
type RegisterParams struct {
	Email     string `json:"correo"`
	Password  string `json:"contrasena"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Phone     string `json:"telefono,omitempty"`
	Role      string `json:"rol"`
	Specialty string `json:"especialidad,omitempty"`
}

// Register регистрирует пользователя и сохраняет выданную пару токенов.
func (c *Client) Register(ctx context.Context, p RegisterParams) (*User, error) {
	const op = "client.Register"

	var resp authResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/register", p, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.saveTokens(resp.Tokens); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp.User, nil
}

// Login выполняет вход и сохраняет выданную пару токенов.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	const op = "client.Login"

	body := map[string]string{"correo": email, "contrasena": password}

	var resp authResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := c.saveTokens(resp.Tokens); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp.User, nil
}

// Logout отзывает refresh-токен на сервере и стирает локальную пару.
// Локальная пара стирается всегда, даже если сервер недоступен.
func (c *Client) Logout(ctx context.Context) error {
	const op = "client.Logout"

	tokens, loadErr := c.store.Load()

	var remoteErr error
	if loadErr == nil && tokens.RefreshToken != "" {
		body := map[string]string{"refreshToken": tokens.RefreshToken}
		remoteErr = c.do(ctx, c.authed, http.MethodPost, "/auth/logout", body, nil)
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if remoteErr != nil {
		return fmt.Errorf("%s: %w", op, remoteErr)
	}

	return nil
}

// IsAuthenticated — локальная проверка «в хранилище есть токен».
// Без похода на сервер.
func (c *Client) IsAuthenticated() bool {
	tokens, err := c.store.Load()
	if err != nil {
		return false
	}
	return tokens.AccessToken != "" || tokens.RefreshToken != ""
}

// AccessToken возвращает текущий access-токен ("" — токена нет).
func (c *Client) AccessToken() string {
	tokens, err := c.store.Load()
	if err != nil {
		return ""
	}
	return tokens.AccessToken
}

// GetProfile возвращает профиль текущего пользователя.
func (c *Client) GetProfile(ctx context.Context) (*User, error) {
	const op = "client.GetProfile"

	var user User
	if err := c.do(ctx, c.authed, http.MethodGet, "/auth/profile", nil, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// UpdateProfileParams — частичное обновление профиля: nil-поле не трогается.
type UpdateProfileParams struct {
	FirstName *string `json:"nombre,omitempty"`
	LastName  *string `json:"apellido,omitempty"`
	Phone     *string `json:"telefono,omitempty"`
	Specialty *string `json:"especialidad,omitempty"`
}

func (c *Client) UpdateProfile(ctx context.Context, p UpdateProfileParams) (*User, error) {
	const op = "client.UpdateProfile"

	var user User
	if err := c.do(ctx, c.authed, http.MethodPut, "/auth/profile", p, &user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	const op = "client.ChangePassword"

	body := map[string]string{"contrasenaActual": current, "contrasenaNueva": next}
	if err := c.do(ctx, c.authed, http.MethodPost, "/auth/change-password", body, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// refreshTokens — refreshFunc транспорта: обменивает refresh-токен на
// новую пару через plain-клиент (иначе 401 на refresh зациклил бы нас).
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (tokenstore.Tokens, error) {
	const op = "client.refreshTokens"

	body := map[string]string{"refreshToken": refreshToken}

	var resp authResponse
	if err := c.do(ctx, c.plain, http.MethodPost, "/auth/refresh", body, &resp); err != nil {
		return tokenstore.Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	return toStoredTokens(resp.Tokens), nil
}

func (c *Client) saveTokens(pair TokenPair) error {
	return c.store.Save(toStoredTokens(pair))
}

// toStoredTokens накладывает клиентские горизонты годности: срок access
// диктует сервер, срок refresh сервер не сообщает — клиент ограничивает
// его неделей самостоятельно.
func toStoredTokens(pair TokenPair) tokenstore.Tokens {
	accessExp := pair.AccessExpiresAt
	if accessExp.IsZero() {
		accessExp = time.Now().Add(tokenstore.DefaultAccessTTL)
	}

	return tokenstore.Tokens{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: time.Now().Add(tokenstore.DefaultRefreshTTL),
	}
}

// do выполняет запрос и декодирует ответ; non-2xx превращается в *APIError.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error APIError `json:"error"`
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code == "" {
		return &APIError{
			Status:  resp.StatusCode,
			Code:    "internal",
			Message: http.StatusText(resp.StatusCode),
		}
	}

	apiErr := envelope.Error
	apiErr.Status = resp.StatusCode
	return &apiErr
}

// query — хелпер для GET-запросов с параметрами.
func query(path string, kv map[string]string) string {
	if len(kv) == 0 {
		return path
	}

	vals := url.Values{}
	for k, v := range kv {
		if v != "" {
			vals.Set(k, v)
		}
	}
	if enc := vals.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}
