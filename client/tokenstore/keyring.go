package tokenstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "mx.telemed.app"

	keyAccessToken      = "access_token"
	keyRefreshToken     = "refresh_token"
	keyAccessExpiresAt  = "access_expires_at"
	keyRefreshExpiresAt = "refresh_expires_at"
)

// Keyring хранит токены в системном хранилище секретов
// (Keychain / Secret Service / Credential Manager).
type Keyring struct {
	service string
	now     func() time.Time
}

var _ Store = (*Keyring)(nil)

func NewKeyring() *Keyring {
	return &Keyring{service: keyringService, now: time.Now}
}

func (k *Keyring) Save(t Tokens) error {
	const op = "tokenstore.Keyring.Save"

	pairs := []struct{ key, value string }{
		{keyAccessToken, t.AccessToken},
		{keyRefreshToken, t.RefreshToken},
		{keyAccessExpiresAt, formatTime(t.AccessExpiresAt)},
		{keyRefreshExpiresAt, formatTime(t.RefreshExpiresAt)},
	}
	for _, p := range pairs {
		if err := keyring.Set(k.service, p.key, p.value); err != nil {
			return fmt.Errorf("%s: set %s: %w", op, p.key, err)
		}
	}

	return nil
}

func (k *Keyring) Load() (Tokens, error) {
	const op = "tokenstore.Keyring.Load"

	var t Tokens
	var err error

	if t.AccessToken, err = k.get(keyAccessToken); err != nil {
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}
	if t.RefreshToken, err = k.get(keyRefreshToken); err != nil {
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	rawAccess, err := k.get(keyAccessExpiresAt)
	if err != nil {
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}
	rawRefresh, err := k.get(keyRefreshExpiresAt)
	if err != nil {
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}
	t.AccessExpiresAt = parseTime(rawAccess)
	t.RefreshExpiresAt = parseTime(rawRefresh)

	return prune(t, k.now()), nil
}

func (k *Keyring) Clear() error {
	const op = "tokenstore.Keyring.Clear"

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyAccessExpiresAt, keyRefreshExpiresAt} {
		if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s: delete %s: %w", op, key, err)
		}
	}

	return nil
}

// get возвращает пустую строку для отсутствующей записи.
func (k *Keyring) get(key string) (string, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
