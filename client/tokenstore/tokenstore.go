// tokenstore хранит пару токенов сессии на стороне клиента.
//
// Записи access и refresh живут независимо, каждая со своим горизонтом
// годности, который контролирует сам клиент: просроченная запись при
// чтении выглядит как отсутствующая. Пара записывается при входе,
// регистрации и обновлении, стирается при выходе и при невосстановимом
// отказе refresh.
package tokenstore

import "time"

// Горизонты годности по умолчанию: сервер выдаёт access на сутки,
// refresh на неделю.
const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Tokens — пара токенов с индивидуальными сроками годности.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Store — клиентское хранилище токенов.
//
// Load возвращает пару с уже вычищенными просроченными записями:
// вызывающему не нужно проверять сроки самостоятельно.
type Store interface {
	Save(t Tokens) error
	Load() (Tokens, error)
	Clear() error
}

// prune затирает просроченные записи.
func prune(t Tokens, now time.Time) Tokens {
	if t.AccessToken != "" && !t.AccessExpiresAt.IsZero() && !now.Before(t.AccessExpiresAt) {
		t.AccessToken = ""
		t.AccessExpiresAt = time.Time{}
	}
	if t.RefreshToken != "" && !t.RefreshExpiresAt.IsZero() && !now.Before(t.RefreshExpiresAt) {
		t.RefreshToken = ""
		t.RefreshExpiresAt = time.Time{}
	}
	return t
}
