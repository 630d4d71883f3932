// auth содержит бизнес-логику аутентификации платформы:
// регистрацию пациентов и врачей, вход, ротацию refresh-токенов,
// профиль и смену пароля.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном хранилище.
//   - Ошибки возвращаются наверх и маппятся транспортом на HTTP-коды
//     (см. комментарии к переменным ошибок ниже).
package auth

import (
	"errors"

	"github.com/pribylovaa/go-telemed/internal/cache"
	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь не найден.
	// Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи
	// или отсутствует в хранилище. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — токен отозван (logout/ротация) и недействителен
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrRefreshTokenCollision — исчерпаны попытки сгенерировать уникальный
	// refresh-токен. Транспорт: HTTP 500.
	ErrRefreshTokenCollision = errors.New("refresh token collision")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidRole — самостоятельно зарегистрироваться можно только
	// пациентом или врачом. Транспорт: HTTP 400.
	ErrInvalidRole = errors.New("invalid role")

	// ErrSpecialtyRequired — для роли MEDICO обязательна специальность.
	// Транспорт: HTTP 400.
	ErrSpecialtyRequired = errors.New("specialty required for doctors")

	// ErrUserInactive — учётная запись деактивирована администратором.
	// Транспорт: HTTP 403.
	ErrUserInactive = errors.New("user is inactive")

	// ErrUserNotFound — пользователь не найден. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")
)

// Service описывает бизнес-логику аутентификации и профилей.
type Service struct {
	storage storage.Storage
	avatars storage.AvatarStorage // может быть nil, если S3 не сконфигурирован
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: st,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}

// SetAvatarStorage устанавливает S3-хранилище аватаров (опционально).
func (s *Service) SetAvatarStorage(a storage.AvatarStorage) {
	s.avatars = a
}
