// admin содержит административные операции над пользователями:
// список с фильтрами, включение/выключение учётных записей,
// смену роли. Доступ ограничивает транспорт (роль ADMIN).
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

var (
	// ErrUserNotFound — пользователь не найден. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRole — недопустимое значение роли. Транспорт: HTTP 400.
	ErrInvalidRole = errors.New("invalid role")

	// ErrSelfChange — администратор не может деактивировать или
	// разжаловать сам себя. Транспорт: HTTP 409.
	ErrSelfChange = errors.New("cannot change own account")
)

// Service описывает административные операции.
type Service struct {
	storage storage.Storage
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage) *Service {
	return &Service{storage: st}
}

// ListUsers возвращает страницу пользователей по фильтру.
func (s *Service) ListUsers(ctx context.Context, filter storage.UserFilter) ([]models.User, error) {
	const op = "service.admin.ListUsers"

	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	if filter.Role != nil && !filter.Role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	users, err := s.storage.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// SetActive включает или выключает учётную запись.
func (s *Service) SetActive(ctx context.Context, actorID, userID uuid.UUID, active bool) (*models.User, error) {
	const op = "service.admin.SetActive"

	if actorID == userID {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfChange)
	}

	user, err := s.storage.SetActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// SetRole меняет роль пользователя.
func (s *Service) SetRole(ctx context.Context, actorID, userID uuid.UUID, role models.Role) (*models.User, error) {
	const op = "service.admin.SetRole"

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	if actorID == userID {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfChange)
	}

	user, err := s.storage.SetRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
