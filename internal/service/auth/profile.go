package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// ErrAvatarsUnavailable — хранилище аватаров не сконфигурировано.
// Транспорт: HTTP 503.
var ErrAvatarsUnavailable = errors.New("avatar storage unavailable")

// UpdateProfileInput — частичное обновление профиля: обновляются
// только поля с ненулевыми указателями.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Specialty *string
}

// Profile возвращает профиль пользователя.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.auth.Profile"

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateProfile частично обновляет профиль пользователя.
// Specialty принимается только для роли MEDICO.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	const op = "service.auth.UpdateProfile"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Specialty != nil && user.Role != models.RoleDoctor {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRole)
	}

	updated, err := s.storage.UpdateProfile(ctx, userID, storage.ProfileUpdate{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Specialty: input.Specialty,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("storage error on UpdateProfile", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

// ChangePassword меняет пароль после проверки текущего.
// Новый пароль проходит ту же политику сложности, что и при регистрации.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "service.auth.ChangePassword"

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}

	if !checkPassword(user.PasswordHash, current) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := validatePassword(next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hash, err := hashPassword(next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Doctors возвращает справочник активных врачей.
func (s *Service) Doctors(ctx context.Context) ([]models.User, error) {
	const op = "service.auth.Doctors"

	doctors, err := s.storage.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doctors, nil
}

// AvatarUploadURL выдаёт presigned PUT URL для загрузки аватара.
func (s *Service) AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "service.auth.AvatarUploadURL"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarsUnavailable)
	}

	if _, err := s.Profile(ctx, userID); err != nil {
		return nil, err
	}

	info, err := s.avatars.AvatarUploadURL(ctx, userID, contentType, contentLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return info, nil
}

// ConfirmAvatarUpload подтверждает загрузку и прописывает URL в профиле.
func (s *Service) ConfirmAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (*models.User, error) {
	const op = "service.auth.ConfirmAvatarUpload"

	if s.avatars == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarsUnavailable)
	}

	publicURL, err := s.avatars.CheckAvatarUpload(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.ConfirmAvatarUpload(ctx, userID, key, publicURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
