package miniostore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// extByContentType — допустимые типы и расширения ключа объекта.
var extByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// AvatarUploadURL генерирует presigned PUT URL для загрузки аватара.
// Content-Type и размер валидируются до выдачи URL; сам PUT выполняет
// клиент напрямую в S3, минуя сервис.
func (s *AvatarStorage) AvatarUploadURL(ctx context.Context, userID uuid.UUID, contentType string, contentLength int64) (*storage.UploadInfo, error) {
	const op = "storage/miniostore/AvatarUploadURL"

	ext, ok := extByContentType[strings.ToLower(contentType)]
	if !ok || !allowed(s.cfg.Avatar.AllowedContentTypes, contentType) {
		return nil, fmt.Errorf("%s: %w: unsupported content type %q", op, storage.ErrInvalidArgument, contentType)
	}

	if contentLength <= 0 || contentLength > s.cfg.Avatar.MaxSizeBytes {
		return nil, fmt.Errorf("%s: %w: content length %d out of range", op, storage.ErrInvalidArgument, contentLength)
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", userID, uuid.NewString(), ext)

	presigned, err := s.client.PresignedPutObject(ctx, s.cfg.S3.Bucket, key, s.cfg.S3.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &storage.UploadInfo{
		UploadURL: presigned.String(),
		AvatarKey: key,
		Expires:   s.cfg.S3.PresignTTL,
		RequiredHeader: map[string]string{
			"Content-Type": contentType,
		},
	}, nil
}

// CheckAvatarUpload проверяет, что объект действительно загружен и
// удовлетворяет ограничениям, и возвращает публичный URL аватара.
// Ключ обязан лежать в "каталоге" пользователя — чужой ключ подтвердить нельзя.
func (s *AvatarStorage) CheckAvatarUpload(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	const op = "storage/miniostore/CheckAvatarUpload"

	if !strings.HasPrefix(key, fmt.Sprintf("avatars/%s/", userID)) {
		return "", fmt.Errorf("%s: %w: key does not belong to user", op, storage.ErrInvalidArgument)
	}

	info, err := s.client.StatObject(ctx, s.cfg.S3.Bucket, key, mclient.StatObjectOptions{})
	if err != nil {
		resp := mclient.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if info.Size > s.cfg.Avatar.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w: object too large (%d bytes)", op, storage.ErrInvalidArgument, info.Size)
	}

	if !allowed(s.cfg.Avatar.AllowedContentTypes, info.ContentType) {
		return "", fmt.Errorf("%s: %w: unsupported content type %q", op, storage.ErrInvalidArgument, info.ContentType)
	}

	return s.publicURL(key), nil
}

// publicURL строит публичный URL объекта: через PublicBaseURL (CDN/прокси),
// иначе напрямую через endpoint хранилища.
func (s *AvatarStorage) publicURL(key string) string {
	base := strings.TrimRight(s.cfg.S3.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.cfg.S3.Endpoint, "/") + "/" + s.cfg.S3.Bucket
	}

	return base + "/" + key
}

func allowed(list []string, contentType string) bool {
	for _, ct := range list {
		if strings.EqualFold(ct, contentType) {
			return true
		}
	}

	return false
}
