package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

const notificationColumns = `
	id, user_id, kind, title, body, read, delivered, delivered_at, created_at
`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var deliveredAt *time.Time

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Kind,
		&n.Title,
		&n.Body,
		&n.Read,
		&n.Delivered,
		&deliveredAt,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deliveredAt != nil {
		n.DeliveredAt = *deliveredAt
	}

	return &n, nil
}

// SaveNotification кладёт уведомление в ленту (и в outbox).
func (s *Storage) SaveNotification(ctx context.Context, n *models.Notification) error {
	const op = "storage.postgres.SaveNotification"

	query := `
		INSERT INTO notifications(id, user_id, kind, title, body, read, delivered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Kind,
		n.Title,
		n.Body,
		n.Read,
		n.Delivered,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListByUser возвращает последние уведомления пользователя (created_at DESC).
func (s *Storage) ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]models.Notification, error) {
	const op = "storage.postgres.ListByUser"

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// MarkRead помечает уведомление прочитанным; чужое/отсутствующее — ErrNotFound.
func (s *Storage) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	const op = "storage.postgres.MarkRead"

	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`

	cmdTag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// PendingNotifications возвращает недоставленные уведомления (created_at ASC).
func (s *Storage) PendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	const op = "storage.postgres.PendingNotifications"

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE delivered = FALSE
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// MarkDelivered помечает уведомления доставленными.
func (s *Storage) MarkDelivered(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	const op = "storage.postgres.MarkDelivered"

	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE notifications
		SET delivered = TRUE, delivered_at = $2
		WHERE id = ANY($1)
	`

	if _, err := s.db.Exec(ctx, query, ids, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteDeliveredBefore удаляет доставленные уведомления старше cutoff.
func (s *Storage) DeleteDeliveredBefore(ctx context.Context, cutoff time.Time) error {
	const op = "storage.postgres.DeleteDeliveredBefore"

	query := `
		DELETE FROM notifications
		WHERE delivered = TRUE AND created_at <= $1
	`

	if _, err := s.db.Exec(ctx, query, cutoff); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
