package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// SaveEvent записывает событие аудита.
func (s *Storage) SaveEvent(ctx context.Context, e *models.AuditEvent) error {
	const op = "storage.postgres.SaveEvent"

	query := `
		INSERT INTO audit_events(id, actor_id, actor_email, action, entity, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		e.ID,
		e.ActorID,
		e.ActorEmail,
		e.Action,
		e.Entity,
		e.EntityID,
		e.Detail,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListEvents возвращает события по фильтру (created_at DESC).
func (s *Storage) ListEvents(ctx context.Context, filter storage.AuditFilter) ([]models.AuditEvent, error) {
	const op = "storage.postgres.ListEvents"

	query := `
		SELECT id, actor_id, actor_email, action, entity, entity_id, detail, created_at
		FROM audit_events
	`

	where := []string{}
	args := []any{}

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		where = append(where, fmt.Sprintf("actor_id = $%d", len(args)))
	}

	if filter.Action != "" {
		args = append(args, filter.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}

	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		err := rows.Scan(
			&e.ID,
			&e.ActorID,
			&e.ActorEmail,
			&e.Action,
			&e.Entity,
			&e.EntityID,
			&e.Detail,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}
