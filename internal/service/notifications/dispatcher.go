package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-telemed/internal/models"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
)

// webhookPayload — тело POST-запроса на внешний webhook.
type webhookPayload struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// StartDispatcher запускает периодическую доставку недоставленных
// уведомлений на cfg.WebhookURL. Останавливается по ctx.
// Пустой WebhookURL — диспетчер не нужен, выходим сразу.
func (s *Service) StartDispatcher(ctx context.Context) error {
	const op = "service/notifications/StartDispatcher"

	if s.cfg.WebhookURL == "" {
		return fmt.Errorf("%s: no webhook configured", op)
	}

	lg := log.From(ctx)
	lg.Info("dispatch_start",
		slog.String("op", op),
		slog.Duration("interval", s.cfg.Interval),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if err := s.dispatchOnce(ctx); err != nil {
		lg.Warn("dispatch_tick_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			lg.Info("dispatch_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			if err := s.dispatchOnce(ctx); err != nil {
				lg.Warn("dispatch_tick_error",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}
	}
}

// dispatchOnce — один проход: выборка недоставленных, отправка,
// пометка доставленных. Неудачные остаются в outbox до следующего тика.
func (s *Service) dispatchOnce(ctx context.Context) error {
	const op = "service/notifications/dispatchOnce"

	lg := log.From(ctx)

	pending, err := s.storage.PendingNotifications(ctx, s.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("%s: pending: %w", op, err)
	}

	if len(pending) == 0 {
		return nil
	}

	var delivered []uuid.UUID
	var failed int

	for i := range pending {
		if err := s.deliver(ctx, &pending[i]); err != nil {
			failed++
			lg.Warn("deliver_error",
				slog.String("op", op),
				slog.String("notification_id", pending[i].ID.String()),
				slog.String("err", err.Error()),
			)
			continue
		}

		delivered = append(delivered, pending[i].ID)
	}

	if len(delivered) > 0 {
		if err := s.storage.MarkDelivered(ctx, delivered, time.Now().UTC()); err != nil {
			return fmt.Errorf("%s: mark_delivered: %w", op, err)
		}
	}

	lg.Info("dispatch_done",
		slog.String("op", op),
		slog.Int("delivered", len(delivered)),
		slog.Int("failed", failed),
	)

	return nil
}

// deliver отправляет одно уведомление на webhook.
// Любой статус вне 2xx считается неудачей.
func (s *Service) deliver(ctx context.Context, n *models.Notification) error {
	const op = "service/notifications/deliver"

	payload := webhookPayload{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	return nil
}
