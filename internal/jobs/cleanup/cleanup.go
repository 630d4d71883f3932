// cleanup — периодическая уборка: просроченные refresh-токены и
// доставленные уведомления старше окна хранения.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/go-telemed/internal/config"
	"github.com/pribylovaa/go-telemed/internal/pkg/log"
	"github.com/pribylovaa/go-telemed/internal/storage"
)

// Job — фоновая уборка хранилища.
type Job struct {
	storage storage.Storage
	cfg     config.CleanupConfig
	now     func() time.Time
}

// New создаёт задание уборки.
func New(st storage.Storage, cfg config.CleanupConfig) *Job {
	return &Job{
		storage: st,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start запускает периодическую уборку. Останавливается по ctx.
func (j *Job) Start(ctx context.Context) error {
	const op = "jobs/cleanup/Start"

	lg := log.From(ctx)
	lg.Info("cleanup_start",
		slog.String("op", op),
		slog.Duration("interval", j.cfg.Interval),
		slog.Duration("retention", j.cfg.Retention),
	)

	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	if err := j.runOnce(ctx); err != nil {
		lg.Warn("cleanup_tick_error",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			lg.Info("cleanup_stop", slog.String("op", op))
			return nil
		case <-ticker.C:
			if err := j.runOnce(ctx); err != nil {
				lg.Warn("cleanup_tick_error",
					slog.String("op", op),
					slog.String("err", err.Error()),
				)
			}
		}
	}
}

// runOnce — один проход уборки.
func (j *Job) runOnce(ctx context.Context) error {
	const op = "jobs/cleanup/runOnce"

	now := j.now().UTC()

	if err := j.storage.DeleteExpiredTokens(ctx, now); err != nil {
		return fmt.Errorf("%s: expired_tokens: %w", op, err)
	}

	cutoff := now.Add(-j.cfg.Retention)
	if err := j.storage.DeleteDeliveredBefore(ctx, cutoff); err != nil {
		return fmt.Errorf("%s: delivered_notifications: %w", op, err)
	}

	return nil
}
