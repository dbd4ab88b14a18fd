package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/garethtyler2/monthlyclub-sub003/internal/events"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Metrics *metrics.BillingMetrics
	Config  Config `optional:"true"`
}

// Worker drains the billing events outbox. Events are currently consumed
// by marking them published and logging them; downstream consumers read
// the table directly.
type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	metrics *metrics.BillingMetrics
	cfg     Config
}

func NewWorker(p Params) *Worker {
	cfg := p.Config.withDefaults()
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("events.dispatch"),
		metrics: p.Metrics,
		cfg:     cfg,
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("outbox dispatch run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := w.processBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	return w.publishBacklogGauge(ctx)
}

func (w *Worker) processBatch(ctx context.Context, limit int) (int, error) {
	if w.db == nil {
		return 0, errors.New("dispatch_worker_unavailable")
	}
	if limit <= 0 {
		limit = w.cfg.BatchSize
	}

	var batch []events.BillingEvent
	if err := w.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&batch).Error; err != nil {
		return 0, err
	}

	processed := 0
	now := time.Now().UTC()
	for _, event := range batch {
		// Claim each row individually so a concurrent dispatcher never
		// double-delivers.
		result := w.db.WithContext(ctx).Exec(
			`UPDATE billing_events
			 SET published = ?, published_at = ?
			 WHERE id = ? AND published = ?`,
			true,
			now,
			event.ID,
			false,
		)
		if result.Error != nil {
			return processed, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		w.log.Info("billing event dispatched",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.EventType),
		)
		processed++
	}
	return processed, nil
}

func (w *Worker) publishBacklogGauge(ctx context.Context) error {
	var backlog int64
	if err := w.db.WithContext(ctx).
		Model(&events.BillingEvent{}).
		Where("published = ?", false).
		Count(&backlog).Error; err != nil {
		return err
	}
	w.metrics.OutboxBacklog(backlog)
	return nil
}
