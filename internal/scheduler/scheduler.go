package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	"github.com/garethtyler2/monthlyclub-sub003/internal/billing/service"
	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	obsctx "github.com/garethtyler2/monthlyclub-sub003/internal/observability/context"
)

const runTimeout = 15 * time.Minute

type Params struct {
	fx.In

	Log    *zap.Logger
	Cfg    config.Config
	Runner *service.Runner
}

// Scheduler triggers the daily billing run on a cron expression. The
// run itself is guarded by the per-date gate, so overlapping triggers
// (or an external cron hitting the HTTP endpoint the same day) are
// harmless.
type Scheduler struct {
	log      *zap.Logger
	runner   *service.Runner
	schedule string
	cron     *cron.Cron
}

func New(p Params) *Scheduler {
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		runner:   p.Runner,
		schedule: p.Cfg.BillingSchedule,
	}
}

// Start registers the billing job and starts the cron loop.
func (s *Scheduler) Start() error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, s.runBilling)
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("billing scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runBilling() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	ctx = obsctx.WithActor(ctx, "scheduler", "")

	report, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, billingdomain.ErrAlreadyProcessed):
		s.log.Info("billing already processed today")
	case err != nil:
		s.log.Error("scheduled billing run failed", zap.Error(err))
	default:
		s.log.Info("scheduled billing run finished",
			zap.String("run_date", report.RunDate),
			zap.Int("found", report.Found),
			zap.Int("succeeded", report.Succeeded),
		)
	}
}
