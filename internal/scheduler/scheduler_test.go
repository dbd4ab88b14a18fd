package scheduler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
)

func TestStartRejectsInvalidSchedule(t *testing.T) {
	cfg := config.Config{BillingSchedule: "not a cron expression"}
	s := New(Params{Log: zap.NewNop(), Cfg: cfg})
	if err := s.Start(); err == nil {
		t.Fatalf("expected invalid schedule to fail")
	}
}

func TestStartAndStop(t *testing.T) {
	cfg := config.Config{BillingSchedule: "0 2 * * *"}
	s := New(Params{Log: zap.NewNop(), Cfg: cfg})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	s := New(Params{Log: zap.NewNop(), Cfg: config.Config{}})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
