package dispatch

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/garethtyler2/monthlyclub-sub003/internal/events"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/metrics"
)

func setupDispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&events.BillingEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestWorker(t *testing.T, db *gorm.DB) *Worker {
	t.Helper()
	return NewWorker(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Metrics: metrics.Billing(),
	})
}

func TestRunOncePublishesPendingEvents(t *testing.T) {
	db := setupDispatchTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	outbox := events.NewOutbox(db, node)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := outbox.Publish(ctx, events.Event{Type: events.EventPaymentRecorded}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	worker := newTestWorker(t, db)
	if err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}

	var unpublished int64
	if err := db.Model(&events.BillingEvent{}).Where("published = ?", false).Count(&unpublished).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if unpublished != 0 {
		t.Fatalf("expected all events published, %d remain", unpublished)
	}
}

func TestRunOnceSkipsAlreadyPublished(t *testing.T) {
	db := setupDispatchTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	outbox := events.NewOutbox(db, node)

	ctx := context.Background()
	if err := outbox.Publish(ctx, events.Event{Type: events.EventRunCompleted}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	worker := newTestWorker(t, db)
	if err := worker.RunOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	processed, err := worker.processBatch(ctx, 10)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected no events reprocessed, got %d", processed)
	}
}

func TestOutboxDedupeKeyIsIdempotent(t *testing.T) {
	db := setupDispatchTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	outbox := events.NewOutbox(db, node)

	ctx := context.Background()
	event := events.Event{Type: events.EventPaymentSettled, DedupeKey: "evt_123"}
	if err := outbox.Publish(ctx, event); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := outbox.Publish(ctx, event); err != nil {
		t.Fatalf("duplicate publish must be a no-op, got %v", err)
	}

	var count int64
	if err := db.Model(&events.BillingEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event row, got %d", count)
	}
}
