package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists ledger rows and webhook event records.
type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	// SettlePayment moves a pending ledger row to the given status by
	// provider payment id. Returns false when no pending row matches.
	SettlePayment(ctx context.Context, db *gorm.DB, providerPaymentID string, status PaymentStatus, now time.Time) (bool, error)

	// InsertEvent stores a webhook event record; returns false when the
	// (provider, provider_event_id) pair was already recorded.
	InsertEvent(ctx context.Context, db *gorm.DB, event *PaymentEvent) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*PaymentEvent, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
