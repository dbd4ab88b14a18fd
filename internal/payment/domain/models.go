package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentStatus tracks a ledger row from charge creation to settlement.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is an append-only ledger row recording one attempted charge.
// Amount is in minor currency units. Status moves off pending only
// through webhook reconciliation.
type Payment struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	ScheduledPaymentID snowflake.ID  `gorm:"not null;index"`
	SubscriptionID     snowflake.ID  `gorm:"not null;index"`
	ProductID          snowflake.ID  `gorm:"not null"`
	UserID             snowflake.ID  `gorm:"not null;index"`
	BusinessID         snowflake.ID  `gorm:"not null;index"`
	Amount             int64         `gorm:"not null"`
	Currency           string        `gorm:"type:text;not null"`
	Status             PaymentStatus `gorm:"type:text;not null;default:'pending'"`
	ProviderPaymentID  string        `gorm:"type:text;not null;uniqueIndex:ux_payments_provider_payment"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// PaymentEvent records one provider webhook delivery. The unique
// (provider, provider_event_id) pair makes redelivery a no-op.
type PaymentEvent struct {
	ID                snowflake.ID   `gorm:"primaryKey"`
	Provider          string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID   string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType         string         `gorm:"type:text;not null"`
	ProviderPaymentID string         `gorm:"type:text;not null;default:''"`
	Payload           datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	ProcessedAt       *time.Time     `gorm:"column:processed_at"`
}

// TableName sets the database table name.
func (PaymentEvent) TableName() string { return "payment_events" }
