package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ScheduledPaymentStatus is the lifecycle state of a recurring charge.
type ScheduledPaymentStatus string

const (
	ScheduledPaymentStatusActive    ScheduledPaymentStatus = "active"
	ScheduledPaymentStatusCancelled ScheduledPaymentStatus = "cancelled"
)

// ScheduledPayment is one expected recurring charge, due on a specific
// day of the month. Rows are created and cancelled by the subscription
// flows; the billing runner only reads them.
type ScheduledPayment struct {
	ID             snowflake.ID           `gorm:"primaryKey"`
	SubscriptionID snowflake.ID           `gorm:"not null;index"`
	ProductID      snowflake.ID           `gorm:"not null;index"`
	UserID         snowflake.ID           `gorm:"not null;index"`
	ScheduledDay   int                    `gorm:"not null;index:ix_scheduled_payments_due,priority:2"`
	Status         ScheduledPaymentStatus `gorm:"type:text;not null;default:'active';index:ix_scheduled_payments_due,priority:1"`
	CancelledAt    *time.Time             `gorm:"column:cancelled_at"`
	CreatedAt      time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time              `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ScheduledPayment) TableName() string { return "scheduled_payments" }
