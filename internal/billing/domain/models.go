package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RunStatus tracks a daily billing run from claim to completion.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// DailyBillingLog is the per-date run record. The unique run_date index
// doubles as the idempotency gate: claiming the date is an insert, and a
// conflict means the date was already processed.
type DailyBillingLog struct {
	ID                snowflake.ID      `gorm:"primaryKey"`
	RunDate           string            `gorm:"type:date;not null;uniqueIndex:ux_daily_billing_logs_run_date"`
	Status            RunStatus         `gorm:"type:text;not null;default:'running'"`
	PaymentsFound     int               `gorm:"not null;default:0"`
	PaymentsSucceeded int               `gorm:"not null;default:0"`
	Notes             string            `gorm:"type:text;not null;default:''"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	CompletedAt       *time.Time        `gorm:"column:completed_at"`
}

// TableName sets the database table name.
func (DailyBillingLog) TableName() string { return "daily_billing_logs" }

// BillingCandidate is one scheduled payment due today, joined with the
// product, payee and provider-customer mapping it needs to be charged.
type BillingCandidate struct {
	ID               snowflake.ID
	SubscriptionID   snowflake.ID
	ProductID        snowflake.ID
	UserID           snowflake.ID
	BusinessID       snowflake.ID
	Price            decimal.Decimal
	Currency         string
	StripeAccountID  *string
	StripeCustomerID *string
}

// AmountMinorUnits converts the product price to minor currency units.
func (c BillingCandidate) AmountMinorUnits() int64 {
	return c.Price.Shift(2).Round(0).IntPart()
}

// OutcomeKind is the tagged result of one candidate.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome records what happened to one candidate. Skipped is permanent
// for this cycle (missing setup, card declined); Failed is transient and
// a future retry pass could pick it up.
type Outcome struct {
	ScheduledPaymentID snowflake.ID
	Kind               OutcomeKind
	Reason             string
}

func Succeeded(id snowflake.ID) Outcome {
	return Outcome{ScheduledPaymentID: id, Kind: OutcomeSucceeded}
}

func SkippedPermanent(id snowflake.ID, reason string) Outcome {
	return Outcome{ScheduledPaymentID: id, Kind: OutcomeSkipped, Reason: reason}
}

func FailedTransient(id snowflake.ID, reason string) Outcome {
	return Outcome{ScheduledPaymentID: id, Kind: OutcomeFailed, Reason: reason}
}

// RunReport summarizes a completed run for the caller.
type RunReport struct {
	RunDate   string
	Found     int
	Succeeded int
	Skipped   int
	Failed    int
	Notes     []string
}

var (
	ErrAlreadyProcessed      = errors.New("billing_already_processed")
	ErrCandidatesUnavailable = errors.New("scheduled_payments_unavailable")
)
