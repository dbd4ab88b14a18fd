package domain

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// ChargeRequest describes one off-session charge against a stored
// payment method, routed to a connected account.
type ChargeRequest struct {
	Amount               int64
	Currency             string
	ApplicationFeeAmount int64
	StripeCustomerID     string
	PaymentMethodID      string
	DestinationAccountID string
	IdempotencyKey       string
	ScheduledPaymentID   snowflake.ID
	SubscriptionID       snowflake.ID
	ProductID            snowflake.ID
	UserID               snowflake.ID
}

// ChargeResult carries the provider identifiers of a created charge.
type ChargeResult struct {
	ProviderPaymentID string
	Status            string
}

// Charger is the payment provider surface the billing runner needs.
type Charger interface {
	// DefaultPaymentMethod returns the customer's default payment method
	// id, or empty when none is configured.
	DefaultPaymentMethod(ctx context.Context, stripeCustomerID string) (string, error)
	// CreateOffSessionCharge creates and confirms an off-session payment
	// intent. Failures are reported as *ChargeFailure.
	CreateOffSessionCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ChargeFailure classifies a failed charge so the caller can separate
// "retry another day" from "needs manual resolution".
type ChargeFailure struct {
	Transient bool
	Code      string
	Err       error
}

func (e *ChargeFailure) Error() string {
	if e == nil {
		return "charge_failure"
	}
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("charge failed (%s, code=%s): %v", kind, e.Code, e.Err)
	}
	return fmt.Sprintf("charge failed (%s, code=%s)", kind, e.Code)
}

func (e *ChargeFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
