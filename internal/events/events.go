package events

// Billing event types emitted through the outbox.
const (
	EventPaymentRecorded = "payment.recorded"
	EventPaymentSettled  = "payment.settled"
	EventPaymentFailed   = "payment.failed"
	EventRunCompleted    = "billing.run_completed"
)

// PaymentRecordedPayload captures the ledger row created for a charge.
type PaymentRecordedPayload struct {
	PaymentID          string `json:"payment_id"`
	ScheduledPaymentID string `json:"scheduled_payment_id"`
	SubscriptionID     string `json:"subscription_id"`
	UserID             string `json:"user_id"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PaymentRecordedPayload) ToMap() map[string]any {
	return map[string]any{
		"payment_id":           p.PaymentID,
		"scheduled_payment_id": p.ScheduledPaymentID,
		"subscription_id":      p.SubscriptionID,
		"user_id":              p.UserID,
		"amount":               p.Amount,
		"currency":             p.Currency,
	}
}

// PaymentSettledPayload captures a webhook settlement outcome.
type PaymentSettledPayload struct {
	ProviderPaymentID string `json:"provider_payment_id"`
	Status            string `json:"status"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PaymentSettledPayload) ToMap() map[string]any {
	return map[string]any{
		"provider_payment_id": p.ProviderPaymentID,
		"status":              p.Status,
	}
}

// RunCompletedPayload summarizes one daily billing run.
type RunCompletedPayload struct {
	RunDate   string `json:"run_date"`
	Found     int    `json:"found"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p RunCompletedPayload) ToMap() map[string]any {
	return map[string]any{
		"run_date":  p.RunDate,
		"found":     p.Found,
		"succeeded": p.Succeeded,
		"skipped":   p.Skipped,
		"failed":    p.Failed,
	}
}
