package domain

import (
	"context"
	"errors"
)

// Service reconciles provider webhook deliveries into the payment ledger.
type Service interface {
	IngestWebhook(ctx context.Context, payload []byte, signature string) error
}

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)
