package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	"github.com/garethtyler2/monthlyclub-sub003/internal/events"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

const providerStripe = "stripe"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   paymentdomain.Repository
	Cfg    config.Config
	Outbox *events.Outbox
}

// Service settles payment ledger rows from Stripe webhook deliveries.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          paymentdomain.Repository
	outbox        *events.Outbox
	webhookSecret string
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		outbox:        p.Outbox,
		webhookSecret: strings.TrimSpace(p.Cfg.Stripe.WebhookSecret),
	}
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signature string) error {
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	var status paymentdomain.PaymentStatus
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		status = paymentdomain.PaymentStatusSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		status = paymentdomain.PaymentStatusFailed
	default:
		// Not a settlement event for this service.
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return paymentdomain.ErrInvalidEvent
	}
	if strings.TrimSpace(intent.ID) == "" {
		return paymentdomain.ErrInvalidEvent
	}

	now := time.Now().UTC()
	received := paymentdomain.PaymentEvent{
		ID:                s.genID.Generate(),
		Provider:          providerStripe,
		ProviderEventID:   event.ID,
		EventType:         string(event.Type),
		ProviderPaymentID: intent.ID,
		Payload:           datatypes.JSON(payload),
		ReceivedAt:        now,
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, providerStripe, event.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.settle(ctx, stored, status); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

func (s *Service) settle(ctx context.Context, stored *paymentdomain.PaymentEvent, status paymentdomain.PaymentStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settled, err := s.repo.SettlePayment(ctx, tx, stored.ProviderPaymentID, status, time.Now().UTC())
		if err != nil {
			return err
		}
		if !settled {
			// Charges created outside the daily runner (or already
			// settled rows) have no pending ledger row to move.
			s.log.Warn("no pending ledger row for settlement",
				zap.String("provider_payment_id", stored.ProviderPaymentID),
				zap.String("event_type", stored.EventType),
			)
			return nil
		}

		eventType := events.EventPaymentSettled
		if status == paymentdomain.PaymentStatusFailed {
			eventType = events.EventPaymentFailed
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: eventType,
			Payload: events.PaymentSettledPayload{
				ProviderPaymentID: stored.ProviderPaymentID,
				Status:            string(status),
			}.ToMap(),
			DedupeKey: providerStripe + ":" + stored.ProviderEventID,
		})
	})
}
