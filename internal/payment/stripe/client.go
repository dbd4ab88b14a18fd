package stripe

import (
	"context"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"

	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/tracing"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

// Charger talks to Stripe for customer lookups and off-session charges.
type Charger struct {
	api *client.API
	log *zap.Logger
}

// NewCharger builds the Stripe-backed charger with a traced HTTP client.
func NewCharger(cfg config.Config, log *zap.Logger) (paymentdomain.Charger, error) {
	api := &client.API{}
	api.Init(cfg.Stripe.APIKey, &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			HTTPClient: tracing.WrapHTTPClient(&http.Client{}),
		}),
	})
	return &Charger{api: api, log: log.Named("payment.stripe")}, nil
}

// DefaultPaymentMethod fetches the customer and returns the id of their
// default payment method, or empty when none is configured.
func (c *Charger) DefaultPaymentMethod(ctx context.Context, stripeCustomerID string) (string, error) {
	stripeCustomerID = strings.TrimSpace(stripeCustomerID)
	if stripeCustomerID == "" {
		return "", nil
	}

	customer, err := c.api.Customers.Get(stripeCustomerID, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", classify(err)
	}
	if customer == nil || customer.InvoiceSettings == nil || customer.InvoiceSettings.DefaultPaymentMethod == nil {
		return "", nil
	}
	return customer.InvoiceSettings.DefaultPaymentMethod.ID, nil
}

// CreateOffSessionCharge creates and confirms a payment intent for a
// stored payment method, routing net funds to the connected account.
func (c *Charger) CreateOffSessionCharge(ctx context.Context, req paymentdomain.ChargeRequest) (paymentdomain.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context:        ctx,
			IdempotencyKey: stripe.String(req.IdempotencyKey),
		},
		Amount:               stripe.Int64(req.Amount),
		Currency:             stripe.String(req.Currency),
		Customer:             stripe.String(req.StripeCustomerID),
		PaymentMethod:        stripe.String(req.PaymentMethodID),
		OffSession:           stripe.Bool(true),
		Confirm:              stripe.Bool(true),
		ApplicationFeeAmount: stripe.Int64(req.ApplicationFeeAmount),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.DestinationAccountID),
		},
	}
	params.AddMetadata("scheduled_payment_id", req.ScheduledPaymentID.String())
	params.AddMetadata("subscription_id", req.SubscriptionID.String())
	params.AddMetadata("product_id", req.ProductID.String())
	params.AddMetadata("user_id", req.UserID.String())

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return paymentdomain.ChargeResult{}, classify(err)
	}

	c.log.Debug("payment intent created",
		zap.String("payment_intent_id", intent.ID),
		zap.String("status", string(intent.Status)),
	)
	return paymentdomain.ChargeResult{
		ProviderPaymentID: intent.ID,
		Status:            string(intent.Status),
	}, nil
}
