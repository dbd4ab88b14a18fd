package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v81"

	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

// classify maps a provider error onto the transient/permanent split the
// runner needs. Card declines are permanent for this cycle; rate limits,
// lock contention, 5xx responses and network failures are transient.
func classify(err error) *paymentdomain.ChargeFailure {
	if err == nil {
		return nil
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		transient := false
		switch {
		case stripeErr.Code == stripe.ErrorCodeRateLimit,
			stripeErr.Code == stripe.ErrorCodeLockTimeout:
			transient = true
		case stripeErr.HTTPStatusCode >= 500:
			transient = true
		case stripeErr.Type == stripe.ErrorTypeAPI:
			transient = true
		}
		code := string(stripeErr.Code)
		if code == "" {
			code = string(stripeErr.Type)
		}
		return &paymentdomain.ChargeFailure{Transient: transient, Code: code, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &paymentdomain.ChargeFailure{Transient: true, Code: "timeout", Err: err}
	}

	// Anything below the provider API (DNS, TLS, connection resets) is
	// worth another attempt.
	return &paymentdomain.ChargeFailure{Transient: true, Code: "provider_unreachable", Err: err}
}
