package stripe

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v81"
)

func TestClassifyCardDeclinePermanent(t *testing.T) {
	err := &stripe.Error{
		Type:           stripe.ErrorTypeCard,
		Code:           stripe.ErrorCodeCardDeclined,
		HTTPStatusCode: 402,
	}
	failure := classify(err)
	if failure.Transient {
		t.Fatalf("card decline must be permanent")
	}
	if failure.Code != string(stripe.ErrorCodeCardDeclined) {
		t.Fatalf("expected card_declined code, got %q", failure.Code)
	}
}

func TestClassifyRateLimitTransient(t *testing.T) {
	err := &stripe.Error{
		Type:           stripe.ErrorTypeInvalidRequest,
		Code:           stripe.ErrorCodeRateLimit,
		HTTPStatusCode: 429,
	}
	if failure := classify(err); !failure.Transient {
		t.Fatalf("rate limit must be transient")
	}
}

func TestClassifyServerErrorTransient(t *testing.T) {
	err := &stripe.Error{
		Type:           stripe.ErrorTypeAPI,
		HTTPStatusCode: 500,
	}
	if failure := classify(err); !failure.Transient {
		t.Fatalf("5xx must be transient")
	}
}

func TestClassifyContextDeadlineTransient(t *testing.T) {
	err := fmt.Errorf("charge: %w", context.DeadlineExceeded)
	failure := classify(err)
	if !failure.Transient {
		t.Fatalf("deadline must be transient")
	}
	if failure.Code != "timeout" {
		t.Fatalf("expected timeout code, got %q", failure.Code)
	}
}

func TestClassifyNetworkErrorTransient(t *testing.T) {
	failure := classify(errors.New("dial tcp: connection refused"))
	if !failure.Transient {
		t.Fatalf("network errors must be transient")
	}
	if failure.Code != "provider_unreachable" {
		t.Fatalf("expected provider_unreachable code, got %q", failure.Code)
	}
}
