package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 1 << 20

// StripeWebhook verifies and applies one webhook delivery. Redelivered
// events are acknowledged with 200 so Stripe stops retrying.
func (s *Server) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil, errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		AbortWithError(c, err)
	}
}
