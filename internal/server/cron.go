package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	obsctx "github.com/garethtyler2/monthlyclub-sub003/internal/observability/context"
)

// CronAuthRequired authenticates the external scheduler with a shared
// bearer secret and rate-limits repeated triggers per caller.
func (s *Server) CronAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := strings.TrimSpace(s.cfg.CronSecret)
		if secret == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if !s.cronLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyReqs)
			return
		}

		ctx := obsctx.WithActor(c.Request.Context(), "cron", c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RunDailyBilling triggers the daily billing batch. The response body is
// plain text; external schedulers only look at the status code.
func (s *Server) RunDailyBilling(c *gin.Context) {
	report, err := s.runner.Run(c.Request.Context())
	switch {
	case errors.Is(err, billingdomain.ErrAlreadyProcessed):
		c.String(http.StatusOK, "Billing already processed today")
	case errors.Is(err, billingdomain.ErrCandidatesUnavailable):
		c.String(http.StatusInternalServerError, "Error loading scheduled payments")
	case err != nil:
		AbortWithError(c, err)
	default:
		s.log.Info("cron-triggered billing run finished",
			zap.String("run_date", report.RunDate),
			zap.Int("found", report.Found),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
		c.String(http.StatusOK, "Cron run complete")
	}
}
