package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	"github.com/garethtyler2/monthlyclub-sub003/internal/cache"
	"github.com/garethtyler2/monthlyclub-sub003/internal/clock"
	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	"github.com/garethtyler2/monthlyclub-sub003/internal/events"
	"github.com/garethtyler2/monthlyclub-sub003/internal/observability/metrics"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

const paymentMethodCacheTTL = 10 * time.Minute

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Charger paymentdomain.Charger
	Repo    paymentdomain.Repository
	Outbox  *events.Outbox
	Metrics *metrics.BillingMetrics
	Cfg     config.Config
}

// Runner collects every payment scheduled for the current date, at most
// once per calendar date.
type Runner struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	charger paymentdomain.Charger
	repo    paymentdomain.Repository
	outbox  *events.Outbox
	metrics *metrics.BillingMetrics
	cfg     config.BillingConfig

	// Default payment method lookups are memoized so several plans held
	// by one customer cost a single provider read.
	pmCache cache.Cache[string, string]
}

func NewRunner(p Params) *Runner {
	cfg := p.Cfg.Billing
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ChargeTimeout <= 0 {
		cfg.ChargeTimeout = 30 * time.Second
	}
	return &Runner{
		db:      p.DB,
		log:     p.Log.Named("billing.runner"),
		genID:   p.GenID,
		clock:   p.Clock,
		charger: p.Charger,
		repo:    p.Repo,
		outbox:  p.Outbox,
		metrics: p.Metrics,
		cfg:     cfg,
		pmCache: cache.NewTTLCache[string, string](),
	}
}

// Run executes the daily billing batch. It returns ErrAlreadyProcessed
// when the date gate trips and ErrCandidatesUnavailable when the due
// query fails; in the latter case the claimed date is released so the
// same day can be retried.
func (r *Runner) Run(ctx context.Context) (billingdomain.RunReport, error) {
	now := r.clock.Now().UTC()
	runDate := now.Format("2006-01-02")
	report := billingdomain.RunReport{RunDate: runDate}

	logID, claimed, err := r.claimRun(ctx, runDate, now)
	if err != nil {
		return report, err
	}
	if !claimed {
		r.metrics.RunSkipped()
		r.log.Info("billing already processed for date", zap.String("run_date", runDate))
		return report, billingdomain.ErrAlreadyProcessed
	}
	r.metrics.RunStarted()
	started := time.Now()

	candidates, err := r.loadCandidates(ctx, now)
	if err != nil {
		r.log.Error("loading scheduled payments failed", zap.String("run_date", runDate), zap.Error(err))
		if releaseErr := r.releaseClaim(ctx, logID); releaseErr != nil {
			r.log.Error("releasing billing claim failed", zap.Error(releaseErr))
		}
		return report, fmt.Errorf("%w: %v", billingdomain.ErrCandidatesUnavailable, err)
	}
	report.Found = len(candidates)

	outcomes := make([]billingdomain.Outcome, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.cfg.Concurrency)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		group.Go(func() error {
			chargeCtx, cancel := context.WithTimeout(groupCtx, r.cfg.ChargeTimeout)
			defer cancel()
			outcomes[i] = r.processCandidate(chargeCtx, candidate, runDate)
			return nil
		})
	}
	// Workers never return errors; one candidate's failure must not
	// cancel the rest of the batch.
	_ = group.Wait()

	for _, outcome := range outcomes {
		r.metrics.CandidateOutcome(string(outcome.Kind))
		switch outcome.Kind {
		case billingdomain.OutcomeSucceeded:
			report.Succeeded++
		case billingdomain.OutcomeSkipped:
			report.Skipped++
		case billingdomain.OutcomeFailed:
			report.Failed++
		}
		if outcome.Reason != "" {
			report.Notes = append(report.Notes,
				fmt.Sprintf("scheduled_payment %s: %s", outcome.ScheduledPaymentID, outcome.Reason))
		}
	}

	if err := r.finalizeRun(ctx, logID, report); err != nil {
		// The charges are made; losing the summary must not fail the run.
		r.log.Error("writing daily billing log failed", zap.String("run_date", runDate), zap.Error(err))
	}

	r.metrics.RunCompleted(time.Since(started))
	r.log.Info("daily billing run complete",
		zap.String("run_date", runDate),
		zap.Int("found", report.Found),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// claimRun atomically claims the date. A conflicting insert means some
// other invocation owns (or already completed) today's run.
func (r *Runner) claimRun(ctx context.Context, runDate string, now time.Time) (snowflake.ID, bool, error) {
	row := billingdomain.DailyBillingLog{
		ID:        r.genID.Generate(),
		RunDate:   runDate,
		Status:    billingdomain.RunStatusRunning,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_date"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return 0, false, result.Error
	}
	return row.ID, result.RowsAffected > 0, nil
}

func (r *Runner) releaseClaim(ctx context.Context, logID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`DELETE FROM daily_billing_logs WHERE id = ? AND status = ?`,
		logID,
		billingdomain.RunStatusRunning,
	).Error
}

// loadCandidates fetches every active scheduled payment due today. On
// the last day of a month, schedules set past the month's length are
// also due, so a day-31 plan still bills in February.
func (r *Runner) loadCandidates(ctx context.Context, now time.Time) ([]billingdomain.BillingCandidate, error) {
	day := now.Day()
	dayMatch := "sp.scheduled_day = ?"
	if isLastDayOfMonth(now) {
		dayMatch = "sp.scheduled_day >= ?"
	}

	var candidates []billingdomain.BillingCandidate
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(
		`SELECT sp.id, sp.subscription_id, sp.product_id, sp.user_id,
		        p.business_id, p.price, p.currency,
		        b.stripe_account_id,
		        pc.stripe_customer_id
		 FROM scheduled_payments sp
		 JOIN products p ON p.id = sp.product_id
		 JOIN businesses b ON b.id = p.business_id
		 LEFT JOIN provider_customers pc ON pc.user_id = sp.user_id
		 WHERE sp.status = ? AND %s
		 ORDER BY sp.id`,
		dayMatch,
	), "active", day).Scan(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *Runner) processCandidate(ctx context.Context, candidate billingdomain.BillingCandidate, runDate string) billingdomain.Outcome {
	if candidate.StripeAccountID == nil || strings.TrimSpace(*candidate.StripeAccountID) == "" {
		return billingdomain.SkippedPermanent(candidate.ID, "business has no connected stripe account")
	}
	if candidate.StripeCustomerID == nil || strings.TrimSpace(*candidate.StripeCustomerID) == "" {
		return billingdomain.SkippedPermanent(candidate.ID, "user has no stripe customer mapping")
	}
	stripeCustomerID := strings.TrimSpace(*candidate.StripeCustomerID)

	paymentMethodID, outcome := r.lookupPaymentMethod(ctx, candidate, stripeCustomerID)
	if outcome != nil {
		return *outcome
	}

	amount := candidate.AmountMinorUnits()
	currency := strings.TrimSpace(candidate.Currency)
	if currency == "" {
		currency = r.cfg.Currency
	}

	result, err := r.charger.CreateOffSessionCharge(ctx, paymentdomain.ChargeRequest{
		Amount:               amount,
		Currency:             currency,
		ApplicationFeeAmount: platformFee(amount, r.cfg.PlatformFeeBasisPoints),
		StripeCustomerID:     stripeCustomerID,
		PaymentMethodID:      paymentMethodID,
		DestinationAccountID: strings.TrimSpace(*candidate.StripeAccountID),
		IdempotencyKey:       chargeIdempotencyKey(candidate.ID, runDate),
		ScheduledPaymentID:   candidate.ID,
		SubscriptionID:       candidate.SubscriptionID,
		ProductID:            candidate.ProductID,
		UserID:               candidate.UserID,
	})
	if err != nil {
		return r.chargeOutcome(candidate, err)
	}

	payment := paymentdomain.Payment{
		ID:                 r.genID.Generate(),
		ScheduledPaymentID: candidate.ID,
		SubscriptionID:     candidate.SubscriptionID,
		ProductID:          candidate.ProductID,
		UserID:             candidate.UserID,
		BusinessID:         candidate.BusinessID,
		Amount:             amount,
		Currency:           currency,
		Status:             paymentdomain.PaymentStatusPending,
		ProviderPaymentID:  result.ProviderPaymentID,
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}
		return r.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventPaymentRecorded,
			Payload: events.PaymentRecordedPayload{
				PaymentID:          payment.ID.String(),
				ScheduledPaymentID: candidate.ID.String(),
				SubscriptionID:     candidate.SubscriptionID.String(),
				UserID:             candidate.UserID.String(),
				Amount:             amount,
				Currency:           currency,
			}.ToMap(),
			DedupeKey: "payment:" + result.ProviderPaymentID,
		})
	})
	if err != nil {
		// The provider charge exists but the ledger write is missing;
		// flag it loudly for manual reconciliation.
		r.log.Error("charge created but ledger insert failed",
			zap.String("scheduled_payment_id", candidate.ID.String()),
			zap.String("provider_payment_id", result.ProviderPaymentID),
			zap.Error(err),
		)
		return billingdomain.FailedTransient(candidate.ID, "charged but ledger insert failed: "+result.ProviderPaymentID)
	}

	return billingdomain.Succeeded(candidate.ID)
}

func (r *Runner) lookupPaymentMethod(ctx context.Context, candidate billingdomain.BillingCandidate, stripeCustomerID string) (string, *billingdomain.Outcome) {
	if cached, ok := r.pmCache.Get(stripeCustomerID); ok {
		return cached, nil
	}

	paymentMethodID, err := r.charger.DefaultPaymentMethod(ctx, stripeCustomerID)
	if err != nil {
		outcome := r.chargeOutcome(candidate, err)
		return "", &outcome
	}
	if paymentMethodID == "" {
		outcome := billingdomain.SkippedPermanent(candidate.ID, "stripe customer has no default payment method")
		return "", &outcome
	}

	r.pmCache.Set(stripeCustomerID, paymentMethodID, paymentMethodCacheTTL)
	return paymentMethodID, nil
}

// chargeOutcome turns a provider error into a tagged outcome: permanent
// declines are skipped for this cycle, everything else is transient.
func (r *Runner) chargeOutcome(candidate billingdomain.BillingCandidate, err error) billingdomain.Outcome {
	var failure *paymentdomain.ChargeFailure
	if errors.As(err, &failure) {
		reason := "charge failed"
		if failure.Code != "" {
			reason = "charge failed: " + failure.Code
		}
		if failure.Transient {
			return billingdomain.FailedTransient(candidate.ID, reason)
		}
		return billingdomain.SkippedPermanent(candidate.ID, reason)
	}
	return billingdomain.FailedTransient(candidate.ID, "charge failed: "+err.Error())
}

func (r *Runner) finalizeRun(ctx context.Context, logID snowflake.ID, report billingdomain.RunReport) error {
	metadata := datatypes.JSONMap{
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}
	err := r.db.WithContext(ctx).Model(&billingdomain.DailyBillingLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"status":             billingdomain.RunStatusCompleted,
			"payments_found":     report.Found,
			"payments_succeeded": report.Succeeded,
			"notes":              strings.Join(report.Notes, "; "),
			"metadata":           metadata,
			"completed_at":       r.clock.Now().UTC(),
		}).Error
	if err != nil {
		return err
	}

	return r.outbox.Publish(ctx, events.Event{
		Type: events.EventRunCompleted,
		Payload: events.RunCompletedPayload{
			RunDate:   report.RunDate,
			Found:     report.Found,
			Succeeded: report.Succeeded,
			Skipped:   report.Skipped,
			Failed:    report.Failed,
		}.ToMap(),
		DedupeKey: "billing-run:" + report.RunDate,
	})
}

func chargeIdempotencyKey(id snowflake.ID, runDate string) string {
	return "daily-billing:" + id.String() + ":" + runDate
}

func platformFee(amount int64, basisPoints int64) int64 {
	if amount <= 0 || basisPoints <= 0 {
		return 0
	}
	// Round half up, matching a 1.5% fee of the charged amount.
	return (amount*basisPoints + 5000) / 10000
}

func isLastDayOfMonth(t time.Time) bool {
	return t.Day() == daysInMonth(t)
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
