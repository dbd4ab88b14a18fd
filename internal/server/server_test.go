package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	billingdomain "github.com/garethtyler2/monthlyclub-sub003/internal/billing/domain"
	"github.com/garethtyler2/monthlyclub-sub003/internal/config"
	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
	subscriptiondomain "github.com/garethtyler2/monthlyclub-sub003/internal/subscription/domain"
)

const testCronSecret = "cron-secret"

type fakeRunner struct {
	report billingdomain.RunReport
	err    error
	calls  int
}

func (f *fakeRunner) Run(ctx context.Context) (billingdomain.RunReport, error) {
	f.calls++
	return f.report, f.err
}

type fakeWebhookService struct {
	err     error
	payload []byte
}

func (f *fakeWebhookService) IngestWebhook(ctx context.Context, payload []byte, signature string) error {
	f.payload = payload
	return f.err
}

func setupServerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&billingdomain.DailyBillingLog{},
		&paymentdomain.Payment{},
		&subscriptiondomain.ScheduledPayment{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestServer(t *testing.T, runner BillingRunner, paymentSvc paymentdomain.Service) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		CronSecret: testCronSecret,
		RateLimit:  config.RateLimitConfig{Limit: 100, Window: time.Minute},
	}
	s := &Server{
		db:          setupServerTestDB(t),
		log:         zap.NewNop(),
		cfg:         cfg,
		runner:      runner,
		paymentSvc:  paymentSvc,
		cronLimiter: newRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window),
	}
	return s, NewEngine(s)
}

func cronRequest(secret string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/cron/daily-billing", nil)
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	return req
}

func TestRunDailyBillingCompletes(t *testing.T) {
	runner := &fakeRunner{report: billingdomain.RunReport{RunDate: "2025-03-15", Found: 2, Succeeded: 1, Skipped: 1}}
	_, engine := newTestServer(t, runner, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(testCronSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Cron run complete" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if runner.calls != 1 {
		t.Fatalf("expected 1 run, got %d", runner.calls)
	}
}

func TestRunDailyBillingAlreadyProcessed(t *testing.T) {
	runner := &fakeRunner{err: billingdomain.ErrAlreadyProcessed}
	_, engine := newTestServer(t, runner, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(testCronSecret))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Billing already processed today" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestRunDailyBillingCandidateFetchFailure(t *testing.T) {
	runner := &fakeRunner{err: billingdomain.ErrCandidatesUnavailable}
	_, engine := newTestServer(t, runner, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(testCronSecret))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "Error loading scheduled payments" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
}

func TestCronAuthRejectsMissingAndWrongSecret(t *testing.T) {
	runner := &fakeRunner{}
	_, engine := newTestServer(t, runner, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest("wrong-secret"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: expected 401, got %d", rec.Code)
	}

	if runner.calls != 0 {
		t.Fatalf("unauthorized requests must not trigger runs, got %d", runner.calls)
	}
}

func TestCronAuthRejectsWhenSecretUnset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Server{
		db:          setupServerTestDB(t),
		log:         zap.NewNop(),
		cfg:         config.Config{},
		runner:      &fakeRunner{},
		paymentSvc:  &fakeWebhookService{},
		cronLimiter: newRateLimiter(10, time.Minute),
	}
	engine := NewEngine(s)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCronRateLimitTrips(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		CronSecret: testCronSecret,
		RateLimit:  config.RateLimitConfig{Limit: 2, Window: time.Minute},
	}
	s := &Server{
		db:          setupServerTestDB(t),
		log:         zap.NewNop(),
		cfg:         cfg,
		runner:      &fakeRunner{err: billingdomain.ErrAlreadyProcessed},
		paymentSvc:  &fakeWebhookService{},
		cronLimiter: newRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window),
	}
	engine := NewEngine(s)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, cronRequest(testCronSecret))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(testCronSecret))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestStripeWebhookAcknowledgesRedelivery(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrEventAlreadyProcessed}
	_, engine := newTestServer(t, &fakeRunner{}, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rec.Code)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	svc := &fakeWebhookService{err: paymentdomain.ErrInvalidSignature}
	_, engine := newTestServer(t, &fakeRunner{}, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListBillingLogsReturnsNewestFirst(t *testing.T) {
	s, engine := newTestServer(t, &fakeRunner{}, &fakeWebhookService{})
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	for _, date := range []string{"2025-03-13", "2025-03-14", "2025-03-15"} {
		row := billingdomain.DailyBillingLog{
			ID:      node.Generate(),
			RunDate: date,
			Status:  billingdomain.RunStatusCompleted,
		}
		if err := s.db.Create(&row).Error; err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/billing/logs?limit=2", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "2025-03-15") || strings.Contains(body, "2025-03-13") {
		t.Fatalf("unexpected page contents: %s", body)
	}
}

func TestListScheduledPaymentsRequiresBusinessID(t *testing.T) {
	_, engine := newTestServer(t, &fakeRunner{}, &fakeWebhookService{})

	req := httptest.NewRequest(http.MethodGet, "/api/scheduled-payments", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunDailyBillingUnexpectedError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("boom")}
	_, engine := newTestServer(t, runner, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, cronRequest(testCronSecret))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
