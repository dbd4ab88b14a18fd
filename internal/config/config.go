package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config carries the runtime configuration for the billing service.
// Values are read from the environment with the MONTHLYCLUB prefix.
type Config struct {
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	ServiceName    string `envconfig:"SERVICE_NAME" default:"monthlyclub-billing"`
	ServiceVersion string `envconfig:"SERVICE_VERSION" default:"dev"`

	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseDSN string `envconfig:"DATABASE_DSN"`
	CronSecret  string `envconfig:"CRON_SECRET"`

	SchedulerEnabled bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	BillingSchedule  string `envconfig:"BILLING_SCHEDULE" default:"0 2 * * *"`

	Billing   BillingConfig   `envconfig:"BILLING"`
	Stripe    StripeConfig    `envconfig:"STRIPE"`
	Tracing   TracingConfig   `envconfig:"TRACING"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`

	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`
}

// BillingConfig controls the daily billing runner.
type BillingConfig struct {
	Concurrency            int           `envconfig:"CONCURRENCY" default:"4"`
	ChargeTimeout          time.Duration `envconfig:"CHARGE_TIMEOUT" default:"30s"`
	PlatformFeeBasisPoints int64         `envconfig:"PLATFORM_FEE_BPS" default:"150"`
	Currency               string        `envconfig:"CURRENCY" default:"gbp"`
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	APIKey        string `envconfig:"API_KEY"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled          bool    `envconfig:"ENABLED" default:"false"`
	ExporterEndpoint string  `envconfig:"EXPORTER_ENDPOINT"`
	ExporterProtocol string  `envconfig:"EXPORTER_PROTOCOL" default:"grpc"`
	SamplingRatio    float64 `envconfig:"SAMPLING_RATIO" default:"0.1"`
}

// RateLimitConfig bounds cron trigger requests per caller.
type RateLimitConfig struct {
	Limit  int           `envconfig:"LIMIT" default:"10"`
	Window time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Load reads configuration from the environment, consulting a local
// .env file first when one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("monthlyclub", &cfg); err != nil {
		return Config{}, err
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
