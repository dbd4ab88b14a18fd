package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics tracks daily billing run health.
type BillingMetrics struct {
	runsStarted       prometheus.Counter
	runsSkipped       prometheus.Counter
	runDuration       prometheus.Histogram
	candidateOutcomes *prometheus.CounterVec
	outboxBacklog     prometheus.Gauge
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide billing metrics.
func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

// BillingWithConfig initializes the billing metrics with service labels.
func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "monthlyclub"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	runsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "monthlyclub_billing_runs_started_total",
		Help:        "Daily billing runs that claimed the date and started work.",
		ConstLabels: constLabels,
	})

	runsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "monthlyclub_billing_runs_skipped_total",
		Help:        "Daily billing invocations short-circuited by the date gate.",
		ConstLabels: constLabels,
	})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "monthlyclub_billing_run_duration_seconds",
		Help: "Wall time of a complete daily billing run.",
		Buckets: []float64{
			1,
			5,
			15,
			60,
			300,  // 5m
			900,  // 15m
			3600, // 1h
		},
		ConstLabels: constLabels,
	})

	candidateOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "monthlyclub_billing_candidates_total",
			Help:        "Per-candidate charge outcomes by result.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"}, // succeeded | skipped | failed
	)

	outboxBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "monthlyclub_billing_outbox_backlog",
		Help:        "Unpublished rows in the billing events outbox.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		runsStarted,
		runsSkipped,
		runDuration,
		candidateOutcomes,
		outboxBacklog,
	)

	return &BillingMetrics{
		runsStarted:       runsStarted,
		runsSkipped:       runsSkipped,
		runDuration:       runDuration,
		candidateOutcomes: candidateOutcomes,
		outboxBacklog:     outboxBacklog,
	}
}

// RunStarted marks a run that claimed today's date.
func (m *BillingMetrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
}

// RunSkipped marks an invocation stopped by the idempotency gate.
func (m *BillingMetrics) RunSkipped() {
	if m == nil {
		return
	}
	m.runsSkipped.Inc()
}

// RunCompleted records total run duration.
func (m *BillingMetrics) RunCompleted(duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
}

// CandidateOutcome counts one candidate result.
func (m *BillingMetrics) CandidateOutcome(outcome string) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	m.candidateOutcomes.WithLabelValues(outcome).Inc()
}

// OutboxBacklog publishes the current unpublished event count.
func (m *BillingMetrics) OutboxBacklog(count int64) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(float64(count))
}
