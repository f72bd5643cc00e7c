// Package metrics declares the Prometheus collectors used across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBQueryDuration tracks query latency by statement verb
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by statement verb
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Redis metrics
var (
	// RedisOpsTotal tracks total Redis operations by command and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks failed Redis connection attempts
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Reading pipeline metrics
var (
	// ReadingsGenerated counts completed reading pipeline runs by stage
	ReadingsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readings_generated_total",
			Help: "Reading pipeline stages completed, by stage (preview/full/translation)",
		},
		[]string{"stage"},
	)

	// AstrologyAPICalls counts upstream fortune-telling API calls by endpoint and status
	AstrologyAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astrology_api_calls_total",
			Help: "Upstream astrology API calls by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	// TranslationBatches counts translation batches by outcome
	TranslationBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_batches_total",
			Help: "Translation API batches by outcome (ok/fallback)",
		},
		[]string{"outcome"},
	)

	// ResultCacheHits counts result cache lookups by outcome
	ResultCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_lookups_total",
			Help: "Result cache lookups by outcome (hit/miss)",
		},
		[]string{"outcome"},
	)
)

// Commerce metrics
var (
	// WebhooksProcessed counts Shopify webhook deliveries by outcome
	WebhooksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopify_webhooks_total",
			Help: "Shopify webhook deliveries by outcome (processed/duplicate/invalid_signature/unmatched)",
		},
		[]string{"outcome"},
	)

	// CheckoutURLsCreated counts checkout URL creations by method
	CheckoutURLsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_urls_created_total",
			Help: "Checkout URLs created by method (cart_link/draft_order/fallback)",
		},
		[]string{"method"},
	)

	// EmailsSent counts emails sent by kind and outcome
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Emails sent by kind (verification/result) and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// VerificationCodesIssued counts issued verification codes
	VerificationCodesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_codes_issued_total",
			Help: "Verification codes generated and stored",
		},
	)

	// VerificationAttempts counts code verification attempts by outcome
	VerificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_attempts_total",
			Help: "Verification attempts by outcome (ok/invalid/expired)",
		},
		[]string{"outcome"},
	)
)
