// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "ecoswitch"
	subsystem = "api"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"method", "endpoint", "status"},
	)

	// Routing
	RoutingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "routing_decisions_total",
			Help:      "Routing outcomes by effective provider and rule",
		},
		[]string{"provider", "rule"},
	)

	RoutingFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "routing_failures_total",
			Help:      "Requests the router could not place",
		},
		[]string{"requested_provider", "error_type"},
	)

	// Providers
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_duration_seconds",
			Help:      "Completion call duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "provider_errors_total",
			Help:      "Total provider call failures",
		},
		[]string{"provider", "error_type"},
	)

	AdvisoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "advisories_total",
			Help:      "Replies replaced by an advisory message",
		},
		[]string{"provider", "outcome", "rule"},
	)

	PromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prompt_tokens",
			Help:      "Estimated prompt tokens per completion call",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
		},
		[]string{"provider"},
	)

	// Credentials
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "credential_verifications_total",
			Help:      "Live credential checks by provider, result and cache use",
		},
		[]string{"provider", "result", "source"},
	)

	ConversationsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conversations_created_total",
			Help:      "Total conversations created",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

func RecordRoute(provider, rule string) {
	RoutingDecisionsTotal.WithLabelValues(provider, rule).Inc()
}

func RecordRoutingFailure(requestedProvider, errorType string) {
	if requestedProvider == "" {
		requestedProvider = "unknown"
	}
	RoutingFailuresTotal.WithLabelValues(requestedProvider, errorType).Inc()
}

// RecordProviderCall records the duration of one completion call.
func RecordProviderCall(provider, model string, durationSec float64) {
	ProviderDuration.WithLabelValues(provider, model).Observe(durationSec)
}

func RecordProviderError(provider, errorType string) {
	ProviderErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

func RecordAdvisory(provider, outcome, rule string) {
	if rule == "" {
		rule = "none"
	}
	AdvisoriesTotal.WithLabelValues(provider, outcome, rule).Inc()
}

func RecordPromptTokens(provider string, tokens int) {
	PromptTokens.WithLabelValues(provider).Observe(float64(tokens))
}

// RecordVerification records a credential check. source is "live" or "cache".
func RecordVerification(provider string, valid bool, source string) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	VerificationsTotal.WithLabelValues(provider, result, source).Inc()
}
