package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationResults counts pipeline outcomes.
	VerificationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_results_total",
			Help: "Verification outcomes by status, reason code and source",
		},
		[]string{"status", "reason", "source"},
	)

	// VerificationDuration tracks the latency of the verification pipeline
	VerificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "verification_duration_seconds",
			Help: "Duration of verification requests in seconds",
			Buckets: []float64{
				0.01,  // 10ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				2.5,   // 2.5s
				5.0,   // 5s
				10.0,  // 10s
				30.0,  // 30s
			},
		},
		[]string{"status"},
	)

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_rate_limited_total",
		Help: "Verification requests rejected by the fixed-window limiter",
	})

	ProviderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verification_provider_fallbacks_total",
		Help: "Provider calls that fell back to direct verification",
	})
)

// RecordResult records one completed verification.
func RecordResult(status, reason, source string, seconds float64) {
	VerificationResults.WithLabelValues(status, reason, source).Inc()
	VerificationDuration.WithLabelValues(status).Observe(seconds)
}

// RecordRateLimited counts one rejected request.
func RecordRateLimited() {
	RateLimited.Inc()
}

// RecordProviderFallback counts one fallback to direct verification.
func RecordProviderFallback() {
	ProviderFallbacks.Inc()
}
