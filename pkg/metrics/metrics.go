package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts account registrations by result (success|conflict|error).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signupd_registrations_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// GoogleSignIns counts Google identity sign-ins by outcome (new|existing|error).
	GoogleSignIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signupd_google_signins_total",
			Help: "Total number of Google sign-in attempts",
		},
		[]string{"result"},
	)

	// VerificationCodes counts lifecycle outcomes for verification codes
	// (issued|suppressed|verified|invalid|expired|orphaned).
	VerificationCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signupd_verification_codes_total",
			Help: "Verification code lifecycle outcomes",
		},
		[]string{"outcome"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signupd_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
