package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	expiryPassRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_expiry_pass_rows_total",
			Help: "Rows touched by each expiration engine pass.",
		},
		[]string{"pass"},
	)

	expiryRunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "subscription_expiry_run_seconds",
			Help:    "Duration of a full expiration engine run.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func AddExpiryPassRows(pass string, n int64) {
	if n > 0 {
		expiryPassRows.WithLabelValues(pass).Add(float64(n))
	}
}

func ObserveExpiryRun(d time.Duration) {
	expiryRunSeconds.Observe(d.Seconds())
}
