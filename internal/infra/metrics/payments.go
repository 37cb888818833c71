package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Settled payment intents by terminal status (succeeded/failed/cancelled).",
		},
		[]string{"status"},
	)

	gatewayCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_latency_ms",
			Help:    "Payment gateway call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"op", "success"},
	)

	gatewayAuthRefreshes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_auth_refreshes_total",
			Help: "Count of gateway logins performed (cache misses and 401 recoveries).",
		},
	)

	reconciliationGaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_reconciliation_gaps_total",
			Help: "Payment intents the gateway settled that no purchase metadata identifies.",
		},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by entity and result (hit/miss).",
		},
		[]string{"entity", "result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(status).Inc()
}

func ObserveGatewayCall(op string, success bool, d time.Duration) {
	gatewayCallLatencyMs.WithLabelValues(op, strconv.FormatBool(success)).Observe(float64(d.Milliseconds()))
}

func IncAuthRefresh() { gatewayAuthRefreshes.Inc() }

func IncReconciliationGap() { reconciliationGaps.Inc() }

func IncCacheRequest(entity, result string) {
	cacheRequests.WithLabelValues(entity, result).Inc()
}
