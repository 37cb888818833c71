package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var once sync.Once

// MustRegister registers all collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			paymentsTotal, gatewayCallLatencyMs, gatewayAuthRefreshes,
			reconciliationGaps, expiryPassRows, expiryRunSeconds,
			cacheRequests,
		)
	})
}
