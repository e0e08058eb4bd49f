package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StoreOperationGet    = "get"
	StoreOperationUpdate = "update"

	DecisionGranted = "granted"
	DecisionDenied  = "denied"
	DecisionFailed  = "failed"
)

var (
	LeaseDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shared_debrid_lease_decisions_total",
			Help: "Total number of access decisions",
		},
		[]string{"decision"},
	)

	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shared_debrid_store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shared_debrid_store_operation_duration_seconds",
			Help:    "Duration of document store operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"backend", "operation"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shared_debrid_cache_entries",
			Help: "Number of entries held by the gist response cache",
		},
	)

	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shared_debrid_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "status"},
	)
)

func init() {
	prometheus.MustRegister(LeaseDecisions)
	prometheus.MustRegister(StoreOperations)
	prometheus.MustRegister(StoreOperationDuration)
	prometheus.MustRegister(CacheOperations)
	prometheus.MustRegister(CacheEntries)
}

// ObserveStore records the outcome of one store call.
func ObserveStore(backend, operation string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreOperations.WithLabelValues(backend, operation, status).Inc()
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(seconds)
}
