package services

import "github.com/prometheus/client_golang/prometheus"

var (
	StockRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "stock",
			Name:      "recomputes_total",
			Help:      "Debounced stock recomputes by outcome",
		},
		[]string{"outcome"},
	)

	CheckoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "results_total",
			Help:      "Checkout attempts by outcome",
		},
		[]string{"outcome"},
	)

	OrphanedMappings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cleanup",
			Name:      "orphaned_mappings_deleted_total",
			Help:      "Mappings removed by the orphan sweep",
		},
	)
)

// Collectors returns the service metrics for registration next to the HTTP metrics.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{StockRecomputes, CheckoutOutcomes, OrphanedMappings}
}
