package health

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "storefront"
	subsystem = "http"
)

// Route labels come from the matched chi pattern, never the raw URL.
var routeLabels = []string{"method", "path", "status"}

var (
	HttpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Storefront request latency by route pattern",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		routeLabels,
	)

	HttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Storefront requests by route pattern and status",
		},
		routeLabels,
	)

	HttpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_in_flight",
			Help:      "Storefront requests currently being served",
		},
	)
)

func httpCollectors() []prometheus.Collector {
	return []prometheus.Collector{HttpDuration, HttpRequests, HttpInFlight}
}
