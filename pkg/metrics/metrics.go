package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var initOnce sync.Once

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	TasksPending        prometheus.Gauge
	ResolutionsTotal    *prometheus.CounterVec
	ResolveDuration     *prometheus.HistogramVec
	PagesScanned        *prometheus.HistogramVec
	CooldownRejections  prometheus.Counter
	TrafficSlotsUpdated prometheus.Counter
)

// Init registers all collectors with the default registry. Safe to call
// more than once; registration happens on the first call only.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	TasksPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracking_tasks_pending",
			Help: "Number of pending tracking tasks seen at the last poll.",
		},
	)

	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_resolutions_total",
			Help: "Total number of rank resolution attempts.",
		},
		[]string{"platform", "outcome"}, // outcome: found, not_found, failed
	)

	ResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_resolve_duration_seconds",
			Help:    "Duration of rank resolutions.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"platform"},
	)

	PagesScanned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rank_resolve_pages_scanned",
			Help:    "Pages scanned per rank resolution.",
			Buckets: []float64{1, 2, 3, 5, 10, 15, 20},
		},
		[]string{"platform"},
	)

	CooldownRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cooldown_rejections_total",
			Help: "Manual trigger requests rejected by the cooldown gate.",
		},
	)

	TrafficSlotsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traffic_slots_updated_total",
			Help: "Traffic counter updates applied by the simulator.",
		},
	)
}
