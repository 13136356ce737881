package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// IdentifyRequests counts identify requests by outcome.
	IdentifyRequests *prometheus.CounterVec
	// ContactsCreated counts inserted rows, labeled by link precedence.
	ContactsCreated *prometheus.CounterVec
	// ClustersMerged counts primaries demoted under a surviving primary.
	ClustersMerged prometheus.Counter
	// IdentifyDuration observes end-to-end identify handler latency.
	IdentifyDuration prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		IdentifyRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlink_identify_requests_total",
			Help: "Total number of identify requests, by outcome",
		}, []string{"outcome"}),
		ContactsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlink_contacts_created_total",
			Help: "Total number of contact rows created, by link precedence",
		}, []string{"link_precedence"}),
		ClustersMerged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contactlink_clusters_merged_total",
			Help: "Total number of cluster merges (one per demoted primary)",
		}),
		IdentifyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactlink_identify_duration_seconds",
			Help:    "Latency of identify requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewForTest creates metrics on a private registry so test suites can
// construct them repeatedly without duplicate registration panics.
func NewForTest() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		IdentifyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlink_identify_requests_total",
			Help: "Total number of identify requests, by outcome",
		}, []string{"outcome"}),
		ContactsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactlink_contacts_created_total",
			Help: "Total number of contact rows created, by link precedence",
		}, []string{"link_precedence"}),
		ClustersMerged: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactlink_clusters_merged_total",
			Help: "Total number of cluster merges (one per demoted primary)",
		}),
		IdentifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contactlink_identify_duration_seconds",
			Help:    "Latency of identify requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
