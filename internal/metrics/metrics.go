package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's counters and the order-processing duration
// histogram. Pure observability; nothing reads these back for behavior.
type Metrics struct {
	OrdersCreated            prometheus.Counter
	OrdersCancelled          prometheus.Counter
	AnomaliesDetected        prometheus.Counter
	SecurityEvents           prometheus.Counter
	SecurityEventsBySeverity *prometheus.CounterVec
	OrderProcessingDuration  prometheus.Histogram

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created.",
		}),
		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Total number of orders cancelled.",
		}),
		AnomaliesDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_anomalies_detected_total",
			Help: "Total number of order anomalies detected.",
		}),
		SecurityEvents: factory.NewCounter(prometheus.CounterOpts{
			Name: "security_events_total",
			Help: "Total number of security events.",
		}),
		SecurityEventsBySeverity: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "security_events_by_severity_total",
			Help: "Security events grouped by severity.",
		}, []string{"severity"}),
		OrderProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_processing_duration_seconds",
			Help:    "Order creation/update processing duration.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: reg,
	}
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
