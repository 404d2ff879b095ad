package metrics

import (
	"net/http"
	"strings"
	"time"

	"selene/domain/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector - records wait outcomes as Prometheus metrics
type Collector struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewCollector - creates a Collector with its own registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "selene",
			Name:      "wait_duration_seconds",
			Help:      "Time spent waiting for element operations",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"operation", "outcome"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "selene",
			Name:      "wait_total",
			Help:      "Number of finished waits by outcome",
		}, []string{"outcome"}),
	}
	c.registry.MustRegister(c.duration, c.total)
	return c
}

// ObserveWait - implements interfaces.WaitObserver
func (c *Collector) ObserveWait(operation, outcome string, elapsed time.Duration) {
	c.duration.WithLabelValues(operationName(operation), outcome).Observe(elapsed.Seconds())
	c.total.WithLabelValues(outcome).Inc()
}

// Registry - exposes the registry for tests and extra collectors
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler - serves the collected metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// operationName - drops arguments so label values stay bounded: "type('abc')" -> "type"
func operationName(operation string) string {
	if i := strings.IndexByte(operation, '('); i > 0 {
		return operation[:i]
	}
	return operation
}

var _ interfaces.WaitObserver = (*Collector)(nil)
