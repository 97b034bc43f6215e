// Package metrics holds the Prometheus metrics of the unbundler worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "unbundler"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Metrics records worker activity on its own registry.
type Metrics struct {
	registry  *prometheus.Registry
	messages  *prometheus.CounterVec
	documents *prometheus.CounterVec
	rows      prometheus.Counter
	duration  prometheus.Histogram
}

// New returns Metrics registered on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Queue messages handled, by result.",
		}, []string{"result"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents converted, by result.",
		}, []string{"result"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Table rows written.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time to download, convert, and upload one document.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.messages,
		m.documents,
		m.rows,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Message counts a handled queue message.
func (m *Metrics) Message(result string) {
	m.messages.WithLabelValues(result).Inc()
}

// Document counts a converted document and its duration.
func (m *Metrics) Document(result string, rows int, elapsed time.Duration) {
	m.documents.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
	if rows > 0 {
		m.rows.Add(float64(rows))
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
