// Package metrics exposes review engine and server measurements to
// Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agentstation/sheetreview"
)

const namespace = "sheetreview"

var _ sheetreview.Recorder = (*Metrics)(nil)

// Metrics holds the collectors of one process. It implements
// sheetreview.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	saves        *prometheus.CounterVec
	saveDuration *prometheus.HistogramVec
	conflicts    *prometheus.CounterVec
	viewers      prometheus.Gauge
	events       *prometheus.CounterVec
	requests     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll ticks by result (ok, error, skipped)",
		}, []string{"result"}),
		pollDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of table fetches",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Annotation saves by result (ok, error, conflict)",
		}, []string{"result"}),
		saveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "save_duration_seconds",
			Help:      "Duration of annotation saves including the pre-write read",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
		conflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Conflicts raised, by the operation that detected them",
		}, []string{"source"}),
		viewers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers",
			Help:      "Open review sessions",
		}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to realtime subscribers",
		}, []string{"type"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status class",
		}, []string{"method", "code"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PollCompleted implements sheetreview.Recorder.
func (m *Metrics) PollCompleted(result string, d time.Duration) {
	m.polls.WithLabelValues(result).Inc()
	if result != sheetreview.ResultSkipped {
		m.pollDuration.WithLabelValues(result).Observe(d.Seconds())
	}
}

// SaveCompleted implements sheetreview.Recorder.
func (m *Metrics) SaveCompleted(result string, d time.Duration) {
	m.saves.WithLabelValues(result).Inc()
	m.saveDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ConflictRaised implements sheetreview.Recorder.
func (m *Metrics) ConflictRaised(source string) {
	m.conflicts.WithLabelValues(source).Inc()
}

// ViewerOpened increments the open session gauge.
func (m *Metrics) ViewerOpened() { m.viewers.Inc() }

// ViewerClosed decrements the open session gauge.
func (m *Metrics) ViewerClosed() { m.viewers.Dec() }

// EventPublished counts an event sent to realtime subscribers.
func (m *Metrics) EventPublished(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

// RequestServed counts an HTTP response by its status class ("2xx").
func (m *Metrics) RequestServed(method string, status int) {
	m.requests.WithLabelValues(method, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
