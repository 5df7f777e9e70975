package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuwe/site-forms/internal/notify"
)

// Metrics holds the submission counters on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	submissions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewMetrics registers the submission counters plus Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_forms_submissions_total",
			Help: "Form submissions by flow and outcome.",
		}, []string{"flow", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_forms_notifications_total",
			Help: "Contact notifications by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.submissions,
		m.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
//
//	GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) observeSubmission(flow, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) observeNotification(s notify.Status) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(s.String()).Inc()
}
