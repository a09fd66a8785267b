package webhook

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts webhook traffic and run dispatches.
type Metrics struct {
	events   *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the webhook metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pilot_webhook_events_total",
			Help: "Webhook events received, by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pilot_runs_started_total",
			Help: "Runs dispatched, by trigger source.",
		}, []string{"trigger"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pilot_webhook_response_seconds",
			Help:    "Webhook handler response time.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.events, m.runs, m.duration)
	return m
}

func (m *Metrics) event(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) runStarted(trigger string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger).Inc()
}

func (m *Metrics) observe(seconds float64) {
	if m == nil {
		return
	}
	m.duration.Observe(seconds)
}
