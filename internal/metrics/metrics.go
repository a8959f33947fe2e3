// Package metrics exposes the panel's Prometheus collectors.
//
// Registers:
//
//	oraclepanel_events_total{kind,outcome}
//	oraclepanel_submissions_total{op,outcome}
//	oraclepanel_session_restarts_total
//	oraclepanel_mirror_read_errors_total{section}
//	oraclepanel_account_alerts_total
//	go_* and process_* system metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oracle-panel/internal/contract"
)

const namespace = "oraclepanel"

// Submission outcomes.
const (
	OutcomeSent     = "sent"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the panel collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	restarts      prometheus.Counter
	readErrors    *prometheus.CounterVec
	accountAlerts prometheus.Counter
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Contract events by kind and whether they were admitted or dropped as duplicates",
		}, []string{"kind", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Mutation operations by outcome",
		}, []string{"op", "outcome"}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_restarts_total",
			Help:      "Sessions started, including account switches",
		}),
		readErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_read_errors_total",
			Help:      "Failed contract reads by mirror section",
		}, []string{"section"}),
		accountAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_alerts_total",
			Help:      "Wallet connection required alerts raised",
		}),
	}
	m.registry.MustRegister(
		m.events, m.submissions, m.restarts, m.readErrors, m.accountAlerts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventAdmitted(kind contract.EventKind) {
	m.events.WithLabelValues(string(kind), "admitted").Inc()
}

func (m *Metrics) EventDuplicate(kind contract.EventKind) {
	m.events.WithLabelValues(string(kind), "duplicate").Inc()
}

// Submission counts one mutation attempt.
func (m *Metrics) Submission(op, outcome string) {
	m.submissions.WithLabelValues(op, outcome).Inc()
}

// SessionStarted counts a session start.
func (m *Metrics) SessionStarted() {
	m.restarts.Inc()
}

// ReadFailed counts a failed mirror section read.
func (m *Metrics) ReadFailed(section string) {
	m.readErrors.WithLabelValues(section).Inc()
}

// AccountAlert counts a wallet connection alert.
func (m *Metrics) AccountAlert() {
	m.accountAlerts.Inc()
}
