package echoapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	assignments   prometheus.Counter
	deletions     prometheus.Counter
}

// newMetrics uses its own registry so that every Server exposes only its counters.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ktx",
			Name:      "registrations_total",
			Help:      "Student registrations by result (created, updated, rejected).",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ktx",
			Name:      "logins_total",
			Help:      "Login attempts by kind (student, admin) and result (success, failure).",
		}, []string{"kind", "result"}),
		assignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ktx",
			Name:      "room_assignments_total",
			Help:      "Students given a room by the round-robin assignment.",
		}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ktx",
			Name:      "student_deletions_total",
			Help:      "Students deleted by an admin.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.logins,
		m.assignments,
		m.deletions,
	)
	return m
}

func (m *metrics) login(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.logins.WithLabelValues(kind, result).Inc()
}
