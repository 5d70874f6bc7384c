package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters.
type Metrics struct {
	Logins    *prometheus.CounterVec
	Summaries *prometheus.CounterVec
	Scans     *prometheus.CounterVec
	Processed *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "attendance_summaries_total",
			Help:      "Attendance summaries computed, by form.",
		}, []string{"form"}),
		Scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "attendance_scans_total",
			Help:      "Attendance pass scans by outcome.",
		}, []string{"outcome"}),
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erp",
			Name:      "queue_messages_processed_total",
			Help:      "Queue messages handled by the worker, by type.",
		}, []string{"type"}),
	}
	reg.MustRegister(m.Logins, m.Summaries, m.Scans, m.Processed)
	return m
}
