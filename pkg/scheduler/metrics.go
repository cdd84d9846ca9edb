package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jediknight00/apollo/pkg/croutine"
)

// Metrics holds the scheduler's prometheus collectors.
type Metrics struct {
	Dispatched prometheus.Counter
	Notified   prometheus.Counter
	Executed   *prometheus.CounterVec
	Processors prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which lets several schedulers coexist in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cyber",
			Subsystem: "sched",
			Name:      "dispatched_total",
			Help:      "Routines placed into a processor context.",
		}),
		Notified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cyber",
			Subsystem: "sched",
			Name:      "notified_total",
			Help:      "Notifications delivered to a known routine.",
		}),
		Executed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cyber",
			Subsystem: "sched",
			Name:      "executed_total",
			Help:      "Routine body runs, by result.",
		}, []string{"result"}),
		Processors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cyber",
			Subsystem: "sched",
			Name:      "processors",
			Help:      "Processors owned by the scheduler.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Dispatched, m.Notified, m.Executed, m.Processors)
	}
	return m
}

func (m *Metrics) observeRun(res croutine.Result) {
	m.Executed.WithLabelValues(res.String()).Inc()
}
