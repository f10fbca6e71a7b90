package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sign-in outcome labels.
const (
	signInSuccess    = "success"
	signInRejected   = "rejected"
	signInTransport  = "transport_error"
	signInIncomplete = "incomplete_response"
	signInPersist    = "persist_error"
)

// Metrics exposes session counters. A nil *Metrics records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	signIns       *prometheus.CounterVec
	invalidations prometheus.Counter
	present       prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketspace",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketspace",
			Subsystem: "session",
			Name:      "sign_ins_total",
			Help:      "Sign-in attempts by outcome.",
		}, []string{"result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketspace",
			Subsystem: "session",
			Name:      "invalidations_total",
			Help:      "Sessions torn down by the transport's invalidation signal.",
		}),
		present: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marketspace",
			Subsystem: "session",
			Name:      "present",
			Help:      "1 while a session is present.",
		}),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.signIns, m.invalidations, m.present} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) transition(from, to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	if to == StatePresent {
		m.present.Set(1)
	} else {
		m.present.Set(0)
	}
}

func (m *Metrics) signIn(result string) {
	if m == nil {
		return
	}
	m.signIns.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidated() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}
