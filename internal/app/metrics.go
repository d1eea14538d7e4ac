package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"canister"
)

// containerMetrics counts container lifecycle events, so wiring activity
// shows up on /metrics next to the HTTP traffic.
type containerMetrics struct {
	events *prometheus.CounterVec
}

func newContainerMetrics(reg prometheus.Registerer) *containerMetrics {
	m := &containerMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "container_events_total",
			Help: "Container lifecycle events by kind and outcome.",
		}, []string{"event", "outcome"}),
	}
	reg.MustRegister(m.events)
	return m
}

// LogEvent implements canister.Logger.
func (m *containerMetrics) LogEvent(e canister.Event) {
	var kind string
	var err error
	switch ev := e.(type) {
	case canister.ProvidedEvent:
		kind = "provided"
	case canister.ResolvedEvent:
		kind, err = "resolved", ev.Err
	case canister.StartedEvent:
		kind, err = "started", ev.Err
	case canister.StoppedEvent:
		kind, err = "stopped", ev.Err
	case canister.ScopeCreatedEvent:
		kind = "scope_created"
	case canister.ScopeClosedEvent:
		kind, err = "scope_closed", ev.Err
	default:
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.events.WithLabelValues(kind, outcome).Inc()
}
