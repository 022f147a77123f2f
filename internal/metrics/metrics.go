// Package metrics collects the Prometheus counters the controller
// exposes for its own operation: edges recorded, reconcile actions, gate
// outcomes, and observer reconnects. None of these feed into control
// flow; they exist purely for operators.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the controller registers.
type Metrics struct {
	EdgesRecorded     prometheus.Counter
	ReconcileActions  *prometheus.CounterVec
	GateFailures      prometheus.Counter
	GateWarnings      prometheus.Counter
	ObserverReconnects prometheus.Counter
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EdgesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cntrl",
			Name:      "edges_recorded_total",
			Help:      "Total number of in-scope flows the observer passed to the edge store, counting repeats of already-known edges.",
		}),
		ReconcileActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cntrl",
			Name:      "reconcile_actions_total",
			Help:      "Total number of create/patch/delete actions applied to CiliumNetworkPolicy objects.",
		}, []string{"verb"}),
		GateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cntrl",
			Name:      "gate_failures_total",
			Help:      "Total number of ticks where the safety gate refused to reconcile.",
		}),
		GateWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cntrl",
			Name:      "gate_warnings_total",
			Help:      "Total number of safety gate warnings emitted across all ticks.",
		}),
		ObserverReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cntrl",
			Name:      "observer_reconnects_total",
			Help:      "Total number of times the flow observer reconnected after a stream error.",
		}),
	}

	reg.MustRegister(m.EdgesRecorded, m.ReconcileActions, m.GateFailures, m.GateWarnings, m.ObserverReconnects)
	return m
}

// IncEdgesRecorded increments the edges-recorded counter.
func (m *Metrics) IncEdgesRecorded() { m.EdgesRecorded.Inc() }

// IncObserverReconnect increments the observer-reconnect counter.
func (m *Metrics) IncObserverReconnect() { m.ObserverReconnects.Inc() }

// IncReconcileAction increments the reconcile-actions counter for verb
// (one of "create", "patch", "delete").
func (m *Metrics) IncReconcileAction(verb string) { m.ReconcileActions.WithLabelValues(verb).Inc() }

// IncGateFailure increments the gate-failures counter.
func (m *Metrics) IncGateFailure() { m.GateFailures.Inc() }

// AddGateWarnings adds n to the gate-warnings counter.
func (m *Metrics) AddGateWarnings(n int) { m.GateWarnings.Add(float64(n)) }
