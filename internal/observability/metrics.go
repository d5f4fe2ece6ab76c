package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles Prometheus collectors for the companion daemon.
type Metrics struct {
	registry       *prometheus.Registry
	FramesDecoded  *prometheus.CounterVec
	TurnsCompleted prometheus.Counter
	TurnsTimedOut  prometheus.Counter
	SyncRuns       *prometheus.CounterVec
	StatPushes     *prometheus.CounterVec
	TransportEvts  *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with companion collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	frames := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_frames_decoded_total",
		Help: "Wire frames decoded, by kind",
	}, []string{"kind"})

	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "companion_turns_completed_total",
		Help: "Assistant turns committed",
	})

	timedOut := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "companion_turns_timed_out_total",
		Help: "Assistant turns expired by the stall watchdog",
	})

	syncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_sync_runs_total",
		Help: "Server reconciliation runs, by outcome",
	}, []string{"outcome"})

	pushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_stat_pushes_total",
		Help: "Optimistic stat pushes to the agent, by outcome",
	}, []string{"outcome"})

	transport := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_transport_events_total",
		Help: "Transport lifecycle events, by event",
	}, []string{"event"})

	reg.MustRegister(frames, completed, timedOut, syncs, pushes, transport)

	return &Metrics{
		registry:       reg,
		FramesDecoded:  frames,
		TurnsCompleted: completed,
		TurnsTimedOut:  timedOut,
		SyncRuns:       syncs,
		StatPushes:     pushes,
		TransportEvts:  transport,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordFrame counts one decoded frame.
func (m *Metrics) RecordFrame(kind string) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(kind).Inc()
}

// RecordTurnCompleted counts a committed turn.
func (m *Metrics) RecordTurnCompleted() {
	if m == nil {
		return
	}
	m.TurnsCompleted.Inc()
}

// RecordTurnTimedOut counts a watchdog-expired turn.
func (m *Metrics) RecordTurnTimedOut() {
	if m == nil {
		return
	}
	m.TurnsTimedOut.Inc()
}

// RecordSync counts one reconciliation run.
func (m *Metrics) RecordSync(outcome string) {
	if m == nil {
		return
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
}

// RecordStatPush counts one stat sync attempt.
func (m *Metrics) RecordStatPush(outcome string) {
	if m == nil {
		return
	}
	m.StatPushes.WithLabelValues(outcome).Inc()
}

// RecordTransportEvent counts a transport lifecycle event.
func (m *Metrics) RecordTransportEvent(event string) {
	if m == nil {
		return
	}
	m.TransportEvts.WithLabelValues(event).Inc()
}
