package channel

import "github.com/prometheus/client_golang/prometheus"

// metricsCollector wires a Channel's lifecycle into Prometheus gauges
// and counters, modeled on the counter-per-concern style of
// network/metrics.go but instance-scoped rather than global: callers
// enabling WithMetrics must pass a namespace unique to this channel
// (e.g. derived from its fsmID) since each collector registers its own
// metric family instances with prometheus.DefaultRegisterer.
type metricsCollector struct {
	round             prometheus.Gauge
	pendingActions    prometheus.Gauge
	statusTransitions prometheus.Counter
	state             *prometheus.GaugeVec
}

func newMetricsCollector(namespace string) *metricsCollector {
	m := &metricsCollector{
		round: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "round",
			Help:      "current off-chain round of the channel",
		}),
		pendingActions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_actions",
			Help:      "number of caller actions queued behind the one currently in flight",
		}),
		statusTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "count of public Status transitions observed on the channel",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fsm_state",
			Help:      "1 for the fsmState the channel currently occupies, 0 otherwise",
		}, []string{"state"}),
	}

	prometheus.MustRegister(m.round, m.pendingActions, m.statusTransitions, m.state)

	return m
}

// observeState sets the fsm_state gauge vector so that exactly one
// label value reads 1 at a time.
func (m *metricsCollector) observeState(s fsmState) {
	m.state.Reset()
	m.state.WithLabelValues(s.String()).Set(1)
}
