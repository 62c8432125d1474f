// Package metrics exposes the node's operational counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "utxonet"

// Metrics aggregates the collectors the orchestrator and gateway update.
type Metrics struct {
	RequestsHandled  *prometheus.CounterVec
	DuplicateHits    prometheus.Counter
	OutboundSent     prometheus.Counter
	OutboundFailures prometheus.Counter
	PeersKnown       prometheus.Gauge
	ChainHeight      prometheus.Gauge
}

// New registers the node's collectors with the given registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_handled",
			Help:      "Inbound requests handled, by command",
		}, []string{"command"}),
		DuplicateHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_requests",
			Help:      "Requests acknowledged as already processed",
		}),
		OutboundSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_sent",
			Help:      "Outbound peer requests delivered",
		}),
		OutboundFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_failures",
			Help:      "Outbound peer requests dropped on transport errors",
		}),
		PeersKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers_known",
			Help:      "Validators currently in the peer directory",
		}),
		ChainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "Number of committed blocks",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.RequestsHandled,
		m.DuplicateHits,
		m.OutboundSent,
		m.OutboundFailures,
		m.PeersKnown,
		m.ChainHeight,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewUnregistered builds collectors registered on a fresh private registry
// that nothing exposes, for tests and for nodes that do not expose a metrics
// listener.
func NewUnregistered() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		panic(err)
	}
	return m
}
