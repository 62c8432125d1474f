// Package validator assembles a full node: runtime state, orchestrator,
// gateway lanes, and the optional metrics listener.
package validator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utxonet/utxonet/internal/config"
	"github.com/utxonet/utxonet/internal/gateway"
	"github.com/utxonet/utxonet/internal/ledger"
	"github.com/utxonet/utxonet/internal/metrics"
	"github.com/utxonet/utxonet/internal/node"
	"github.com/utxonet/utxonet/internal/peer"
	"github.com/utxonet/utxonet/internal/protocol"
)

// mailboxDepth buffers the orchestrator's mailbox and the outbound queue.
// Generous buffers keep the mailbox/queue cycle between the lanes from
// wedging under fan-out bursts.
const mailboxDepth = 1024

// Node is one running validator.
type Node struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	orch    *node.Orchestrator
	// registry is kept only when a metrics listener is configured.
	registry *prometheus.Registry
}

// New builds a node from its configuration. The chain starts from the
// configured genesis output; nothing is loaded from disk.
func New(cfg config.Config, log *zap.Logger) (*Node, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	genesis := ledger.GenesisOutput(cfg.GenesisKey, cfg.GenesisAmount)
	chain := ledger.NewChain(genesis)
	dir := peer.NewDirectory(peer.Validator{
		PublicKey: cfg.PublicKey,
		Address:   cfg.Address(),
	})
	state, err := node.NewRuntimeState(chain, dir, cfg.PrivateKey, cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:     cfg,
		log:     log,
		metrics: m,
		orch:    node.NewOrchestrator(state, log, m),
	}
	if cfg.MetricsPort > 0 {
		n.registry = registry
	}
	return n, nil
}

// Run serves until the context is cancelled. All lanes share the error
// group; the first failure tears the node down.
func (n *Node) Run(ctx context.Context) error {
	events := make(chan node.Event, mailboxDepth)
	outbound := make(chan node.Outbound, mailboxDepth)

	self := protocol.NewValidator(n.cfg.Address(), n.cfg.PublicKey)
	gw := gateway.New(self, n.log, n.metrics, events, outbound)

	// Queue the bootstrap on-boarding before the lanes start, while this
	// goroutine is still the only one touching the runtime state.
	for _, out := range n.orch.Bootstrap(n.cfg.RemoteValidator) {
		outbound <- out
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := n.orch.Run(ctx, events, outbound)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		return gw.Run(ctx, n.cfg.Address())
	})
	if n.registry != nil {
		eg.Go(func() error {
			return n.serveMetrics(ctx)
		})
	}

	n.log.Info("validator running",
		zap.String("address", n.cfg.Address()),
		zap.String("remote_validator", n.cfg.RemoteValidator))
	return eg.Wait()
}

func (n *Node) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.MetricsPort),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
