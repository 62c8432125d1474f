package gateway

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utxonet/utxonet/internal/metrics"
	"github.com/utxonet/utxonet/internal/node"
	"github.com/utxonet/utxonet/internal/protocol"
)

// Gateway runs the two network lanes: the socket accept lane handing inbound
// requests to the orchestrator's mailbox, and the send lane draining the
// outbound queue. Neither lane touches ledger state.
type Gateway struct {
	self     protocol.Validator
	log      *zap.Logger
	metrics  *metrics.Metrics
	events   chan<- node.Event
	outbound <-chan node.Outbound
}

// New wires a gateway onto the orchestrator's channels. The self identity is
// only used to stamp protocol-error replies; state stays with the
// orchestrator.
func New(self protocol.Validator, log *zap.Logger, m *metrics.Metrics, events chan<- node.Event, outbound <-chan node.Outbound) *Gateway {
	return &Gateway{self: self, log: log, metrics: m, events: events, outbound: outbound}
}

// Run listens on addr and serves until the context is cancelled.
func (g *Gateway) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return g.Serve(ctx, ln)
}

// Serve drives both lanes over an existing listener.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})
	eg.Go(func() error {
		return g.acceptLoop(ctx, ln)
	})
	eg.Go(func() error {
		return g.sendLoop(ctx)
	})
	return eg.Wait()
}

func (g *Gateway) acceptLoop(ctx context.Context, ln net.Listener) error {
	g.log.Info("listening", zap.String("address", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			g.log.Warn("accept failed", zap.Error(err))
			continue
		}
		go g.handleConn(ctx, conn)
	}
}

// handleConn serves exactly one request/response pair and closes the socket.
func (g *Gateway) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(sendTimeout))

	payload, err := readFrame(conn)
	if err != nil {
		g.log.Warn("dropping unreadable request",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err))
		return
	}
	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		g.log.Warn("undecodable request",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.Error(err))
		// Answer with a protocol error when the envelope still yields an id.
		if id, ok := protocol.PeekRequestID(payload); ok {
			_ = writeResponse(conn, protocol.NewError(id, g.self, err.Error()))
		}
		return
	}
	g.log.Debug("request received",
		zap.String("command", req.Command.CommandName()),
		zap.String("request_id", req.RequestID))

	respCh := make(chan *protocol.Response, 1)
	select {
	case g.events <- node.Event{Request: req, RespCh: respCh}:
	case <-ctx.Done():
		return
	}

	var resp *protocol.Response
	select {
	case resp = <-respCh:
	case <-ctx.Done():
		return
	}
	if err := writeResponse(conn, resp); err != nil {
		g.log.Warn("writing response failed", zap.Error(err))
	}
}

// sendLoop is the outbound queue's single consumer. A transport error drops
// the work item and reports the peer for removal.
func (g *Gateway) sendLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-g.outbound:
			resp, err := Send(out.Peer.Address, out.Request)
			if err != nil {
				g.log.Warn("outbound send failed",
					zap.String("address", out.Peer.Address),
					zap.String("command", out.Request.Command.CommandName()),
					zap.Error(err))
				g.post(ctx, node.Event{Failure: &node.SendFailure{Peer: out.Peer}})
				continue
			}
			g.metrics.OutboundSent.Inc()
			g.post(ctx, node.Event{Reply: &node.ReplyEvent{Outbound: out, Response: resp}})
		}
	}
}

func (g *Gateway) post(ctx context.Context, ev node.Event) {
	select {
	case g.events <- ev:
	case <-ctx.Done():
	}
}
