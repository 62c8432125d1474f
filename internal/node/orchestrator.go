package node

import (
	"context"

	"go.uber.org/zap"

	"github.com/utxonet/utxonet/internal/metrics"
	"github.com/utxonet/utxonet/internal/peer"
	"github.com/utxonet/utxonet/internal/protocol"
)

// Outbound is one queued unit of peer work: a request and the peer to send
// it to.
type Outbound struct {
	Peer    peer.Validator
	Request *protocol.Request
}

// Event is one item on the orchestrator's mailbox. Exactly one of the three
// fields groups is set: an inbound request with its reply channel, a reply to
// an earlier outbound request, or a send failure.
type Event struct {
	Request *protocol.Request
	RespCh  chan<- *protocol.Response

	Reply *ReplyEvent

	Failure *SendFailure
}

// ReplyEvent re-enters the state machine when a peer answers an outbound
// request.
type ReplyEvent struct {
	Outbound Outbound
	Response *protocol.Response
}

// SendFailure reports a transport error on an outbound send; the peer is
// removed from the directory.
type SendFailure struct {
	Peer peer.Validator
}

// Orchestrator drives the state machine. It is the sole writer of the
// RuntimeState; all of its methods run on a single goroutine.
type Orchestrator struct {
	state   *RuntimeState
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewOrchestrator wires the state machine up.
func NewOrchestrator(state *RuntimeState, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{state: state, log: log, metrics: m}
}

// Bootstrap returns the work queued at start-up: one on-boarding request to
// the configured remote validator, if any.
func (o *Orchestrator) Bootstrap(remoteValidator string) []Outbound {
	if remoteValidator == "" {
		return nil
	}
	self := o.state.Directory.Self()
	bootstrap := peer.Validator{Address: remoteValidator}
	o.state.Directory.AddMany([]peer.Validator{bootstrap})
	req := protocol.NewRequest(o.state.SelfWire(), protocol.OnBoardValidator{
		PublicKey:     self.PublicKey,
		ReturnAddress: self.Address,
	})
	return []Outbound{{Peer: bootstrap, Request: req}}
}

// HandleRequest produces exactly one response and zero or more outbound work
// items for an inbound request. A request id seen before is acknowledged with
// Nothing and produces no further work.
func (o *Orchestrator) HandleRequest(req *protocol.Request) (*protocol.Response, []Outbound) {
	self := o.state.SelfWire()
	if o.state.markProcessed(req.RequestID) {
		o.metrics.DuplicateHits.Inc()
		o.log.Debug("duplicate request acknowledged", zap.String("request_id", req.RequestID))
		return protocol.NewSuccess(req.RequestID, self, protocol.Nothing{}), nil
	}

	o.metrics.RequestsHandled.WithLabelValues(req.Command.CommandName()).Inc()

	var (
		resp protocol.CommandResponse
		outs []Outbound
		err  error
	)
	switch o.state.State {
	case StartUp:
		resp, outs, err = o.dispatch(req)
	default:
		resp, outs, err = nil, nil, errNotAvailable(o.state.State)
	}
	o.observeGauges()
	if err != nil {
		o.log.Warn("request failed",
			zap.String("command", req.Command.CommandName()),
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		return protocol.NewError(req.RequestID, self, err.Error()), nil
	}
	return protocol.NewSuccess(req.RequestID, self, resp), outs
}

// HandleSendFailure drops the failed peer from the directory. A single
// transport failure suffices in this generation. A keyless bootstrap
// placeholder is not removed: the failure is counted and logged, and the
// placeholder stays in the directory.
func (o *Orchestrator) HandleSendFailure(f SendFailure) {
	o.metrics.OutboundFailures.Inc()
	if f.Peer.PublicKey == "" {
		o.log.Warn("send to bootstrap peer failed", zap.String("address", f.Peer.Address))
		return
	}
	if o.state.Directory.Remove(f.Peer.PublicKey) {
		o.log.Warn("peer removed after send failure",
			zap.String("address", f.Peer.Address),
			zap.Int("peers_left", o.state.Directory.Len()))
	}
	o.observeGauges()
}

func (o *Orchestrator) observeGauges() {
	o.metrics.PeersKnown.Set(float64(o.state.Directory.Len()))
	o.metrics.ChainHeight.Set(float64(o.state.Chain.Length()))
}

// Run pops the mailbox and reacts until the context is cancelled. This is the
// single writer: nothing else touches the RuntimeState while it runs.
func (o *Orchestrator) Run(ctx context.Context, events <-chan Event, outbound chan<- Outbound) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			var outs []Outbound
			switch {
			case ev.Request != nil:
				resp, reqOuts := o.HandleRequest(ev.Request)
				outs = reqOuts
				select {
				case ev.RespCh <- resp:
				case <-ctx.Done():
					return ctx.Err()
				}
			case ev.Reply != nil:
				outs = o.HandleReply(ev.Reply.Outbound, ev.Reply.Response)
			case ev.Failure != nil:
				o.HandleSendFailure(*ev.Failure)
			}
			for _, out := range outs {
				select {
				case outbound <- out:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
