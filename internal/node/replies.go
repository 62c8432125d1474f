package node

import (
	"go.uber.org/zap"

	"github.com/utxonet/utxonet/internal/ledger"
	"github.com/utxonet/utxonet/internal/peer"
	"github.com/utxonet/utxonet/internal/protocol"
)

// HandleReply re-enters the state machine when a peer answers an outbound
// request. An error body is logged and dropped; only the send path, never the
// reply path, removes peers. A reply whose variant does not match the pending
// request is a protocol mismatch: logged and dropped.
func (o *Orchestrator) HandleReply(out Outbound, resp *protocol.Response) []Outbound {
	if resp.Body.Err != nil {
		o.log.Error("peer answered with error",
			zap.String("command", out.Request.Command.CommandName()),
			zap.String("request_id", out.Request.RequestID),
			zap.String("msg", resp.Body.Err.Msg))
		return nil
	}

	var outs []Outbound
	switch r := resp.Body.Success.(type) {
	case protocol.OnBoardValidatorResponse:
		if _, ok := out.Request.Command.(protocol.OnBoardValidator); !ok {
			return o.mismatch(out, resp)
		}
		outs = o.handleOnBoardReply(resp.Replier, r)

	case protocol.RequestTransactionValidationResponse:
		if _, ok := out.Request.Command.(protocol.RequestTransactionValidation); !ok {
			return o.mismatch(out, resp)
		}
		outs = o.handleValidationReply(resp.Replier, r)

	case protocol.RequestSynchronizationResponse:
		if _, ok := out.Request.Command.(protocol.RequestSynchronization); !ok {
			return o.mismatch(out, resp)
		}
		outs = o.handleSynchronizationReply(resp.Replier, r)

	case protocol.FullySynchronizedResponse:
		// Catch-up finished; nothing left to pull.

	case protocol.SynchronizeBlockchainResponse, protocol.Nothing:
		// Plain acknowledgements.

	default:
		return o.mismatch(out, resp)
	}
	o.observeGauges()
	return outs
}

func (o *Orchestrator) mismatch(out Outbound, resp *protocol.Response) []Outbound {
	name := "Error"
	if resp.Body.Success != nil {
		name = resp.Body.Success.ResponseName()
	}
	o.log.Error("unexpected reply variant",
		zap.String("command", out.Request.Command.CommandName()),
		zap.String("reply", name),
		zap.String("request_id", out.Request.RequestID))
	return nil
}

// handleOnBoardReply adopts the cluster view the remote returned and starts
// catching up if its tip differs from ours.
func (o *Orchestrator) handleOnBoardReply(replier protocol.Validator, r protocol.OnBoardValidatorResponse) []Outbound {
	var adopted []peer.Validator
	for _, v := range r.Validators {
		p, err := v.Peer()
		if err != nil {
			continue
		}
		adopted = append(adopted, p)
	}
	added := o.state.Directory.AddMany(adopted)
	o.log.Info("cluster view adopted",
		zap.Int("returned", len(r.Validators)),
		zap.Int("added", added),
		zap.Int("total_validators", o.state.Directory.Len()))

	tip, err := o.state.Chain.TipHash()
	if err != nil {
		o.log.Error("local chain is broken", zap.Error(err))
		return nil
	}
	if r.BlockchainTip == tip {
		return nil
	}
	target, err := replier.Peer()
	if err != nil {
		o.log.Error("replier carries no address, cannot synchronize", zap.String("pub", ledger.Shorten(string(replier.PublicKey))))
		return nil
	}
	req := protocol.NewRequest(o.state.SelfWire(), protocol.RequestSynchronization{BlockchainTip: tip})
	return []Outbound{{Peer: target, Request: req}}
}

// handleValidationReply folds the replier's co-signature into the tip block
// and spreads it to the rest of the fleet.
func (o *Orchestrator) handleValidationReply(replier protocol.Validator, r protocol.RequestTransactionValidationResponse) []Outbound {
	vote := ledger.ValidatorSignature{
		ValidatorPublicKey: r.ValidatorPublicKey,
		ValidatorSignature: r.ValidatorSignature,
	}
	if err := o.state.Chain.AddVote(r.NewBlockchainTip, vote); err != nil {
		o.log.Error("vote targets an unknown block",
			zap.String("hash", r.NewBlockchainTip),
			zap.Error(err))
		return nil
	}
	o.log.Info("validation added",
		zap.String("hash", r.NewBlockchainTip),
		zap.String("validator", ledger.Shorten(string(r.ValidatorPublicKey))))

	synchronize := protocol.SynchronizeBlockchain{
		Signatures: []protocol.ValidatorWithSignature{{
			Validator: replier,
			Signature: r.ValidatorSignature,
		}},
		TransactionCbor:                r.TransactionCbor,
		BlockchainTipBeforeTransaction: r.OldBlockchainTip,
		BlockchainTipAfterTransaction:  r.NewBlockchainTip,
	}
	var outs []Outbound
	for _, p := range o.state.Directory.List() {
		if p.PublicKey == replier.PublicKey {
			continue
		}
		outs = append(outs, Outbound{
			Peer:    p,
			Request: protocol.NewRequest(o.state.SelfWire(), synchronize),
		})
	}
	return outs
}

// handleSynchronizationReply applies one fetched block and keeps pulling. Any
// check that fails abandons the catch-up silently; no retry is queued.
func (o *Orchestrator) handleSynchronizationReply(replier protocol.Validator, r protocol.RequestSynchronizationResponse) []Outbound {
	tip, err := o.state.Chain.TipHash()
	if err != nil {
		o.log.Error("local chain is broken", zap.Error(err))
		return nil
	}
	if r.PreviousHash != tip {
		o.log.Debug("synchronization block does not extend our tip",
			zap.String("previous_hash", r.PreviousHash),
			zap.String("tip", tip))
		return nil
	}

	tx, err := ledger.DecodeSignedTransaction(r.TransactionCbor)
	if err != nil {
		o.log.Debug("synchronization payload undecodable", zap.Error(err))
		return nil
	}
	if len(r.Signatures) == 0 {
		o.log.Debug("synchronization block carries no elected signature")
		return nil
	}
	// The first signature is the elected one; it is part of the block's
	// identity and must be adopted verbatim for the hash to recompute.
	elected := ledger.ValidatorSignature{
		ValidatorPublicKey: r.Signatures[0].Validator.PublicKey,
		ValidatorSignature: r.Signatures[0].Signature,
	}
	block, err := o.state.Chain.BuildBlockWithElected(tx, elected)
	if err != nil {
		o.log.Debug("synchronization block rejected", zap.Error(err))
		return nil
	}
	if block.Hash != r.NextHash {
		o.log.Debug("synchronization hash mismatch",
			zap.String("built", block.Hash),
			zap.String("expected", r.NextHash))
		return nil
	}
	o.state.Chain.Append(block)
	for _, s := range r.Signatures[1:] {
		block.AddVote(ledger.ValidatorSignature{
			ValidatorPublicKey: s.Validator.PublicKey,
			ValidatorSignature: s.Signature,
		})
	}
	attestation, err := ledger.Attest(o.state.PrivateKey, tx)
	if err != nil {
		o.log.Error("attesting caught-up block", zap.Error(err))
		return nil
	}
	block.AddVote(attestation)
	o.log.Info("caught up one block", zap.String("hash", block.Hash))

	target, err := replier.Peer()
	if err != nil {
		return nil
	}
	self := o.state.SelfWire()
	return []Outbound{
		{
			Peer: target,
			Request: protocol.NewRequest(self, protocol.AddValidatorSignature{
				Hash: block.Hash,
				ValidatorSignature: protocol.ValidatorWithSignature{
					Validator: self,
					Signature: attestation.ValidatorSignature,
				},
			}),
		},
		{
			Peer:    target,
			Request: protocol.NewRequest(self, protocol.RequestSynchronization{BlockchainTip: block.Hash}),
		},
	}
}
