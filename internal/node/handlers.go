package node

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/utxonet/utxonet/internal/crypto"
	"github.com/utxonet/utxonet/internal/ledger"
	"github.com/utxonet/utxonet/internal/peer"
	"github.com/utxonet/utxonet/internal/protocol"
)

func errNotAvailable(s ValidatorState) error {
	return fmt.Errorf("validator state %s does not accept requests", s)
}

// dispatch pattern-matches the closed command union. Every arm mutates state
// only through the chain and directory the orchestrator owns.
func (o *Orchestrator) dispatch(req *protocol.Request) (protocol.CommandResponse, []Outbound, error) {
	switch cmd := req.Command.(type) {
	case protocol.Ping:
		return protocol.PingResponse{Msg: fmt.Sprintf("Original message: %s, PONG PONG", cmd.Msg)}, nil, nil

	case protocol.GenerateWallet:
		priv, pub, err := crypto.GenerateWallet()
		if err != nil {
			return nil, nil, err
		}
		return protocol.GenerateWalletResponse{PrivateKey: priv, PublicKey: pub}, nil, nil

	case protocol.PrintBalances:
		entries := o.state.Chain.Balances()
		balances := make([]protocol.BalancePair, 0, len(entries))
		for _, e := range entries {
			balances = append(balances, protocol.BalancePair{
				Address: ledger.Shorten(string(e.Address)),
				Amount:  e.Amount,
			})
		}
		return protocol.PrintBalancesResponse{Balances: balances}, nil, nil

	case protocol.PrintValidators:
		peers := o.state.Directory.List()
		validators := make([]protocol.Validator, 0, len(peers))
		for _, p := range peers {
			validators = append(validators, protocol.FromPeer(p))
		}
		return protocol.PrintValidatorsResponse{Validators: validators}, nil, nil

	case protocol.PrintBlockchain:
		return protocol.PrintBlockchainResponse{Blocks: o.state.Chain.Describe()}, nil, nil

	case protocol.BalanceTransaction:
		return o.handleBalanceTransaction(req, cmd)

	case protocol.CommitTransaction:
		return o.handleCommitTransaction(req, cmd)

	case protocol.OnBoardValidator:
		return o.handleOnBoardValidator(req, cmd)

	case protocol.RequestTransactionValidation:
		return o.handleRequestTransactionValidation(cmd)

	case protocol.SynchronizeBlockchain:
		return o.handleSynchronizeBlockchain(cmd)

	case protocol.RequestSynchronization:
		return o.handleRequestSynchronization(cmd)

	case protocol.AddValidatorSignature:
		err := o.state.Chain.AddVote(cmd.Hash, ledger.ValidatorSignature{
			ValidatorPublicKey: cmd.ValidatorSignature.Validator.PublicKey,
			ValidatorSignature: cmd.ValidatorSignature.Signature,
		})
		if err != nil {
			return nil, nil, err
		}
		return protocol.Nothing{}, nil, nil

	case protocol.BlockchainTip:
		tip, err := o.state.Chain.TipHash()
		if err != nil {
			return nil, nil, err
		}
		return protocol.BlockchainTipResponse{BlockchainTipHash: tip}, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, req.Command.CommandName())
	}
}

func (o *Orchestrator) handleBalanceTransaction(req *protocol.Request, cmd protocol.BalanceTransaction) (protocol.CommandResponse, []Outbound, error) {
	tx, err := o.state.Chain.BalanceTransaction(crypto.PublicKey(cmd.From), crypto.PublicKey(cmd.To), cmd.Amount)
	if err != nil {
		return nil, nil, err
	}
	encoded, err := tx.Encode()
	if err != nil {
		return nil, nil, err
	}
	body, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return protocol.BalanceTransactionResponse{
		RequestID: req.RequestID,
		Body:      string(body),
		Cbor:      encoded,
	}, nil, nil
}

func (o *Orchestrator) handleCommitTransaction(req *protocol.Request, cmd protocol.CommitTransaction) (protocol.CommandResponse, []Outbound, error) {
	previousTip, err := o.state.Chain.TipHash()
	if err != nil {
		return nil, nil, err
	}
	tx, err := ledger.DecodeSignedTransaction(cmd.SignedTransactionCbor)
	if err != nil {
		return nil, nil, err
	}
	block, err := o.state.Chain.Commit(tx, o.state.PrivateKey)
	if err != nil {
		return nil, nil, err
	}

	self := o.state.SelfWire()
	var outs []Outbound
	for _, p := range o.state.Directory.List() {
		validation := protocol.RequestTransactionValidation{
			BlockchainPreviousTip: previousTip,
			BlockchainNewTip:      block.Hash,
			TransactionCbor:       cmd.SignedTransactionCbor,
			ValidatorSignature: protocol.ValidatorWithSignature{
				Validator: self,
				Signature: block.Elected.ValidatorSignature,
			},
			Validator: self,
		}
		outs = append(outs, Outbound{
			Peer:    p,
			Request: protocol.NewRequest(self, validation).WithParent(req.RequestID),
		})
	}
	return protocol.CommitTransactionResponse{BlockchainHash: block.Hash}, outs, nil
}

func (o *Orchestrator) handleOnBoardValidator(req *protocol.Request, cmd protocol.OnBoardValidator) (protocol.CommandResponse, []Outbound, error) {
	self := o.state.SelfWire()

	// Fan out to the peers that were already known, retaining the original
	// request id so the dedup set stops the broadcast from looping back.
	var outs []Outbound
	for _, p := range o.state.Directory.List() {
		outs = append(outs, Outbound{
			Peer:    p,
			Request: protocol.NewRequestWithID(self, cmd, req.RequestID),
		})
	}

	o.state.Directory.AddMany([]peer.Validator{{
		PublicKey: cmd.PublicKey,
		Address:   cmd.ReturnAddress,
	}})
	o.log.Info("validator on-boarded",
		zap.String("address", cmd.ReturnAddress),
		zap.Int("total_validators", o.state.Directory.Len()))

	all := make([]protocol.Validator, 0, o.state.Directory.Len()+1)
	for _, p := range o.state.Directory.List() {
		all = append(all, protocol.FromPeer(p))
	}
	all = append(all, self)

	tip, err := o.state.Chain.TipHash()
	if err != nil {
		return nil, nil, err
	}
	return protocol.OnBoardValidatorResponse{
		OnBoardingValidator: protocol.NewValidator(cmd.ReturnAddress, cmd.PublicKey),
		Validators:          all,
		BlockchainTip:       tip,
	}, outs, nil
}

func (o *Orchestrator) handleRequestTransactionValidation(cmd protocol.RequestTransactionValidation) (protocol.CommandResponse, []Outbound, error) {
	tip, err := o.state.Chain.TipHash()
	if err != nil {
		return nil, nil, err
	}
	if cmd.BlockchainPreviousTip != tip {
		return nil, nil, fmt.Errorf("transaction can't be applied for blockchains are not in sync: %s != %s",
			cmd.BlockchainPreviousTip, tip)
	}

	tx, err := ledger.DecodeSignedTransaction(cmd.TransactionCbor)
	if err != nil {
		return nil, nil, err
	}
	// The elected signature is part of the block's identity: rebuilding the
	// sender's exact block takes the sender's signature, not a fresh one.
	elected := ledger.ValidatorSignature{
		ValidatorPublicKey: cmd.Validator.PublicKey,
		ValidatorSignature: cmd.ValidatorSignature.Signature,
	}
	block, err := o.state.Chain.BuildBlockWithElected(tx, elected)
	if err != nil {
		return nil, nil, err
	}
	if block.Hash != cmd.BlockchainNewTip {
		// The chain is left untouched: nothing was appended yet.
		return nil, nil, fmt.Errorf("blockchain hash is different, possibility of a hard fork: %s != %s",
			block.Hash, cmd.BlockchainNewTip)
	}
	o.state.Chain.Append(block)

	// Record this node's own attestation alongside.
	attestation, err := ledger.Attest(o.state.PrivateKey, tx)
	if err != nil {
		return nil, nil, err
	}
	block.AddVote(attestation)
	o.log.Info("transaction verified and committed",
		zap.String("hash", block.Hash),
		zap.Int("total_verifications", len(block.Signatures())))

	return protocol.RequestTransactionValidationResponse{
		OldBlockchainTip:   cmd.BlockchainPreviousTip,
		NewBlockchainTip:   block.Hash,
		ValidatorPublicKey: o.state.PublicKey,
		TransactionCbor:    cmd.TransactionCbor,
		ValidatorSignature: attestation.ValidatorSignature,
	}, nil, nil
}

func (o *Orchestrator) handleSynchronizeBlockchain(cmd protocol.SynchronizeBlockchain) (protocol.CommandResponse, []Outbound, error) {
	tip, err := o.state.Chain.TipHash()
	if err != nil {
		return nil, nil, err
	}
	if tip != cmd.BlockchainTipAfterTransaction {
		return nil, nil, fmt.Errorf("blockchain tips are different, synchronization needed: incoming tip %s, this blockchain tip %s",
			cmd.BlockchainTipAfterTransaction, tip)
	}
	for _, s := range cmd.Signatures {
		if err := o.state.Chain.AddVote(tip, ledger.ValidatorSignature{
			ValidatorPublicKey: s.Validator.PublicKey,
			ValidatorSignature: s.Signature,
		}); err != nil {
			return nil, nil, err
		}
	}
	return protocol.SynchronizeBlockchainResponse{}, nil, nil
}

func (o *Orchestrator) handleRequestSynchronization(cmd protocol.RequestSynchronization) (protocol.CommandResponse, []Outbound, error) {
	tip, err := o.state.Chain.TipHash()
	if err != nil {
		return nil, nil, err
	}
	if cmd.BlockchainTip == tip {
		return protocol.FullySynchronizedResponse{}, nil, nil
	}

	idx, err := o.state.Chain.IndexOf(cmd.BlockchainTip)
	if err != nil {
		return nil, nil, fmt.Errorf("impossible to synchronize, no common ancestor for hash %s", cmd.BlockchainTip)
	}

	next := o.state.Chain.Blocks[idx+1]
	previousHash := o.state.Chain.Genesis.HashHex()
	if idx >= 0 {
		previousHash = o.state.Chain.Blocks[idx].Hash
	}
	encoded, err := next.Transaction.Encode()
	if err != nil {
		return nil, nil, err
	}
	signatures := make([]protocol.ValidatorWithSignature, 0, len(next.Votes)+1)
	for _, vs := range next.Signatures() {
		signatures = append(signatures, protocol.ValidatorWithSignature{
			// The signer may not be dialable from here; the record travels
			// without an address.
			Validator: protocol.Validator{PublicKey: vs.ValidatorPublicKey},
			Signature: vs.ValidatorSignature,
		})
	}
	return protocol.RequestSynchronizationResponse{
		PreviousHash:    previousHash,
		NextHash:        next.Hash,
		TransactionCbor: encoded,
		Signatures:      signatures,
	}, nil, nil
}
