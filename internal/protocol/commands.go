package protocol

import (
	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
)

// Command is the closed union of wire commands. Handlers pattern-match on the
// concrete types exhaustively.
type Command interface {
	CommandName() string
}

// Ping checks liveness; the reply echoes the message decorated.
type Ping struct {
	Msg string `cbor:"msg" json:"msg"`
}

// GenerateWallet asks the node to mint a fresh keypair.
type GenerateWallet struct{}

// PrintBalances asks for the per-address unspent sums.
type PrintBalances struct{}

// PrintValidators asks for the peer directory.
type PrintValidators struct{}

// PrintBlockchain asks for a human-readable block listing.
type PrintBlockchain struct{}

// BalanceTransaction computes a transfer without committing it.
type BalanceTransaction struct {
	From   string `cbor:"from" json:"from"`
	To     string `cbor:"to" json:"to"`
	Amount uint64 `cbor:"amount" json:"amount"`
}

// CommitTransaction commits a signed transaction carried as hex CBOR.
type CommitTransaction struct {
	SignedTransactionCbor codec.Hex `cbor:"signed_transaction_cbor" json:"signed_transaction_cbor"`
}

// OnBoardValidator introduces a new validator to the cluster.
type OnBoardValidator struct {
	PublicKey     crypto.PublicKey `cbor:"public_key" json:"public_key"`
	ReturnAddress string           `cbor:"return_address" json:"return_address"`
}

// SynchronizeBlockchain carries freshly collected attestations for the tip
// block to a peer that already holds it.
type SynchronizeBlockchain struct {
	Signatures                     []ValidatorWithSignature `cbor:"signatures" json:"signatures"`
	TransactionCbor                codec.Hex                `cbor:"transaction_cbor" json:"transaction_cbor"`
	BlockchainTipBeforeTransaction string                   `cbor:"blockchain_tip_before_transaction" json:"blockchain_tip_before_transaction"`
	BlockchainTipAfterTransaction  string                   `cbor:"blockchain_tip_after_transaction" json:"blockchain_tip_after_transaction"`
}

// RequestTransactionValidation asks a peer to commit the same transaction and
// attest to the resulting block.
type RequestTransactionValidation struct {
	// Chain hash before the transaction was committed.
	BlockchainPreviousTip string `cbor:"blockchain_previous_tip" json:"blockchain_previous_tip"`
	// Chain hash after the transaction was committed.
	BlockchainNewTip   string                 `cbor:"blockchain_new_tip" json:"blockchain_new_tip"`
	TransactionCbor    codec.Hex              `cbor:"transaction_cbor" json:"transaction_cbor"`
	ValidatorSignature ValidatorWithSignature `cbor:"validator_signature" json:"validator_signature"`
	Validator          Validator              `cbor:"validator" json:"validator"`
}

// RequestSynchronization asks a peer for the block that follows the caller's
// tip, the catch-up primitive.
type RequestSynchronization struct {
	BlockchainTip string `cbor:"blockchain_tip" json:"blockchain_tip"`
}

// AddValidatorSignature records an attestation on an already-known block.
type AddValidatorSignature struct {
	Hash               string                 `cbor:"hash" json:"hash"`
	ValidatorSignature ValidatorWithSignature `cbor:"validator_signature" json:"validator_signature"`
}

// BlockchainTip asks for the current chain hash.
type BlockchainTip struct{}

func (Ping) CommandName() string                         { return "PingCommand" }
func (GenerateWallet) CommandName() string               { return "GenerateWallet" }
func (PrintBalances) CommandName() string                { return "PrintBalances" }
func (PrintValidators) CommandName() string              { return "PrintValidators" }
func (PrintBlockchain) CommandName() string              { return "PrintBlockchain" }
func (BalanceTransaction) CommandName() string           { return "BalanceTransaction" }
func (CommitTransaction) CommandName() string            { return "CommitTransaction" }
func (OnBoardValidator) CommandName() string             { return "OnBoardValidator" }
func (SynchronizeBlockchain) CommandName() string        { return "SynchronizeBlockchain" }
func (RequestTransactionValidation) CommandName() string { return "RequestTransactionValidation" }
func (RequestSynchronization) CommandName() string       { return "RequestSynchronization" }
func (AddValidatorSignature) CommandName() string        { return "AddValidatorSignature" }
func (BlockchainTip) CommandName() string                { return "BlockchainTip" }
