package protocol

import (
	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
)

// CommandResponse is the closed union of success payloads.
type CommandResponse interface {
	ResponseName() string
}

// PingResponse echoes the ping message decorated.
type PingResponse struct {
	Msg string `cbor:"msg" json:"msg"`
}

// GenerateWalletResponse carries a freshly minted keypair.
type GenerateWalletResponse struct {
	PrivateKey crypto.PrivateKey `cbor:"private_key" json:"private_key"`
	PublicKey  crypto.PublicKey  `cbor:"public_key" json:"public_key"`
}

// BalancePair is one (shortened address, amount) row. It encodes as a
// two-element array, the tuple form of the original wire.
type BalancePair struct {
	_       struct{} `cbor:",toarray"`
	Address string
	Amount  uint64
}

// PrintBalancesResponse lists the per-address unspent sums.
type PrintBalancesResponse struct {
	Balances []BalancePair `cbor:"balances" json:"balances"`
}

// PrintValidatorsResponse lists the peer directory.
type PrintValidatorsResponse struct {
	Validators []Validator `cbor:"validators" json:"validators"`
}

// BalanceTransactionResponse carries the computed transfer: a pretty JSON
// rendering and the hex CBOR to sign and commit.
type BalanceTransactionResponse struct {
	RequestID string    `cbor:"request_id" json:"request_id"`
	Body      string    `cbor:"body" json:"body"`
	Cbor      codec.Hex `cbor:"cbor" json:"cbor"`
}

// CommitTransactionResponse reports the new tip after a commit.
type CommitTransactionResponse struct {
	BlockchainHash string `cbor:"blockchain_hash" json:"blockchain_hash"`
}

// PrintBlockchainResponse carries one formatted string per block.
type PrintBlockchainResponse struct {
	Blocks []string `cbor:"blocks" json:"blocks"`
}

// OnBoardValidatorResponse returns the replier's view of the cluster: the
// on-boarded validator, the full directory including the replier, and the
// replier's tip.
type OnBoardValidatorResponse struct {
	OnBoardingValidator Validator   `cbor:"on_boarding_validator" json:"on_boarding_validator"`
	Validators          []Validator `cbor:"validators" json:"validators"`
	BlockchainTip       string      `cbor:"blockchain_tip" json:"blockchain_tip"`
}

// SynchronizeBlockchainResponse acknowledges a vote synchronization.
type SynchronizeBlockchainResponse struct{}

// RequestTransactionValidationResponse carries the replier's attestation over
// the block it just committed.
type RequestTransactionValidationResponse struct {
	// Chain hash before the transaction was applied.
	OldBlockchainTip string `cbor:"old_blockchain_tip" json:"old_blockchain_tip"`
	// Chain hash after the transaction was applied.
	NewBlockchainTip   string           `cbor:"new_blockchain_tip" json:"new_blockchain_tip"`
	ValidatorPublicKey crypto.PublicKey `cbor:"validator_public_key" json:"validator_public_key"`
	TransactionCbor    codec.Hex        `cbor:"transaction_cbor" json:"transaction_cbor"`
	ValidatorSignature crypto.Signature `cbor:"validator_signature" json:"validator_signature"`
}

// RequestSynchronizationResponse hands the caller the block that follows its
// tip, with the attestations collected so far.
type RequestSynchronizationResponse struct {
	PreviousHash    string                   `cbor:"previous_hash" json:"previous_hash"`
	NextHash        string                   `cbor:"next_hash" json:"next_hash"`
	TransactionCbor codec.Hex                `cbor:"transaction_cbor" json:"transaction_cbor"`
	Signatures      []ValidatorWithSignature `cbor:"signatures" json:"signatures"`
}

// FullySynchronizedResponse tells a synchronizing caller its tip already
// matches the replier's: the catch-up loop terminates here.
type FullySynchronizedResponse struct{}

// Nothing is the empty acknowledgement, also the answer to a request id that
// was already processed.
type Nothing struct{}

// BlockchainTipResponse reports the current chain hash.
type BlockchainTipResponse struct {
	BlockchainTipHash string `cbor:"blockchain_tip_hash" json:"blockchain_tip_hash"`
}

func (PingResponse) ResponseName() string                  { return "PingCommandResponse" }
func (GenerateWalletResponse) ResponseName() string        { return "GenerateWalletResponse" }
func (PrintBalancesResponse) ResponseName() string         { return "PrintBalancesResponse" }
func (PrintValidatorsResponse) ResponseName() string       { return "PrintValidatorsResponse" }
func (BalanceTransactionResponse) ResponseName() string    { return "BalanceTransactionResponse" }
func (CommitTransactionResponse) ResponseName() string     { return "CommitTransactionResponse" }
func (PrintBlockchainResponse) ResponseName() string       { return "PrintBlockchainResponse" }
func (OnBoardValidatorResponse) ResponseName() string      { return "OnBoardValidatorResponse" }
func (SynchronizeBlockchainResponse) ResponseName() string { return "SynchronizeBlockchainResponse" }
func (RequestTransactionValidationResponse) ResponseName() string {
	return "RequestTransactionValidationResponse"
}
func (RequestSynchronizationResponse) ResponseName() string { return "RequestSynchronizationResponse" }
func (FullySynchronizedResponse) ResponseName() string      { return "FullySynchronizedResponse" }
func (Nothing) ResponseName() string                        { return "Nothing" }
func (BlockchainTipResponse) ResponseName() string          { return "BlockchainTipResponse" }
