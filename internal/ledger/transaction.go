package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
)

var (
	ErrUnbalanced        = errors.New("transaction input and output amounts don't match")
	ErrNoInputs          = errors.New("transaction has no inputs")
	ErrMultipleAddresses = errors.New("transaction has multiple input addresses, this feature is not supported")
	ErrInsufficientFunds = errors.New("not enough funds")
	ErrMalformedTransfer = errors.New("malformed transaction payload")
)

// BalancedTransaction is a transfer whose inputs and outputs sum to the same
// amount. Its canonical CBOR encoding is both the wire form and the signing
// preimage.
type BalancedTransaction struct {
	ID      string          `cbor:"id" json:"id"`
	Inputs  []UnspentOutput `cbor:"inputs" json:"inputs"`
	Outputs []UnspentOutput `cbor:"outputs" json:"outputs"`
}

// SignedBalancedTransaction couples a balanced transaction with the detached
// signature of its sole input address over the transaction's canonical CBOR.
type SignedBalancedTransaction struct {
	BalancedTransaction BalancedTransaction `cbor:"balanced_transaction" json:"balanced_transaction"`
	Signature           crypto.Signature    `cbor:"signature" json:"signature"`
}

// Sign encodes the transaction canonically and signs it with priv, which must
// belong to the input address.
func (t BalancedTransaction) Sign(priv crypto.PrivateKey) (SignedBalancedTransaction, error) {
	raw, err := codec.Marshal(t)
	if err != nil {
		return SignedBalancedTransaction{}, err
	}
	sig, err := crypto.Sign(priv, raw)
	if err != nil {
		return SignedBalancedTransaction{}, err
	}
	return SignedBalancedTransaction{BalancedTransaction: t, Signature: sig}, nil
}

// Encode returns the hex-wrapped canonical CBOR of the transaction, the form
// exchanged on the wire.
func (t BalancedTransaction) Encode() (codec.Hex, error) {
	return codec.MarshalHex(t)
}

// DecodeBalancedTransaction parses a hex-wrapped canonical encoding.
func DecodeBalancedTransaction(h codec.Hex) (BalancedTransaction, error) {
	var t BalancedTransaction
	if err := h.UnmarshalHex(&t); err != nil {
		return BalancedTransaction{}, fmt.Errorf("%w: %v", ErrMalformedTransfer, err)
	}
	return t, nil
}

// Encode returns the hex-wrapped canonical CBOR of the signed transaction.
func (t SignedBalancedTransaction) Encode() (codec.Hex, error) {
	return codec.MarshalHex(t)
}

// DecodeSignedTransaction parses a hex-wrapped canonical encoding.
func DecodeSignedTransaction(h codec.Hex) (SignedBalancedTransaction, error) {
	var t SignedBalancedTransaction
	if err := h.UnmarshalHex(&t); err != nil {
		return SignedBalancedTransaction{}, fmt.Errorf("%w: %v", ErrMalformedTransfer, err)
	}
	return t, nil
}

// CheckBalanced verifies that input and output amounts match.
func (t SignedBalancedTransaction) CheckBalanced() error {
	var in, out uint64
	for _, u := range t.BalancedTransaction.Inputs {
		in += u.Amount
	}
	for _, u := range t.BalancedTransaction.Outputs {
		out += u.Amount
	}
	if in != out {
		return ErrUnbalanced
	}
	return nil
}

// FromAddress returns the single address funds are sent from. It errors when
// the transaction has no inputs or the input addresses are not unanimous.
func (t SignedBalancedTransaction) FromAddress() (crypto.PublicKey, error) {
	inputs := t.BalancedTransaction.Inputs
	if len(inputs) == 0 {
		return "", ErrNoInputs
	}
	address := inputs[0].Address
	for _, u := range inputs[1:] {
		if u.Address != address {
			return "", ErrMultipleAddresses
		}
	}
	return address, nil
}

// Hash is the transaction's canonical hash: SHA-256 over the id followed by
// every input and output hash in order. It is stable across vote accretion
// and is the transaction's contribution to the block hash.
func (t SignedBalancedTransaction) Hash() []byte {
	var buf []byte
	buf = append(buf, t.BalancedTransaction.ID...)
	for _, u := range t.BalancedTransaction.Inputs {
		buf = append(buf, u.Hash()...)
	}
	for _, u := range t.BalancedTransaction.Outputs {
		buf = append(buf, u.Hash()...)
	}
	return codec.Sum256(buf)
}

// VerifySignature checks the detached signature against the from-address over
// the transaction's canonical CBOR.
func (t SignedBalancedTransaction) VerifySignature() error {
	from, err := t.FromAddress()
	if err != nil {
		return err
	}
	raw, err := codec.Marshal(t.BalancedTransaction)
	if err != nil {
		return err
	}
	return crypto.Verify(from, raw, t.Signature)
}

func newTransactionID() string {
	return uuid.NewString()
}
