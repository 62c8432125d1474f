package ledger

import (
	"encoding/hex"

	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
)

// ValidatorSignature is one validator's attestation over a transaction's
// canonical CBOR. Two attestations are equal when both fields match; a
// block's vote set is deduplicated under that equality.
type ValidatorSignature struct {
	ValidatorPublicKey crypto.PublicKey `cbor:"validator_public_key" json:"validator_public_key"`
	ValidatorSignature crypto.Signature `cbor:"validator_signature" json:"validator_signature"`
}

// Block is one committed transaction chained by hash. Elected is the
// signature of the validator that first mined the block and is part of the
// block's identity; Votes accrete afterwards and do not change the hash.
type Block struct {
	Hash        string                    `cbor:"hash" json:"hash"`
	Transaction SignedBalancedTransaction `cbor:"transaction" json:"transaction"`
	Elected     ValidatorSignature        `cbor:"elected" json:"elected"`
	Votes       []ValidatorSignature      `cbor:"votes" json:"votes"`
}

// Attest signs the transaction's canonical CBOR with the validator's key,
// producing its attestation record.
func Attest(priv crypto.PrivateKey, tx SignedBalancedTransaction) (ValidatorSignature, error) {
	raw, err := codec.Marshal(tx.BalancedTransaction)
	if err != nil {
		return ValidatorSignature{}, err
	}
	sig, err := crypto.Sign(priv, raw)
	if err != nil {
		return ValidatorSignature{}, err
	}
	pub, err := priv.Public()
	if err != nil {
		return ValidatorSignature{}, err
	}
	return ValidatorSignature{ValidatorPublicKey: pub, ValidatorSignature: sig}, nil
}

// NewBlock constructs and hashes a block on top of prevHash. The committing
// validator signs the transaction's canonical CBOR and becomes the elected
// signer.
func NewBlock(prevHash []byte, tx SignedBalancedTransaction, priv crypto.PrivateKey) (*Block, error) {
	elected, err := Attest(priv, tx)
	if err != nil {
		return nil, err
	}
	return NewBlockWithElected(prevHash, tx, elected)
}

// NewBlockWithElected reconstructs a block whose elected signer is already
// known, the path a co-signing peer takes: the elected signature is part of
// the block's identity, so rebuilding the exact block of the original
// committer requires the committer's signature, not a fresh one.
func NewBlockWithElected(prevHash []byte, tx SignedBalancedTransaction, elected ValidatorSignature) (*Block, error) {
	hash, err := blockHash(prevHash, tx, elected)
	if err != nil {
		return nil, err
	}
	return &Block{
		Hash:        hash,
		Transaction: tx,
		Elected:     elected,
		Votes:       nil,
	}, nil
}

// blockHash computes hex(SHA-256(prevHash || tx canonical hash || encoded
// elected signature)).
func blockHash(prevHash []byte, tx SignedBalancedTransaction, elected ValidatorSignature) (string, error) {
	encodedElected, err := codec.Marshal(elected)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = append(buf, prevHash...)
	buf = append(buf, tx.Hash()...)
	buf = append(buf, encodedElected...)
	return hex.EncodeToString(codec.Sum256(buf)), nil
}

// VerifyLink recomputes the block's hash from prevHash and reports whether it
// matches the recorded one.
func (b *Block) VerifyLink(prevHash []byte) (bool, error) {
	computed, err := blockHash(prevHash, b.Transaction, b.Elected)
	if err != nil {
		return false, err
	}
	return computed == b.Hash, nil
}

// AddVote appends an attestation unless an equal one is already present.
// Reports whether the vote was new.
func (b *Block) AddVote(vs ValidatorSignature) bool {
	if b.Elected == vs {
		return false
	}
	for _, existing := range b.Votes {
		if existing == vs {
			return false
		}
	}
	b.Votes = append(b.Votes, vs)
	return true
}

// Signatures returns the elected signature followed by the accreted votes,
// the set a synchronizing peer is handed.
func (b *Block) Signatures() []ValidatorSignature {
	out := make([]ValidatorSignature, 0, len(b.Votes)+1)
	out = append(out, b.Elected)
	out = append(out, b.Votes...)
	return out
}
