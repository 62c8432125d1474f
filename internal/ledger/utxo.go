// Package ledger implements the UTXO chain: unspent outputs, transaction
// balancing and verification, block construction, vote accretion, and the
// chain-level hash fold.
package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
)

// GenesisOutputID is the fixed id of the genesis UTXO. Every other output
// gets a fresh UUID.
const GenesisOutputID = "0"

// UnspentOutput is a single spendable coin: an opaque unique id, the owning
// address, and the amount it carries.
type UnspentOutput struct {
	ID      string           `cbor:"id" json:"id"`
	Address crypto.PublicKey `cbor:"address" json:"address"`
	Amount  uint64           `cbor:"amount" json:"amount"`
}

// NewUnspentOutput mints an output with a fresh id.
func NewUnspentOutput(address crypto.PublicKey, amount uint64) UnspentOutput {
	return UnspentOutput{
		ID:      uuid.NewString(),
		Address: address,
		Amount:  amount,
	}
}

// GenesisOutput builds the chain's initial UTXO for the given address.
func GenesisOutput(address crypto.PublicKey, amount uint64) UnspentOutput {
	return UnspentOutput{
		ID:      GenesisOutputID,
		Address: address,
		Amount:  amount,
	}
}

// Hash is the canonical output hash: SHA-256 over id, address, and the
// little-endian amount.
func (u UnspentOutput) Hash() []byte {
	buf := make([]byte, 0, len(u.ID)+len(u.Address)+8)
	buf = append(buf, u.ID...)
	buf = append(buf, u.Address...)
	buf = binary.LittleEndian.AppendUint64(buf, u.Amount)
	return codec.Sum256(buf)
}

// HashHex is the hex form of Hash, the key spent-detection works with.
func (u UnspentOutput) HashHex() string {
	return hex.EncodeToString(u.Hash())
}
