package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/utxonet/utxonet/internal/crypto"
)

var (
	ErrUnknownBlock = errors.New("block not found")
	ErrSpentOutput  = errors.New("utxo has already been spent")
	ErrMissingUTXO  = errors.New("utxos not found")
	ErrBrokenChain  = errors.New("block hash does not match recomputed chain link")
)

// Chain is the in-memory blockchain: a genesis UTXO plus an ordered list of
// blocks. The orchestrator is the chain's sole owner; no internal locking
// (network lanes never hold a chain reference).
type Chain struct {
	Genesis UnspentOutput
	Blocks  []*Block
}

// NewChain starts an empty chain on top of the genesis output.
func NewChain(genesis UnspentOutput) *Chain {
	return &Chain{Genesis: genesis}
}

// Length returns the number of committed blocks.
func (c *Chain) Length() int {
	return len(c.Blocks)
}

// spentOutputs collects the hex hashes of every output consumed anywhere in
// the chain.
func (c *Chain) spentOutputs() map[string]struct{} {
	spent := make(map[string]struct{})
	for _, b := range c.Blocks {
		for _, in := range b.Transaction.BalancedTransaction.Inputs {
			spent[in.HashHex()] = struct{}{}
		}
	}
	return spent
}

// unspentFor returns the current unspent set for an address, in chain order:
// genesis first, then block outputs oldest to newest. The order is what makes
// balancing deterministic for identical histories.
func (c *Chain) unspentFor(address crypto.PublicKey) []UnspentOutput {
	spent := c.spentOutputs()
	var unspent []UnspentOutput
	if c.Genesis.Address == address {
		if _, ok := spent[c.Genesis.HashHex()]; !ok {
			unspent = append(unspent, c.Genesis)
		}
	}
	for _, b := range c.Blocks {
		for _, out := range b.Transaction.BalancedTransaction.Outputs {
			if out.Address != address {
				continue
			}
			if _, ok := spent[out.HashHex()]; ok {
				continue
			}
			unspent = append(unspent, out)
		}
	}
	return unspent
}

// BalanceTransaction computes a transfer of amount from one address to
// another without touching the chain. Inputs are picked greedily from the
// sender's unspent set in chain order; outputs are the payee first, change
// second.
func (c *Chain) BalanceTransaction(from, to crypto.PublicKey, amount uint64) (BalancedTransaction, error) {
	var selected []UnspentOutput
	var total uint64
	for _, u := range c.unspentFor(from) {
		if total >= amount {
			break
		}
		total += u.Amount
		selected = append(selected, u)
	}
	if total < amount {
		return BalancedTransaction{}, fmt.Errorf("%w for %s", ErrInsufficientFunds, Shorten(string(from)))
	}

	outputs := []UnspentOutput{NewUnspentOutput(to, amount)}
	if change := total - amount; change > 0 {
		outputs = append(outputs, NewUnspentOutput(from, change))
	}
	return BalancedTransaction{
		ID:      newTransactionID(),
		Inputs:  selected,
		Outputs: outputs,
	}, nil
}

// ensureUnspent verifies the given outputs are reachable (genesis or some
// block's output) and not consumed anywhere in the chain.
func (c *Chain) ensureUnspent(utxos []UnspentOutput) error {
	spent := c.spentOutputs()
	for _, u := range utxos {
		if _, ok := spent[u.HashHex()]; ok {
			return fmt.Errorf("%w: %s", ErrSpentOutput, u.HashHex())
		}
	}

	remaining := make(map[string]struct{}, len(utxos))
	for _, u := range utxos {
		remaining[u.HashHex()] = struct{}{}
	}
	delete(remaining, c.Genesis.HashHex())
	for _, b := range c.Blocks {
		for _, out := range b.Transaction.BalancedTransaction.Outputs {
			delete(remaining, out.HashHex())
		}
	}
	if len(remaining) > 0 {
		for h := range remaining {
			return fmt.Errorf("%w: %s", ErrMissingUTXO, h)
		}
	}
	return nil
}

// VerifyTransaction runs the full admission check: balanced, unanimous input
// address, valid signature, all inputs unspent and reachable. The first
// failing check wins.
func (c *Chain) VerifyTransaction(tx SignedBalancedTransaction) error {
	if err := tx.CheckBalanced(); err != nil {
		return err
	}
	if _, err := tx.FromAddress(); err != nil {
		return err
	}
	if err := tx.VerifySignature(); err != nil {
		return err
	}
	return c.ensureUnspent(tx.BalancedTransaction.Inputs)
}

// tipBytes returns the raw hash the next block chains from.
func (c *Chain) tipBytes() ([]byte, error) {
	if len(c.Blocks) == 0 {
		return c.Genesis.Hash(), nil
	}
	return hex.DecodeString(c.Blocks[len(c.Blocks)-1].Hash)
}

// BuildBlock verifies the transaction and constructs the next block without
// appending it. Callers that need to compare the resulting hash against an
// expected tip do so before Append, keeping rejected commits free of side
// effects.
func (c *Chain) BuildBlock(tx SignedBalancedTransaction, priv crypto.PrivateKey) (*Block, error) {
	if err := c.VerifyTransaction(tx); err != nil {
		return nil, err
	}
	prev, err := c.tipBytes()
	if err != nil {
		return nil, err
	}
	return NewBlock(prev, tx, priv)
}

// BuildBlockWithElected verifies the transaction and reconstructs the block
// an elected peer already committed, without appending it.
func (c *Chain) BuildBlockWithElected(tx SignedBalancedTransaction, elected ValidatorSignature) (*Block, error) {
	if err := c.VerifyTransaction(tx); err != nil {
		return nil, err
	}
	prev, err := c.tipBytes()
	if err != nil {
		return nil, err
	}
	return NewBlockWithElected(prev, tx, elected)
}

// Append adds a built block to the chain.
func (c *Chain) Append(b *Block) {
	c.Blocks = append(c.Blocks, b)
}

// Commit verifies, builds, and appends in one step.
func (c *Chain) Commit(tx SignedBalancedTransaction, priv crypto.PrivateKey) (*Block, error) {
	b, err := c.BuildBlock(tx, priv)
	if err != nil {
		return nil, err
	}
	c.Append(b)
	return b, nil
}

// BlockByHash finds a block by its hex hash.
func (c *Chain) BlockByHash(hash string) (*Block, bool) {
	for _, b := range c.Blocks {
		if b.Hash == hash {
			return b, true
		}
	}
	return nil, false
}

// AddVote records an attestation on the block with the given hash. Duplicate
// attestations are silently ignored.
func (c *Chain) AddVote(hash string, vs ValidatorSignature) error {
	b, ok := c.BlockByHash(hash)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
	}
	b.AddVote(vs)
	return nil
}

// TipHash folds the chain verifying every link and returns the tip hash, or
// the genesis hash for an empty chain. A link that fails to recompute is
// reported as an error; there is no fork resolution.
func (c *Chain) TipHash() (string, error) {
	prev := c.Genesis.Hash()
	for i, b := range c.Blocks {
		ok, err := b.VerifyLink(prev)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("%w: block %d (%s)", ErrBrokenChain, i, b.Hash)
		}
		prev, err = hex.DecodeString(b.Hash)
		if err != nil {
			return "", fmt.Errorf("%w: block %d hash is not hex", ErrBrokenChain, i)
		}
	}
	return hex.EncodeToString(prev), nil
}

// IndexOf locates a hex hash in the chain. -1 means the hash is the genesis
// hash; ErrUnknownBlock means it appears nowhere.
func (c *Chain) IndexOf(hash string) (int, error) {
	if hash == c.Genesis.HashHex() {
		return -1, nil
	}
	for i, b := range c.Blocks {
		if b.Hash == hash {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownBlock, hash)
}

// BalanceEntry is one address's total unspent amount.
type BalanceEntry struct {
	Address crypto.PublicKey
	Amount  uint64
}

// Balances sums the unspent amount per address, ordered by first appearance
// in the chain.
func (c *Chain) Balances() []BalanceEntry {
	spent := c.spentOutputs()
	index := make(map[crypto.PublicKey]int)
	var entries []BalanceEntry

	add := func(u UnspentOutput) {
		if _, ok := spent[u.HashHex()]; ok {
			return
		}
		i, ok := index[u.Address]
		if !ok {
			i = len(entries)
			index[u.Address] = i
			entries = append(entries, BalanceEntry{Address: u.Address})
		}
		entries[i].Amount += u.Amount
	}

	add(c.Genesis)
	for _, b := range c.Blocks {
		for _, out := range b.Transaction.BalancedTransaction.Outputs {
			add(out)
		}
	}
	return entries
}
