// Package peer tracks the validators this node knows about. Entries are
// value records keyed by public key; there is no object graph between peers.
package peer

import (
	"github.com/utxonet/utxonet/internal/crypto"
)

// Validator identifies a peer node: its public key and its host:port.
type Validator struct {
	PublicKey crypto.PublicKey
	Address   string
}

// Directory is the mutable set of known peer validators. The orchestrator is
// its sole owner. The node's own identity is held alongside so insertions can
// drop self-references.
type Directory struct {
	self    Validator
	entries []Validator
}

// NewDirectory creates a directory for the node identified by self.
func NewDirectory(self Validator) *Directory {
	return &Directory{self: self}
}

// Self returns this node's own identity record.
func (d *Directory) Self() Validator {
	return d.self
}

// AddMany inserts the given validators, dropping entries that match the
// node's own key or an already-known key (first write wins). A bootstrap
// placeholder with an empty key is replaced when a keyed entry for the same
// address arrives. Returns how many entries were added.
func (d *Directory) AddMany(vs []Validator) int {
	added := 0
	for _, v := range vs {
		if v.PublicKey == d.self.PublicKey && v.PublicKey != "" {
			continue
		}
		if d.knows(v) {
			continue
		}
		if i := d.placeholderFor(v.Address); i >= 0 && v.PublicKey != "" {
			d.entries[i] = v
			added++
			continue
		}
		d.entries = append(d.entries, v)
		added++
	}
	return added
}

func (d *Directory) knows(v Validator) bool {
	for _, e := range d.entries {
		if e.PublicKey == v.PublicKey && (v.PublicKey != "" || e.Address == v.Address) {
			return true
		}
	}
	return false
}

func (d *Directory) placeholderFor(address string) int {
	for i, e := range d.entries {
		if e.PublicKey == "" && e.Address == address {
			return i
		}
	}
	return -1
}

// Remove deletes the entry with the given key, if present. It is called only
// from the orchestrator after a send failure.
func (d *Directory) Remove(pub crypto.PublicKey) bool {
	for i, e := range d.entries {
		if e.PublicKey == pub {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the address registered for a key.
func (d *Directory) Find(pub crypto.PublicKey) (string, bool) {
	for _, e := range d.entries {
		if e.PublicKey == pub {
			return e.Address, true
		}
	}
	return "", false
}

// List returns a copy of the current entries in insertion order.
func (d *Directory) List() []Validator {
	out := make([]Validator, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of known peers.
func (d *Directory) Len() int {
	return len(d.entries)
}
