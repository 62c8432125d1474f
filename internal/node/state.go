// Package node implements the request orchestrator: the single-writer state
// machine that ingests wire requests, produces responses, and queues outbound
// peer requests in reaction. All mutation of the ledger, the peer directory,
// and the processed-request set happens on the orchestrator goroutine;
// network lanes hold no references to any of them.
package node

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/utxonet/utxonet/internal/crypto"
	"github.com/utxonet/utxonet/internal/ledger"
	"github.com/utxonet/utxonet/internal/peer"
	"github.com/utxonet/utxonet/internal/protocol"
)

// ValidatorState is the node's lifecycle phase. Only StartUp dispatches
// commands; Election and Expanse are reserved extension points.
type ValidatorState int

const (
	StartUp ValidatorState = iota
	Election
	Expanse
)

func (s ValidatorState) String() string {
	switch s {
	case StartUp:
		return "StartUp"
	case Election:
		return "Election"
	case Expanse:
		return "Expanse"
	default:
		return fmt.Sprintf("ValidatorState(%d)", int(s))
	}
}

// processedCapacity bounds the dedup set. Eviction only matters once this
// many distinct requests have passed since a given id was seen, far beyond
// the horizon of the retransmission loops the set exists to break.
const processedCapacity = 1 << 16

// RuntimeState aggregates everything the orchestrator owns exclusively.
type RuntimeState struct {
	State      ValidatorState
	Chain      *ledger.Chain
	Directory  *peer.Directory
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey

	processed *lru.Cache
}

// NewRuntimeState assembles the node's mutable aggregate.
func NewRuntimeState(chain *ledger.Chain, dir *peer.Directory, priv crypto.PrivateKey, pub crypto.PublicKey) (*RuntimeState, error) {
	processed, err := lru.New(processedCapacity)
	if err != nil {
		return nil, err
	}
	return &RuntimeState{
		State:      StartUp,
		Chain:      chain,
		Directory:  dir,
		PrivateKey: priv,
		PublicKey:  pub,
		processed:  processed,
	}, nil
}

// SelfWire is this node's identity in wire form.
func (s *RuntimeState) SelfWire() protocol.Validator {
	return protocol.FromPeer(s.Directory.Self())
}

// markProcessed records a request id, reporting whether it was already known.
func (s *RuntimeState) markProcessed(requestID string) bool {
	if s.processed.Contains(requestID) {
		return true
	}
	s.processed.Add(requestID, struct{}{})
	return false
}
