package validator

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/utxonet/utxonet/internal/client"
	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/config"
	"github.com/utxonet/utxonet/internal/crypto"
	"github.com/utxonet/utxonet/internal/gateway"
	"github.com/utxonet/utxonet/internal/protocol"
)

func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

func startNode(t *testing.T, cfg config.Config) {
	t.Helper()
	n, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Log("node did not stop in time")
		}
	})
}

func waitForPing(t *testing.T, addr string) {
	t.Helper()
	c := client.New(addr)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := c.Ping("up?"); err == nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("node at %s never answered", addr)
}

func eventually(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func nodeConfig(t *testing.T, genesisKey crypto.PublicKey) config.Config {
	t.Helper()
	priv, pub, err := crypto.GenerateWallet()
	require.NoError(t, err)
	return config.Config{
		Host:          "127.0.0.1",
		Port:          freePort(t),
		PrivateKey:    priv,
		PublicKey:     pub,
		GenesisKey:    genesisKey,
		GenesisAmount: 10,
	}
}

func TestSingleNodeClientFlow(t *testing.T) {
	walletPriv, walletPub, err := crypto.GenerateWallet()
	require.NoError(t, err)
	_, recipient, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfg := nodeConfig(t, walletPub)
	startNode(t, cfg)
	waitForPing(t, cfg.Address())
	c := client.New(cfg.Address())

	pong, err := c.Ping("hello")
	require.NoError(t, err)
	assert.Equal(t, "Original message: hello, PONG PONG", pong.Msg)

	wallet, err := c.GenerateWallet()
	require.NoError(t, err)
	assert.NotEmpty(t, wallet.PrivateKey)
	assert.NotEmpty(t, wallet.PublicKey)

	balanced, err := c.BalanceTransaction(string(walletPub), string(recipient), 6)
	require.NoError(t, err)
	require.NotEmpty(t, balanced.Cbor)
	assert.True(t, strings.Contains(balanced.Body, "inputs"))

	committed, err := c.CommitTransaction(string(balanced.Cbor), string(walletPriv))
	require.NoError(t, err)
	require.NotEmpty(t, committed.BlockchainHash)

	tip, err := c.Tip()
	require.NoError(t, err)
	assert.Equal(t, committed.BlockchainHash, tip)

	balances, err := c.PrintBalances()
	require.NoError(t, err)
	total := uint64(0)
	for _, b := range balances.Balances {
		total += b.Amount
	}
	assert.Equal(t, uint64(10), total)

	blocks, err := c.PrintBlockchain()
	require.NoError(t, err)
	require.Len(t, blocks.Blocks, 1)
	assert.True(t, strings.Contains(blocks.Blocks[0], committed.BlockchainHash))

	// Insufficient funds surfaces as a protocol error, not a dead socket.
	_, err = c.BalanceTransaction(string(recipient), string(walletPub), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough funds")
}

func TestTwoNodeCoSignature(t *testing.T) {
	walletPriv, walletPub, err := crypto.GenerateWallet()
	require.NoError(t, err)
	_, recipient, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfgB := nodeConfig(t, walletPub)
	startNode(t, cfgB)
	waitForPing(t, cfgB.Address())

	cfgA := nodeConfig(t, walletPub)
	cfgA.RemoteValidator = cfgB.Address()
	startNode(t, cfgA)
	waitForPing(t, cfgA.Address())

	cA := client.New(cfgA.Address())
	cB := client.New(cfgB.Address())

	// On-boarding completes in both directions.
	eventually(t, "mutual on-boarding", func() bool {
		va, errA := cA.PrintValidators()
		vb, errB := cB.PrintValidators()
		return errA == nil && errB == nil && len(va.Validators) == 1 && len(vb.Validators) == 1
	})

	balanced, err := cA.BalanceTransaction(string(walletPub), string(recipient), 10)
	require.NoError(t, err)
	committed, err := cA.CommitTransaction(string(balanced.Cbor), string(walletPriv))
	require.NoError(t, err)

	// Both tips converge on the committed block.
	eventually(t, "tips to converge", func() bool {
		tipA, errA := cA.Tip()
		tipB, errB := cB.Tip()
		return errA == nil && errB == nil && tipA == committed.BlockchainHash && tipB == committed.BlockchainHash
	})

	// A's block acquires B's co-signature: two confirmations show up in the
	// block listing (elected plus one vote).
	eventually(t, "co-signature to land", func() bool {
		blocks, err := cA.PrintBlockchain()
		if err != nil || len(blocks.Blocks) != 1 {
			return false
		}
		return strings.Contains(blocks.Blocks[0], "Confirmations (total 2):")
	})
}

func TestRetransmissionOverTCP(t *testing.T) {
	_, walletPub, err := crypto.GenerateWallet()
	require.NoError(t, err)
	_, peerPub, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfg := nodeConfig(t, walletPub)
	startNode(t, cfg)
	waitForPing(t, cfg.Address())
	c := client.New(cfg.Address())

	// The same on-boarding request id twice: the second answer is the empty
	// acknowledgement and the directory does not grow.
	req := protocol.NewClientRequest(protocol.OnBoardValidator{
		PublicKey:     peerPub,
		ReturnAddress: "127.0.0.1:1", // never dialed: no pre-existing peers to fan out to
	})
	first, err := gateway.Send(cfg.Address(), req)
	require.NoError(t, err)
	require.Nil(t, first.Body.Err)
	assert.IsType(t, protocol.OnBoardValidatorResponse{}, first.Body.Success)

	second, err := gateway.Send(cfg.Address(), req)
	require.NoError(t, err)
	require.Nil(t, second.Body.Err)
	assert.IsType(t, protocol.Nothing{}, second.Body.Success)

	validators, err := c.PrintValidators()
	require.NoError(t, err)
	assert.Len(t, validators.Validators, 1)
}

func TestUnknownCommandAnsweredWithError(t *testing.T) {
	_, walletPub, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfg := nodeConfig(t, walletPub)
	startNode(t, cfg)
	waitForPing(t, cfg.Address())

	// A hand-rolled envelope carrying a command variant nobody implements.
	payload, err := codec.Marshal(map[string]any{
		"request_id":        "raw-req-1",
		"parent_request_id": nil,
		"sender":            nil,
		"command":           "FoldBlocks",
	})
	require.NoError(t, err)

	conn, err := net.Dial("tcp", cfg.Address())
	require.NoError(t, err)
	defer conn.Close()
	var header [8]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
	_, err = conn.Write(header[:])
	require.NoError(t, err)
	_, err = conn.Write(payload)
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	raw, err := io.ReadAll(conn)
	require.NoError(t, err)
	resp, err := protocol.DecodeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "raw-req-1", resp.OrigRequestID)
	require.NotNil(t, resp.Body.Err)
	assert.Contains(t, resp.Body.Err.Msg, "unknown command")
}
