// Package client is the typed front-end to a validator's wire protocol, used
// by the command-line tools and the end-to-end tests.
package client

import (
	"errors"
	"fmt"

	"github.com/utxonet/utxonet/internal/codec"
	"github.com/utxonet/utxonet/internal/crypto"
	"github.com/utxonet/utxonet/internal/gateway"
	"github.com/utxonet/utxonet/internal/ledger"
	"github.com/utxonet/utxonet/internal/protocol"
)

var ErrUnexpectedResponse = errors.New("unexpected response variant")

// Client talks to one validator.
type Client struct {
	destination string
}

// New points a client at a validator's host:port.
func New(destination string) *Client {
	return &Client{destination: destination}
}

// call sends one client request and unwraps the response body.
func (c *Client) call(cmd protocol.Command) (protocol.CommandResponse, error) {
	resp, err := gateway.Send(c.destination, protocol.NewClientRequest(cmd))
	if err != nil {
		return nil, err
	}
	if resp.Body.Err != nil {
		return nil, errors.New(resp.Body.Err.Msg)
	}
	return resp.Body.Success, nil
}

// Ping checks the validator answers.
func (c *Client) Ping(msg string) (protocol.PingResponse, error) {
	resp, err := c.call(protocol.Ping{Msg: msg})
	if err != nil {
		return protocol.PingResponse{}, err
	}
	pong, ok := resp.(protocol.PingResponse)
	if !ok {
		return protocol.PingResponse{}, unexpected(resp)
	}
	return pong, nil
}

// GenerateWallet asks the validator for a fresh keypair.
func (c *Client) GenerateWallet() (protocol.GenerateWalletResponse, error) {
	resp, err := c.call(protocol.GenerateWallet{})
	if err != nil {
		return protocol.GenerateWalletResponse{}, err
	}
	wallet, ok := resp.(protocol.GenerateWalletResponse)
	if !ok {
		return protocol.GenerateWalletResponse{}, unexpected(resp)
	}
	return wallet, nil
}

// PrintBalances fetches the per-address unspent sums.
func (c *Client) PrintBalances() (protocol.PrintBalancesResponse, error) {
	resp, err := c.call(protocol.PrintBalances{})
	if err != nil {
		return protocol.PrintBalancesResponse{}, err
	}
	balances, ok := resp.(protocol.PrintBalancesResponse)
	if !ok {
		return protocol.PrintBalancesResponse{}, unexpected(resp)
	}
	return balances, nil
}

// PrintValidators fetches the peer directory.
func (c *Client) PrintValidators() (protocol.PrintValidatorsResponse, error) {
	resp, err := c.call(protocol.PrintValidators{})
	if err != nil {
		return protocol.PrintValidatorsResponse{}, err
	}
	validators, ok := resp.(protocol.PrintValidatorsResponse)
	if !ok {
		return protocol.PrintValidatorsResponse{}, unexpected(resp)
	}
	return validators, nil
}

// PrintBlockchain fetches the formatted block listing.
func (c *Client) PrintBlockchain() (protocol.PrintBlockchainResponse, error) {
	resp, err := c.call(protocol.PrintBlockchain{})
	if err != nil {
		return protocol.PrintBlockchainResponse{}, err
	}
	blocks, ok := resp.(protocol.PrintBlockchainResponse)
	if !ok {
		return protocol.PrintBlockchainResponse{}, unexpected(resp)
	}
	return blocks, nil
}

// BalanceTransaction asks the validator to compute a transfer.
func (c *Client) BalanceTransaction(from, to string, amount uint64) (protocol.BalanceTransactionResponse, error) {
	resp, err := c.call(protocol.BalanceTransaction{From: from, To: to, Amount: amount})
	if err != nil {
		return protocol.BalanceTransactionResponse{}, err
	}
	balanced, ok := resp.(protocol.BalanceTransactionResponse)
	if !ok {
		return protocol.BalanceTransactionResponse{}, unexpected(resp)
	}
	return balanced, nil
}

// CommitTransaction signs the balanced transaction with the sender's private
// key and submits it.
func (c *Client) CommitTransaction(transactionCbor string, privateKey string) (protocol.CommitTransactionResponse, error) {
	balanced, err := ledger.DecodeBalancedTransaction(codec.Hex(transactionCbor))
	if err != nil {
		return protocol.CommitTransactionResponse{}, err
	}
	signed, err := balanced.Sign(crypto.PrivateKey(privateKey))
	if err != nil {
		return protocol.CommitTransactionResponse{}, err
	}
	encoded, err := signed.Encode()
	if err != nil {
		return protocol.CommitTransactionResponse{}, err
	}

	resp, err := c.call(protocol.CommitTransaction{SignedTransactionCbor: encoded})
	if err != nil {
		return protocol.CommitTransactionResponse{}, err
	}
	committed, ok := resp.(protocol.CommitTransactionResponse)
	if !ok {
		return protocol.CommitTransactionResponse{}, unexpected(resp)
	}
	return committed, nil
}

// Tip fetches the validator's chain hash.
func (c *Client) Tip() (string, error) {
	resp, err := c.call(protocol.BlockchainTip{})
	if err != nil {
		return "", err
	}
	tip, ok := resp.(protocol.BlockchainTipResponse)
	if !ok {
		return "", unexpected(resp)
	}
	return tip.BlockchainTipHash, nil
}

func unexpected(resp protocol.CommandResponse) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.ResponseName())
}
