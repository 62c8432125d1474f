package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxonet/utxonet/internal/codec"
)

func TestRequestRoundTrip(t *testing.T) {
	sender := NewValidator("127.0.0.1:9065", "aabb")
	tests := []struct {
		name string
		req  *Request
	}{
		{"client ping", NewClientRequest(Ping{Msg: "hello"})},
		{"unit command", NewClientRequest(GenerateWallet{})},
		{"validator tip", NewRequest(sender, BlockchainTip{})},
		{"balance", NewClientRequest(BalanceTransaction{From: "aa", To: "bb", Amount: 7})},
		{"commit", NewClientRequest(CommitTransaction{SignedTransactionCbor: "deadbeef"})},
		{"onboard with retained id", NewRequestWithID(sender, OnBoardValidator{PublicKey: "cc", ReturnAddress: "127.0.0.1:9070"}, "fixed-id")},
		{"synchronize", NewRequest(sender, SynchronizeBlockchain{
			Signatures:                     []ValidatorWithSignature{{Validator: sender, Signature: "0011"}},
			TransactionCbor:                "beef",
			BlockchainTipBeforeTransaction: "aa",
			BlockchainTipAfterTransaction:  "bb",
		})},
		{"validation", NewRequest(sender, RequestTransactionValidation{
			BlockchainPreviousTip: "aa",
			BlockchainNewTip:      "bb",
			TransactionCbor:       "beef",
			ValidatorSignature:    ValidatorWithSignature{Validator: sender, Signature: "0011"},
			Validator:             sender,
		})},
		{"request sync", NewRequest(sender, RequestSynchronization{BlockchainTip: "aa"})},
		{"add signature", NewRequest(sender, AddValidatorSignature{Hash: "aa", ValidatorSignature: ValidatorWithSignature{Validator: sender, Signature: "0011"}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.req.Encode()
			require.NoError(t, err)

			got, err := DecodeRequest(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.req.RequestID, got.RequestID)
			assert.Equal(t, tt.req.Sender, got.Sender)
			assert.Equal(t, tt.req.Command, got.Command)

			// Re-encoding must reproduce the exact bytes.
			again, err := got.Encode()
			require.NoError(t, err)
			assert.Equal(t, raw, again)
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	replier := NewValidator("127.0.0.1:9065", "aabb")
	tests := []struct {
		name string
		resp *Response
	}{
		{"ping", NewSuccess("id-1", replier, PingResponse{Msg: "Original message: hi, PONG PONG"})},
		{"nothing", NewSuccess("id-2", replier, Nothing{})},
		{"balances", NewSuccess("id-3", replier, PrintBalancesResponse{
			Balances: []BalancePair{{Address: "aa....bb", Amount: 10}},
		})},
		{"onboard", NewSuccess("id-4", replier, OnBoardValidatorResponse{
			OnBoardingValidator: replier,
			Validators:          []Validator{replier},
			BlockchainTip:       "cc",
		})},
		{"validation", NewSuccess("id-5", replier, RequestTransactionValidationResponse{
			OldBlockchainTip:   "aa",
			NewBlockchainTip:   "bb",
			ValidatorPublicKey: "cc",
			TransactionCbor:    "beef",
			ValidatorSignature: "0011",
		})},
		{"sync payload", NewSuccess("id-6", replier, RequestSynchronizationResponse{
			PreviousHash:    "aa",
			NextHash:        "bb",
			TransactionCbor: "beef",
			Signatures:      []ValidatorWithSignature{{Validator: replier, Signature: "0011"}},
		})},
		{"fully synchronized", NewSuccess("id-7", replier, FullySynchronizedResponse{})},
		{"empty ack", NewSuccess("id-8", replier, SynchronizeBlockchainResponse{})},
		{"error", NewError("id-9", replier, "boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.resp.Encode()
			require.NoError(t, err)

			got, err := DecodeResponse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.resp.OrigRequestID, got.OrigRequestID)
			assert.Equal(t, tt.resp.Replier, got.Replier)
			if tt.resp.Body.Err != nil {
				require.NotNil(t, got.Body.Err)
				assert.Equal(t, tt.resp.Body.Err.Msg, got.Body.Err.Msg)
			} else {
				assert.Equal(t, tt.resp.Body.Success, got.Body.Success)
			}
		})
	}
}

func TestUnknownVariantsRejected(t *testing.T) {
	// A bare name that is not a unit variant.
	raw, err := codec.Marshal("FoldBlocks")
	require.NoError(t, err)
	_, err = UnmarshalCommand(raw)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	// A map-form variant nobody knows.
	raw, err = codec.Marshal(map[string]map[string]string{"ResolveBlockContention": {"hash": "aa"}})
	require.NoError(t, err)
	_, err = UnmarshalCommand(raw)
	assert.ErrorIs(t, err, ErrUnknownCommand)

	raw, err = codec.Marshal("SomethingElse")
	require.NoError(t, err)
	_, err = UnmarshalResponse(raw)
	assert.ErrorIs(t, err, ErrUnknownResponse)
}

func TestMalformedEnvelopes(t *testing.T) {
	// Two variants in one command map.
	raw, err := codec.Marshal(map[string]map[string]string{
		"PingCommand":            {"msg": "a"},
		"RequestSynchronization": {"blockchain_tip": "b"},
	})
	require.NoError(t, err)
	_, err = UnmarshalCommand(raw)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)

	// A response body with an unknown arm.
	raw, err = codec.Marshal(map[string]map[string]string{"Maybe": {}})
	require.NoError(t, err)
	var body ResponseBody
	assert.ErrorIs(t, body.UnmarshalCBOR(raw), ErrMalformedEnvelope)

	_, err = DecodeRequest([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestValidatorPeerConversion(t *testing.T) {
	v := NewValidator("127.0.0.1:9065", "aabb")
	p, err := v.Peer()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9065", p.Address)
	assert.Equal(t, v.PublicKey, p.PublicKey)
	assert.Equal(t, v, FromPeer(p))

	_, err = Validator{PublicKey: "aabb"}.Peer()
	assert.ErrorIs(t, err, ErrAddressMissing)
}
