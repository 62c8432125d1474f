// Package protocol defines the wire surface: Request/Response envelopes and
// the closed command and response unions. Variants encode serde-style: the
// payload-less commands and the Nothing response are their bare name string;
// every other variant, including the field-less SynchronizeBlockchainResponse
// and FullySynchronizedResponse, is a single-key map from the variant name to
// its fields. Unknown variant names are a decode error, never silently
// ignored.
package protocol

import (
	"errors"

	"github.com/google/uuid"

	"github.com/utxonet/utxonet/internal/crypto"
	"github.com/utxonet/utxonet/internal/peer"
)

var (
	ErrUnknownCommand    = errors.New("unknown command variant")
	ErrUnknownResponse   = errors.New("unknown response variant")
	ErrMalformedEnvelope = errors.New("malformed wire envelope")
	ErrAddressMissing    = errors.New("validator record carries no address")
)

// Validator is the wire form of a peer identity. Address is optional on the
// wire; a validator that cannot be dialed back carries none.
type Validator struct {
	Address   *string          `cbor:"address" json:"address"`
	PublicKey crypto.PublicKey `cbor:"public_key" json:"public_key"`
}

// NewValidator builds a wire validator with a dialable address.
func NewValidator(address string, pub crypto.PublicKey) Validator {
	return Validator{Address: &address, PublicKey: pub}
}

// FromPeer converts a directory entry to its wire form.
func FromPeer(p peer.Validator) Validator {
	return NewValidator(p.Address, p.PublicKey)
}

// Peer converts the wire record into a directory entry; it fails when the
// record carries no address.
func (v Validator) Peer() (peer.Validator, error) {
	if v.Address == nil {
		return peer.Validator{}, ErrAddressMissing
	}
	return peer.Validator{PublicKey: v.PublicKey, Address: *v.Address}, nil
}

// ValidatorWithSignature pairs a validator identity with its attestation over
// a transaction.
type ValidatorWithSignature struct {
	Validator Validator        `cbor:"validator" json:"validator"`
	Signature crypto.Signature `cbor:"signature" json:"signature"`
}

// Request is one inbound message: a unique id, the sending validator (absent
// for client requests), and the command. ParentRequestID links a fan-out
// request to the request that caused it.
type Request struct {
	RequestID       string
	ParentRequestID *string
	Sender          *Validator
	Command         Command
}

// NewClientRequest wraps a command as a client request (no sender).
func NewClientRequest(cmd Command) *Request {
	return &Request{RequestID: uuid.NewString(), Command: cmd}
}

// NewRequest wraps a command as a validator-to-validator request.
func NewRequest(sender Validator, cmd Command) *Request {
	return &Request{RequestID: uuid.NewString(), Sender: &sender, Command: cmd}
}

// NewRequestWithID wraps a command retaining an existing request id, the
// retransmission-safe form used by on-boarding fan-out.
func NewRequestWithID(sender Validator, cmd Command, requestID string) *Request {
	return &Request{RequestID: requestID, Sender: &sender, Command: cmd}
}

// WithParent records the request that caused this one.
func (r *Request) WithParent(parentID string) *Request {
	r.ParentRequestID = &parentID
	return r
}

// ResponseError is the error arm of a response body.
type ResponseError struct {
	Msg string `cbor:"msg" json:"msg"`
}

// ResponseBody is Success(CommandResponse) | Error{msg}.
type ResponseBody struct {
	Success CommandResponse
	Err     *ResponseError
}

// Response answers exactly one request.
type Response struct {
	OrigRequestID string
	Replier       Validator
	Body          ResponseBody
}

// NewSuccess builds a success response to the given request.
func NewSuccess(origRequestID string, replier Validator, resp CommandResponse) *Response {
	return &Response{
		OrigRequestID: origRequestID,
		Replier:       replier,
		Body:          ResponseBody{Success: resp},
	}
}

// NewError builds an error response to the given request.
func NewError(origRequestID string, replier Validator, msg string) *Response {
	return &Response{
		OrigRequestID: origRequestID,
		Replier:       replier,
		Body:          ResponseBody{Err: &ResponseError{Msg: msg}},
	}
}
