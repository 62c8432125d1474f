package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/utxonet/utxonet/internal/codec"
)

// MarshalCommand encodes a command in its union form.
func MarshalCommand(c Command) (cbor.RawMessage, error) {
	switch c.(type) {
	case GenerateWallet, PrintBalances, PrintValidators, PrintBlockchain, BlockchainTip:
		raw, err := codec.Marshal(c.CommandName())
		return cbor.RawMessage(raw), err
	}
	payload, err := codec.Marshal(c)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Marshal(map[string]cbor.RawMessage{c.CommandName(): payload})
	return cbor.RawMessage(raw), err
}

// UnmarshalCommand decodes a union-encoded command. Unknown variant names are
// an error.
func UnmarshalCommand(data []byte) (Command, error) {
	var name string
	if err := codec.Unmarshal(data, &name); err == nil {
		switch name {
		case "GenerateWallet":
			return GenerateWallet{}, nil
		case "PrintBalances":
			return PrintBalances{}, nil
		case "PrintValidators":
			return PrintValidators{}, nil
		case "PrintBlockchain":
			return PrintBlockchain{}, nil
		case "BlockchainTip":
			return BlockchainTip{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
		}
	}

	var m map[string]cbor.RawMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: command map must carry exactly one variant", ErrMalformedEnvelope)
	}
	for name, payload := range m {
		var cmd Command
		switch name {
		case "PingCommand":
			cmd = &Ping{}
		case "BalanceTransaction":
			cmd = &BalanceTransaction{}
		case "CommitTransaction":
			cmd = &CommitTransaction{}
		case "OnBoardValidator":
			cmd = &OnBoardValidator{}
		case "SynchronizeBlockchain":
			cmd = &SynchronizeBlockchain{}
		case "RequestTransactionValidation":
			cmd = &RequestTransactionValidation{}
		case "RequestSynchronization":
			cmd = &RequestSynchronization{}
		case "AddValidatorSignature":
			cmd = &AddValidatorSignature{}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
		}
		if err := codec.Unmarshal(payload, cmd); err != nil {
			return nil, fmt.Errorf("%w: decoding %s payload: %v", ErrMalformedEnvelope, name, err)
		}
		return deref(cmd), nil
	}
	return nil, ErrMalformedEnvelope
}

// MarshalResponse encodes a success payload in its union form.
func MarshalResponse(r CommandResponse) (cbor.RawMessage, error) {
	if _, ok := r.(Nothing); ok {
		raw, err := codec.Marshal(r.ResponseName())
		return cbor.RawMessage(raw), err
	}
	payload, err := codec.Marshal(r)
	if err != nil {
		return nil, err
	}
	raw, err := codec.Marshal(map[string]cbor.RawMessage{r.ResponseName(): payload})
	return cbor.RawMessage(raw), err
}

// UnmarshalResponse decodes a union-encoded success payload.
func UnmarshalResponse(data []byte) (CommandResponse, error) {
	var name string
	if err := codec.Unmarshal(data, &name); err == nil {
		if name == "Nothing" {
			return Nothing{}, nil
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownResponse, name)
	}

	var m map[string]cbor.RawMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(m) != 1 {
		return nil, fmt.Errorf("%w: response map must carry exactly one variant", ErrMalformedEnvelope)
	}
	for name, payload := range m {
		var resp CommandResponse
		switch name {
		case "PingCommandResponse":
			resp = &PingResponse{}
		case "GenerateWalletResponse":
			resp = &GenerateWalletResponse{}
		case "PrintBalancesResponse":
			resp = &PrintBalancesResponse{}
		case "PrintValidatorsResponse":
			resp = &PrintValidatorsResponse{}
		case "BalanceTransactionResponse":
			resp = &BalanceTransactionResponse{}
		case "CommitTransactionResponse":
			resp = &CommitTransactionResponse{}
		case "PrintBlockchainResponse":
			resp = &PrintBlockchainResponse{}
		case "OnBoardValidatorResponse":
			resp = &OnBoardValidatorResponse{}
		case "SynchronizeBlockchainResponse":
			resp = &SynchronizeBlockchainResponse{}
		case "RequestTransactionValidationResponse":
			resp = &RequestTransactionValidationResponse{}
		case "RequestSynchronizationResponse":
			resp = &RequestSynchronizationResponse{}
		case "FullySynchronizedResponse":
			resp = &FullySynchronizedResponse{}
		case "BlockchainTipResponse":
			resp = &BlockchainTipResponse{}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownResponse, name)
		}
		if err := codec.Unmarshal(payload, resp); err != nil {
			return nil, fmt.Errorf("%w: decoding %s payload: %v", ErrMalformedEnvelope, name, err)
		}
		return derefResponse(resp), nil
	}
	return nil, ErrMalformedEnvelope
}

// deref unwraps the pointer decoding targets back into the value forms the
// handlers switch over.
func deref(c Command) Command {
	switch v := c.(type) {
	case *Ping:
		return *v
	case *BalanceTransaction:
		return *v
	case *CommitTransaction:
		return *v
	case *OnBoardValidator:
		return *v
	case *SynchronizeBlockchain:
		return *v
	case *RequestTransactionValidation:
		return *v
	case *RequestSynchronization:
		return *v
	case *AddValidatorSignature:
		return *v
	default:
		return c
	}
}

func derefResponse(r CommandResponse) CommandResponse {
	switch v := r.(type) {
	case *PingResponse:
		return *v
	case *GenerateWalletResponse:
		return *v
	case *PrintBalancesResponse:
		return *v
	case *PrintValidatorsResponse:
		return *v
	case *BalanceTransactionResponse:
		return *v
	case *CommitTransactionResponse:
		return *v
	case *PrintBlockchainResponse:
		return *v
	case *OnBoardValidatorResponse:
		return *v
	case *SynchronizeBlockchainResponse:
		return *v
	case *RequestTransactionValidationResponse:
		return *v
	case *RequestSynchronizationResponse:
		return *v
	case *FullySynchronizedResponse:
		return *v
	case *BlockchainTipResponse:
		return *v
	default:
		return r
	}
}

type wireRequest struct {
	RequestID       string          `cbor:"request_id"`
	ParentRequestID *string         `cbor:"parent_request_id"`
	Sender          *Validator      `cbor:"sender"`
	Command         cbor.RawMessage `cbor:"command"`
}

// MarshalCBOR encodes the request envelope with its union-encoded command.
func (r Request) MarshalCBOR() ([]byte, error) {
	cmd, err := MarshalCommand(r.Command)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(wireRequest{
		RequestID:       r.RequestID,
		ParentRequestID: r.ParentRequestID,
		Sender:          r.Sender,
		Command:         cmd,
	})
}

// UnmarshalCBOR decodes the request envelope, rejecting unknown commands.
func (r *Request) UnmarshalCBOR(data []byte) error {
	var w wireRequest
	if err := codec.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	cmd, err := UnmarshalCommand(w.Command)
	if err != nil {
		return err
	}
	r.RequestID = w.RequestID
	r.ParentRequestID = w.ParentRequestID
	r.Sender = w.Sender
	r.Command = cmd
	return nil
}

// MarshalCBOR encodes Success(resp) or Error{msg}.
func (b ResponseBody) MarshalCBOR() ([]byte, error) {
	if b.Err != nil {
		return codec.Marshal(map[string]ResponseError{"Error": *b.Err})
	}
	if b.Success == nil {
		return nil, fmt.Errorf("%w: response body carries neither success nor error", ErrMalformedEnvelope)
	}
	payload, err := MarshalResponse(b.Success)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(map[string]cbor.RawMessage{"Success": payload})
}

// UnmarshalCBOR decodes a response body arm.
func (b *ResponseBody) UnmarshalCBOR(data []byte) error {
	var m map[string]cbor.RawMessage
	if err := codec.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: response body must carry exactly one arm", ErrMalformedEnvelope)
	}
	for name, payload := range m {
		switch name {
		case "Success":
			resp, err := UnmarshalResponse(payload)
			if err != nil {
				return err
			}
			b.Success = resp
			b.Err = nil
			return nil
		case "Error":
			var e ResponseError
			if err := codec.Unmarshal(payload, &e); err != nil {
				return fmt.Errorf("%w: decoding error arm: %v", ErrMalformedEnvelope, err)
			}
			b.Err = &e
			b.Success = nil
			return nil
		default:
			return fmt.Errorf("%w: unknown response body arm %q", ErrMalformedEnvelope, name)
		}
	}
	return ErrMalformedEnvelope
}

type wireResponse struct {
	OrigRequestID string       `cbor:"orig_request_id"`
	Replier       Validator    `cbor:"replier"`
	Body          ResponseBody `cbor:"body"`
}

// MarshalCBOR encodes the response envelope.
func (r Response) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(wireResponse{
		OrigRequestID: r.OrigRequestID,
		Replier:       r.Replier,
		Body:          r.Body,
	})
}

// UnmarshalCBOR decodes the response envelope.
func (r *Response) UnmarshalCBOR(data []byte) error {
	var w wireResponse
	if err := codec.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	r.OrigRequestID = w.OrigRequestID
	r.Replier = w.Replier
	r.Body = w.Body
	return nil
}

// Encode serializes the request for the wire.
func (r *Request) Encode() ([]byte, error) {
	return codec.Marshal(r)
}

// PeekRequestID recovers the request id from an envelope that failed to
// decode fully, so a malformed command can still be answered with a protocol
// error instead of a dead socket.
func PeekRequestID(data []byte) (string, bool) {
	var w struct {
		RequestID string `cbor:"request_id"`
	}
	if err := codec.Unmarshal(data, &w); err != nil || w.RequestID == "" {
		return "", false
	}
	return w.RequestID, true
}

// DecodeRequest parses a wire request.
func DecodeRequest(data []byte) (*Request, error) {
	var r Request
	if err := codec.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Encode serializes the response for the wire.
func (r *Response) Encode() ([]byte, error) {
	return codec.Marshal(r)
}

// DecodeResponse parses a wire response.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := codec.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
