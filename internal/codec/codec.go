// Package codec is the canonical encoding used both on the wire and as the
// signing preimage. Values encode to deterministic CBOR (RFC 8949 core
// deterministic form), so re-encoding a decoded value reproduces the exact
// byte string a signature was made over.
package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrMalformedHex = errors.New("malformed hex payload")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v into canonical CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes canonical CBOR into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Sum256 hashes data with SHA-256.
func Sum256(data []byte) []byte {
	digest := sha256.Sum256(data)
	return digest[:]
}

// Hex is the hex-wrapped canonical encoding of a value, the form transaction
// payloads take inside wire messages.
type Hex string

// MarshalHex encodes v canonically and hex-wraps the result.
func MarshalHex(v any) (Hex, error) {
	raw, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Hex(hex.EncodeToString(raw)), nil
}

// UnmarshalHex unwraps the hex layer and decodes the canonical bytes into v.
func (h Hex) UnmarshalHex(v any) error {
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return Unmarshal(raw, v)
}

// Bytes returns the raw encoded form under the hex wrapper.
func (h Hex) Bytes() ([]byte, error) {
	raw, err := hex.DecodeString(string(h))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return raw, nil
}
