package codec

import (
	"bytes"
	"errors"
	"testing"
)

type sample struct {
	ID      string   `cbor:"id"`
	Amount  uint64   `cbor:"amount"`
	Entries []string `cbor:"entries"`
}

func TestRoundTrip(t *testing.T) {
	in := sample{ID: "abc", Amount: 42, Entries: []string{"x", "y"}}

	raw, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var out sample
	if err := Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.ID != in.ID || out.Amount != in.Amount || len(out.Entries) != 2 {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestDeterministicReencode(t *testing.T) {
	in := sample{ID: "abc", Amount: 42, Entries: []string{"x", "y"}}

	first, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded sample
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	second, err := Marshal(decoded)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("re-encoding changed bytes: %x != %x", first, second)
	}
}

func TestHexWrapping(t *testing.T) {
	in := sample{ID: "abc", Amount: 7}

	h, err := MarshalHex(in)
	if err != nil {
		t.Fatalf("MarshalHex() error = %v", err)
	}
	var out sample
	if err := h.UnmarshalHex(&out); err != nil {
		t.Fatalf("UnmarshalHex() error = %v", err)
	}
	if out.ID != in.ID || out.Amount != in.Amount {
		t.Errorf("hex round trip mismatch: got %+v, want %+v", out, in)
	}

	raw, err := h.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	direct, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !bytes.Equal(raw, direct) {
		t.Errorf("Bytes() = %x, want %x", raw, direct)
	}
}

func TestMalformedHex(t *testing.T) {
	var out sample
	if err := Hex("not hex").UnmarshalHex(&out); !errors.Is(err, ErrMalformedHex) {
		t.Errorf("UnmarshalHex() error = %v, want ErrMalformedHex", err)
	}
	if _, err := Hex("zz").Bytes(); !errors.Is(err, ErrMalformedHex) {
		t.Errorf("Bytes() error = %v, want ErrMalformedHex", err)
	}
}
