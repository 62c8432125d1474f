package crypto

import (
	"errors"
	"testing"
)

func TestSignVerify(t *testing.T) {
	priv, pub, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	msg := []byte("hello world")
	sig, err := Sign(priv, msg)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := Verify(pub, msg, sig); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerifyWrongMessage(t *testing.T) {
	priv, pub, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	sig, err := Sign(priv, []byte("hello world"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	err = Verify(pub, []byte("hello space"), sig)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Verify() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	priv, _, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	_, otherPub, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}

	sig, err := Sign(priv, []byte("hello world"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	err = Verify(otherPub, []byte("hello world"), sig)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("Verify() error = %v, want ErrSignatureMismatch", err)
	}
}

func TestMalformedInputs(t *testing.T) {
	priv, pub, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	sig, err := Sign(priv, []byte("msg"))
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"non-hex public key", Verify("zz", []byte("msg"), sig), ErrMalformedKey},
		{"truncated der public key", Verify("abcd", []byte("msg"), sig), ErrMalformedKey},
		{"non-hex signature", Verify(pub, []byte("msg"), "zz"), ErrMalformedSignature},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	if _, err := PrivateKey("not-hex").RSAKey(); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("PrivateKey.RSAKey() error = %v, want ErrMalformedKey", err)
	}
}

func TestPrivateKeyPublicRoundTrip(t *testing.T) {
	priv, pub, err := GenerateWallet()
	if err != nil {
		t.Fatalf("GenerateWallet() error = %v", err)
	}
	derived, err := priv.Public()
	if err != nil {
		t.Fatalf("Public() error = %v", err)
	}
	if derived != pub {
		t.Errorf("Public() = %.20s..., want %.20s...", derived, pub)
	}
}
