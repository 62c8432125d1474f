// Package crypto holds the key material and signature primitives for the
// ledger: RSA-2048 keypairs carried around as hex-encoded PKCS#1 DER strings,
// and detached PKCS#1 v1.5 signatures over SHA-256 digests. A PublicKey
// doubles as a wallet address; equality is plain string equality.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
)

const keyBits = 2048

var (
	ErrMalformedKey       = errors.New("malformed key")
	ErrMalformedSignature = errors.New("malformed signature")
	ErrSignatureMismatch  = errors.New("signature mismatch")
)

// PublicKey is the hex-encoded PKCS#1 DER form of an RSA public key.
type PublicKey string

// PrivateKey is the hex-encoded PKCS#1 DER form of an RSA private key.
// It never travels on the wire.
type PrivateKey string

// Signature is a hex-encoded detached PKCS#1 v1.5 signature over SHA-256.
type Signature string

// GenerateWallet produces a fresh RSA-2048 keypair in wire form.
func GenerateWallet() (PrivateKey, PublicKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return "", "", fmt.Errorf("generating keypair: %w", err)
	}
	priv := PrivateKey(hex.EncodeToString(x509.MarshalPKCS1PrivateKey(key)))
	pub := PublicKey(hex.EncodeToString(x509.MarshalPKCS1PublicKey(&key.PublicKey)))
	return priv, pub, nil
}

// RSAKey decodes the private key back into its usable form.
func (k PrivateKey) RSAKey() (*rsa.PrivateKey, error) {
	der, err := hex.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("%w: private key is not hex: %v", ErrMalformedKey, err)
	}
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return key, nil
}

// Public derives the wire form of the matching public key.
func (k PrivateKey) Public() (PublicKey, error) {
	key, err := k.RSAKey()
	if err != nil {
		return "", err
	}
	return PublicKey(hex.EncodeToString(x509.MarshalPKCS1PublicKey(&key.PublicKey))), nil
}

// RSAKey decodes the public key back into its usable form.
func (k PublicKey) RSAKey() (*rsa.PublicKey, error) {
	der, err := hex.DecodeString(string(k))
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not hex: %v", ErrMalformedKey, err)
	}
	key, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return key, nil
}

// Sign produces a detached signature over msg with the given private key.
// The message is hashed with SHA-256 before signing.
func Sign(priv PrivateKey, msg []byte) (Signature, error) {
	key, err := priv.RSAKey()
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("signing: %w", err)
	}
	return Signature(hex.EncodeToString(sig)), nil
}

// Verify checks a detached signature over msg against the given public key.
func Verify(pub PublicKey, msg []byte, sig Signature) error {
	key, err := pub.RSAKey()
	if err != nil {
		return err
	}
	raw, err := hex.DecodeString(string(sig))
	if err != nil {
		return fmt.Errorf("%w: signature is not hex: %v", ErrMalformedSignature, err)
	}
	digest := sha256.Sum256(msg)
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return nil
}
