package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Signature is a detached ECDSA signature (ASN.1 DER encoded).
type Signature []byte

// Sign signs data (a SHA-256 digest of data is what's actually signed) with
// the private key and returns the detached signature.
func Sign(priv PrivateKey, data []byte) (Signature, error) {
	if priv.IsZero() {
		return nil, errors.New("crypto: sign called with empty private key")
	}
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, priv.key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return Signature(sig), nil
}

// Verify reports whether sig is a valid ECDSA signature over data under pub.
func Verify(pub PublicKey, data []byte, sig Signature) error {
	if pub.IsZero() {
		return errors.New("crypto: verify called with empty public key")
	}
	if len(sig) == 0 {
		return errors.New("crypto: verify called with empty signature")
	}
	digest := sha256.Sum256(data)
	if !ecdsa.VerifyASN1(pub.key, digest[:], sig) {
		return errors.New("crypto: signature verification failed")
	}
	return nil
}

// Hex returns the hex-encoded signature.
func (s Signature) Hex() string {
	return hex.EncodeToString(s)
}

// SignatureFromHex decodes a hex-encoded signature.
func SignatureFromHex(s string) (Signature, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	return Signature(b), nil
}

// MarshalJSON encodes the signature as a hex string.
func (s Signature) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.Hex() + `"`), nil
}

// UnmarshalJSON decodes a hex string into the signature.
func (s *Signature) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}
	if str == "" {
		*s = nil
		return nil
	}
	parsed, err := SignatureFromHex(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
