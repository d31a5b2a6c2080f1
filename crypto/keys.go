package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Curve is the elliptic curve used for every key pair on the chain.
var Curve = elliptic.P256()

// PrivateKey wraps an ECDSA (P-256) signing key.
type PrivateKey struct {
	key *ecdsa.PrivateKey
}

// PublicKey wraps an ECDSA (P-256) verifying key.
type PublicKey struct {
	key *ecdsa.PublicKey
}

// GenerateKeyPair generates a new ECDSA P-256 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	key, err := ecdsa.GenerateKey(Curve, rand.Reader)
	if err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	priv := PrivateKey{key: key}
	return priv, priv.Public(), nil
}

// Public derives the public key from the private key.
func (priv PrivateKey) Public() PublicKey {
	return PublicKey{key: &priv.key.PublicKey}
}

// Bytes returns the raw 32-byte big-endian scalar of the private key.
func (priv PrivateKey) Bytes() []byte {
	if priv.key == nil {
		return nil
	}
	b := make([]byte, 32)
	priv.key.D.FillBytes(b)
	return b
}

// Hex returns the hex-encoded private scalar.
func (priv PrivateKey) Hex() string {
	return hex.EncodeToString(priv.Bytes())
}

// IsZero reports whether priv holds no key material.
func (priv PrivateKey) IsZero() bool {
	return priv.key == nil
}

// PrivKeyFromBytes reconstructs a private key from its raw 32-byte scalar.
func PrivKeyFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != 32 {
		return PrivateKey{}, fmt.Errorf("privkey must be 32 bytes, got %d", len(b))
	}
	d := new(big.Int).SetBytes(b)
	x, y := Curve.ScalarBaseMult(b)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: Curve, X: x, Y: y},
		D:         d,
	}
	return PrivateKey{key: key}, nil
}

// PrivKeyFromHex decodes a hex-encoded private key.
func PrivKeyFromHex(s string) (PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("invalid privkey hex: %w", err)
	}
	return PrivKeyFromBytes(b)
}

// Bytes returns the uncompressed SEC1 encoding of the public key point.
func (pub PublicKey) Bytes() []byte {
	if pub.key == nil {
		return nil
	}
	return elliptic.Marshal(Curve, pub.key.X, pub.key.Y)
}

// Hex returns the hex-encoded uncompressed public key point.
func (pub PublicKey) Hex() string {
	return hex.EncodeToString(pub.Bytes())
}

// String returns the textual form of the public key used as the input to
// address derivation (see Address).
func (pub PublicKey) String() string {
	return pub.Hex()
}

// IsZero reports whether pub holds no key material.
func (pub PublicKey) IsZero() bool {
	return pub.key == nil
}

// Equal reports whether pub and other encode the same point.
func (pub PublicKey) Equal(other PublicKey) bool {
	if pub.key == nil || other.key == nil {
		return pub.key == other.key
	}
	return pub.key.Equal(other.key)
}

// Address derives a 20-byte address: the low 20 bytes of SHA-256 over the
// public key's textual form.
func (pub PublicKey) Address() Address {
	sum := Sum([]byte(pub.String()))
	var addr Address
	copy(addr[:], sum[Size-AddressSize:])
	return addr
}

// PubKeyFromBytes reconstructs a public key from its uncompressed SEC1
// encoding.
func PubKeyFromBytes(b []byte) (PublicKey, error) {
	x, y := elliptic.Unmarshal(Curve, b)
	if x == nil {
		return PublicKey{}, fmt.Errorf("invalid public key encoding (%d bytes)", len(b))
	}
	return PublicKey{key: &ecdsa.PublicKey{Curve: Curve, X: x, Y: y}}, nil
}

// PubKeyFromHex decodes a hex-encoded public key.
func PubKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid pubkey hex: %w", err)
	}
	return PubKeyFromBytes(b)
}

// MarshalJSON encodes the public key as a hex string.
func (pub PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + pub.Hex() + `"`), nil
}

// UnmarshalJSON decodes a hex string into the public key.
func (pub *PublicKey) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		*pub = PublicKey{}
		return nil
	}
	parsed, err := PubKeyFromHex(s)
	if err != nil {
		return err
	}
	*pub = parsed
	return nil
}
