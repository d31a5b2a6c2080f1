package crypto

import "encoding/hex"

// AddressSize is the byte length of an Address.
const AddressSize = 20

// Address is a 20-byte identifier derived from a public key (see
// PublicKey.Address).
type Address [AddressSize]byte

// String renders the address as lowercase hex.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes a hex string into the address.
func (a *Address) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	var addr Address
	copy(addr[:], b)
	*a = addr
	return nil
}
