package crypto

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix defines the human-readable prefix attached to encoded
// addresses.
type AddressPrefix string

// MMPrefix is the prefix shared by accounts, collateral assets and
// collaborator contracts on the money-market network.
const MMPrefix AddressPrefix = "mm"

// AddressLength is the fixed byte length of raw addresses.
const AddressLength = 20

// Address represents a 20-byte account or contract identifier with a
// bech32 human-readable prefix.
type Address struct {
	prefix AddressPrefix
	raw    []byte
}

// NewAddress constructs an address from a prefix and a raw 20-byte payload.
// The payload is copied so callers cannot mutate the address afterwards.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes, got %d", AddressLength, len(b))
	}
	raw := append([]byte(nil), b...)
	return Address{prefix: prefix, raw: raw}, nil
}

// MustNewAddress is a test and genesis helper that panics on malformed input.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

// DecodeAddress parses a bech32-encoded address string.
func DecodeAddress(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// String renders the address in bech32 form. The zero address renders as an
// empty string so optional fields serialise cleanly.
func (a Address) String() string {
	if len(a.raw) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.raw, 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		return ""
	}
	return encoded
}

// Bytes returns a copy of the raw 20-byte payload, or nil for the zero
// address.
func (a Address) Bytes() []byte {
	if len(a.raw) == 0 {
		return nil
	}
	return append([]byte(nil), a.raw...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix { return a.prefix }

// IsZero reports whether the address is the uninitialised zero value.
func (a Address) IsZero() bool { return len(a.raw) == 0 }

// Equal reports whether two addresses carry the same raw payload.
func (a Address) Equal(other Address) bool {
	return bytes.Equal(a.raw, other.raw)
}

// MarshalText implements encoding.TextMarshaler using the bech32 form, which
// lets addresses serve as JSON values and map keys.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
