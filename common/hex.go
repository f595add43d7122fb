package common

/*
Hex is the byte string type shared by every bitcoin-facing package.

Bitcoin hashes are stored internally in little-endian order while block
explorers display them reversed. Hex therefore exposes Reverse() explicitly
and never guesses which order a value is in.
*/

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hex is an immutable byte sequence with hex string encodings.
// The zero value is an empty sequence.
type Hex struct {
	b []byte
}

// NewHex copies b into a new Hex value.
func NewHex(b []byte) Hex {
	return Hex{b: bytes.Clone(b)}
}

// HexFromString decodes a hex string, with or without 0x prefix.
func HexFromString(s string) (Hex, error) {
	str := Trim0xPrefix(s)
	if len(str)%2 != 0 {
		return Hex{}, fmt.Errorf("odd length hex string: %q", s)
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return Hex{}, fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	return Hex{b: b}, nil
}

// MustHexFromString is like HexFromString but panics on malformed input.
// Intended for constants and tests.
func MustHexFromString(s string) Hex {
	h, err := HexFromString(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Bytes returns a copy of the underlying bytes.
func (h Hex) Bytes() []byte {
	return bytes.Clone(h.b)
}

// String returns the un-prefixed lowercase hex representation.
func (h Hex) String() string {
	return hex.EncodeToString(h.b)
}

// PrefixedString returns the hex representation with 0x prefix.
func (h Hex) PrefixedString() string {
	return Prepend0xPrefix(h.String())
}

// Reverse returns a new Hex with the byte order flipped.
func (h Hex) Reverse() Hex {
	r := make([]byte, len(h.b))
	for i, c := range h.b {
		r[len(h.b)-1-i] = c
	}
	return Hex{b: r}
}

func (h Hex) Equal(o Hex) bool {
	return bytes.Equal(h.b, o.b)
}

func (h Hex) Len() int {
	return len(h.b)
}

func (h Hex) IsEmpty() bool {
	return len(h.b) == 0
}

// MarshalJSON encodes the value as an un-prefixed hex string.
func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON accepts prefixed and un-prefixed hex strings.
func (h *Hex) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := HexFromString(s)
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ConcatHex joins values in order.
func ConcatHex(values ...Hex) Hex {
	var buf bytes.Buffer
	for _, v := range values {
		buf.Write(v.b)
	}
	return Hex{b: buf.Bytes()}
}
