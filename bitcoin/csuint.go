package bitcoin

import (
	"github.com/tmewc-io/bridge-go/common"
)

// CompactSizeUint is a decoded compact size uint along with the number of
// bytes it occupied.
type CompactSizeUint struct {
	Value      uint64
	ByteLength int
}

// ReadCompactSizeUint reads the leading compact size uint of varLenData.
//
// Only 1-byte compact size uints (values 0-252) are supported. The 0xfd,
// 0xfe and 0xff discriminants fail with ErrUnsupportedCompactSizeWidth; the
// settlement contracts share this limitation.
func ReadCompactSizeUint(varLenData common.Hex) (CompactSizeUint, error) {
	if varLenData.IsEmpty() {
		return CompactSizeUint{}, ErrEmptyInput
	}

	// The first byte is the discriminant telling the width of the value.
	discriminant := varLenData.Bytes()[0]
	switch discriminant {
	case 0xfd, 0xfe, 0xff:
		return CompactSizeUint{}, ErrUnsupportedCompactSizeWidth
	default:
		return CompactSizeUint{Value: uint64(discriminant), ByteLength: 1}, nil
	}
}
