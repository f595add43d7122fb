package bitcoin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmewc-io/bridge-go/common"
)

func TestReadCompactSizeUint(t *testing.T) {
	cs, err := ReadCompactSizeUint(common.MustHexFromString("bb"))
	assert.NoError(t, err)
	assert.Equal(t, CompactSizeUint{Value: 187, ByteLength: 1}, cs)

	cs, err = ReadCompactSizeUint(common.MustHexFromString("fcffff"))
	assert.NoError(t, err)
	assert.Equal(t, CompactSizeUint{Value: 252, ByteLength: 1}, cs)

	cs, err = ReadCompactSizeUint(common.MustHexFromString("00"))
	assert.NoError(t, err)
	assert.Equal(t, CompactSizeUint{Value: 0, ByteLength: 1}, cs)
}

func TestReadCompactSizeUintUnsupported(t *testing.T) {
	for _, data := range []string{"fd1234", "fe12345678", "ff1234567890abcdef"} {
		_, err := ReadCompactSizeUint(common.MustHexFromString(data))
		assert.ErrorIs(t, err, ErrUnsupportedCompactSizeWidth, data)
		assert.ErrorIs(t, err, ErrUnsupportedEncoding, data)
	}
}

func TestReadCompactSizeUintEmpty(t *testing.T) {
	_, err := ReadCompactSizeUint(common.Hex{})
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.ErrorIs(t, err, ErrMalformedInput)
}
