package bitcoin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tmewc-io/bridge-go/common"
)

func TestLocktimeToNumber(t *testing.T) {
	n, err := LocktimeToNumber(common.MustHexFromString("60bcea61"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(1642773600), n)
	assert.True(t, IsLocktimeTimestamp(n))

	n, err = LocktimeToNumber(common.MustHexFromString("a0860100"))
	assert.NoError(t, err)
	assert.Equal(t, uint32(100000), n)
	assert.False(t, IsLocktimeTimestamp(n))

	_, err = LocktimeToNumber(common.MustHexFromString("60bcea"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestCalculateLocktime(t *testing.T) {
	// 1642773600 = 0x61eabc60
	locktime, err := CalculateLocktime(1640181600, 2592000)
	assert.NoError(t, err)
	assert.Equal(t, "60bcea61", locktime.String())

	n, err := LocktimeToNumber(locktime)
	assert.NoError(t, err)
	assert.Equal(t, uint32(1640181600+2592000), n)
}

func TestCalculateLocktimeBounds(t *testing.T) {
	locktime, err := CalculateLocktime(1<<24, 0)
	assert.NoError(t, err)
	assert.Equal(t, "00000001", locktime.String())

	locktime, err = CalculateLocktime(0xffffffff, 0)
	assert.NoError(t, err)
	assert.Equal(t, "ffffffff", locktime.String())

	_, err = CalculateLocktime(0xffffffff, 1)
	assert.ErrorIs(t, err, ErrLocktimeOverflow)

	_, err = CalculateLocktime(1<<24-1, 0)
	assert.ErrorIs(t, err, ErrLocktimeOverflow)
}
