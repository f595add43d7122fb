package bitcoin

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tmewc-io/bridge-go/common"
)

// LocktimeThreshold separates block height locktimes (below) from Unix
// timestamp locktimes (at or above).
const LocktimeThreshold = 500_000_000

// LocktimeToNumber converts a 4-byte little-endian locktime to a number.
// Whether the result is a block height or a Unix timestamp is up to the
// caller, see IsLocktimeTimestamp.
func LocktimeToNumber(locktimeLE common.Hex) (uint32, error) {
	if locktimeLE.Len() != 4 {
		return 0, fmt.Errorf("%w: locktime must be 4 bytes, got %d", ErrMalformedInput, locktimeLE.Len())
	}
	return binary.BigEndian.Uint32(locktimeLE.Reverse().Bytes()), nil
}

func IsLocktimeTimestamp(locktime uint32) bool {
	return locktime >= LocktimeThreshold
}

// CalculateLocktime returns the 4-byte little-endian locktime for a lock
// starting at startedAt (Unix seconds) and lasting duration seconds.
//
// The sum must need exactly 4 bytes in its minimal big-endian form, so
// values below 2^24 are rejected along with values above 2^32-1.
func CalculateLocktime(startedAt, duration int64) (common.Hex, error) {
	locktime := startedAt + duration
	if duration > 0 && locktime < startedAt {
		return common.Hex{}, ErrLocktimeOverflow
	}
	if locktime < 1<<24 || locktime > math.MaxUint32 {
		return common.Hex{}, fmt.Errorf("%w: got %d", ErrLocktimeOverflow, locktime)
	}

	var be [4]byte
	binary.BigEndian.PutUint32(be[:], uint32(locktime))
	return common.NewHex(be[:]).Reverse(), nil
}
