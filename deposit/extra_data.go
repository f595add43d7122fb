package deposit

import (
	"bytes"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/tmewc-io/bridge-go/common"
)

// DepositorFromEvmAddress returns the depositor identifier of an EVM account.
func DepositorFromEvmAddress(addr ethcommon.Address) common.Hex {
	return common.NewHex(addr.Bytes())
}

// ExtraDataFromEvmAddress left pads addr to the 32-byte extra data field,
// used when the minted tokens go to an account other than the depositor.
func ExtraDataFromEvmAddress(addr ethcommon.Address) common.Hex {
	return common.NewHex(ethcommon.LeftPadBytes(addr.Bytes(), ExtraDataLength))
}

func EvmAddressFromExtraData(extraData common.Hex) (ethcommon.Address, error) {
	b := extraData.Bytes()
	padding := ExtraDataLength - ethcommon.AddressLength
	if len(b) != ExtraDataLength || !bytes.Equal(b[:padding], make([]byte, padding)) {
		return ethcommon.Address{}, ErrInvalidExtraData
	}
	return ethcommon.BytesToAddress(b[padding:]), nil
}
