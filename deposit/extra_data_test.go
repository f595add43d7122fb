package deposit

import (
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/tmewc-io/bridge-go/common"
)

func TestExtraData(t *testing.T) {
	addr := ethcommon.HexToAddress("0x8ddF05F9A5c488b4973897E278B58895bF87Cb24")

	extra := ExtraDataFromEvmAddress(addr)
	assert.Equal(t, "0000000000000000000000008ddf05f9a5c488b4973897e278b58895bf87cb24", extra.String())

	back, err := EvmAddressFromExtraData(extra)
	assert.NoError(t, err)
	assert.Equal(t, addr, back)

	_, err = EvmAddressFromExtraData(common.MustHexFromString(testExtraData))
	assert.ErrorIs(t, err, ErrInvalidExtraData)
	_, err = EvmAddressFromExtraData(common.NewHex(addr.Bytes()))
	assert.ErrorIs(t, err, ErrInvalidExtraData)

	assert.Equal(t, "8ddf05f9a5c488b4973897e278b58895bf87cb24", DepositorFromEvmAddress(addr).String())

	r := testReceipt()
	r.Depositor = DepositorFromEvmAddress(addr)
	r.ExtraData = &extra
	assert.NoError(t, r.Validate())
}
