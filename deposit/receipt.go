package deposit

import (
	"fmt"

	"github.com/tmewc-io/bridge-go/common"
)

const (
	DepositorLength      = 20
	BlindingFactorLength = 8
	PublicKeyHashLength  = 20
	RefundLocktimeLength = 4
	ExtraDataLength      = 32
)

// Receipt holds everything needed to rebuild a deposit script.
type Receipt struct {
	// Depositor is the identifier of the depositor on the settlement chain.
	Depositor common.Hex `json:"depositor"`
	// BlindingFactor makes the script unique for otherwise identical deposits.
	BlindingFactor      common.Hex `json:"blindingFactor"`
	WalletPublicKeyHash common.Hex `json:"walletPublicKeyHash"`
	RefundPublicKeyHash common.Hex `json:"refundPublicKeyHash"`
	// RefundLocktime is a 4-byte little-endian Unix timestamp.
	RefundLocktime common.Hex  `json:"refundLocktime"`
	ExtraData      *common.Hex `json:"extraData,omitempty"`
}

// Validate checks field lengths and returns the first offending field as a
// *ReceiptError.
func (r Receipt) Validate() error {
	fields := []struct {
		name   string
		value  common.Hex
		length int
	}{
		{"depositor", r.Depositor, DepositorLength},
		{"blinding factor", r.BlindingFactor, BlindingFactorLength},
		{"wallet public key hash", r.WalletPublicKeyHash, PublicKeyHashLength},
		{"refund public key hash", r.RefundPublicKeyHash, PublicKeyHashLength},
		{"refund locktime", r.RefundLocktime, RefundLocktimeLength},
	}
	for _, f := range fields {
		if err := checkLength(f.name, f.value, f.length); err != nil {
			return err
		}
	}
	if r.ExtraData != nil {
		return checkLength("extra data", *r.ExtraData, ExtraDataLength)
	}
	return nil
}

func checkLength(name string, value common.Hex, length int) error {
	if value.IsEmpty() {
		return &ReceiptError{Field: name, Reason: "is missing"}
	}
	if value.Len() != length {
		return &ReceiptError{Field: name, Reason: fmt.Sprintf("must be %d bytes, got %d", length, value.Len())}
	}
	return nil
}
