package deposit

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReceipt   = errors.New("invalid deposit receipt")
	ErrNotFunded        = errors.New("deposit not funded yet")
	ErrFundingMismatch  = errors.New("funding output does not pay the deposit script")
	ErrInvalidExtraData = errors.New("extra data does not hold an EVM address")
)

// ReceiptError names the receipt field that failed validation.
type ReceiptError struct {
	Field  string
	Reason string
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidReceipt, e.Field, e.Reason)
}

func (e *ReceiptError) Unwrap() error {
	return ErrInvalidReceipt
}
