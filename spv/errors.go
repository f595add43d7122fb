package spv

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientConfirmations    = errors.New("transaction has not enough confirmations")
	ErrInvalidProof                 = errors.New("invalid SPV proof")
	ErrInvalidRequiredConfirmations = errors.New("required confirmations must be at least 1")
)

type ConfirmationsError struct {
	Got      int64
	Required int
}

func (e *ConfirmationsError) Error() string {
	return fmt.Sprintf("%v: required %d, got %d", ErrInsufficientConfirmations, e.Required, e.Got)
}

func (e *ConfirmationsError) Unwrap() error {
	return ErrInsufficientConfirmations
}
