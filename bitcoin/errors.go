package bitcoin

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrEmptyInput     = fmt.Errorf("%w: empty input", ErrMalformedInput)

	ErrUnsupportedEncoding         = errors.New("unsupported encoding")
	ErrUnsupportedCompactSizeWidth = fmt.Errorf("%w: support for 3, 5 and 9 bytes compact size uints is not implemented", ErrUnsupportedEncoding)
	ErrUnsupportedAddressType      = fmt.Errorf("%w: address must be P2PKH or P2WPKH valid for given network", ErrUnsupportedEncoding)
	ErrUnsupportedScriptType       = fmt.Errorf("%w: script must be P2PKH, P2WPKH, P2SH or P2WSH", ErrUnsupportedEncoding)
	ErrInvalidAddress              = fmt.Errorf("%w: address not valid for given network", ErrUnsupportedEncoding)

	ErrUnsupportedNetwork = errors.New("network not supported")
	ErrLocktimeOverflow   = errors.New("locktime must be a 4 bytes number")

	ErrChainDiscontinuity   = errors.New("header does not reference previous header")
	ErrInsufficientWork     = errors.New("insufficient work in the header")
	ErrUnexpectedDifficulty = errors.New("header difficulty not at current or previous difficulty")
	ErrDifficultyRegression = errors.New("header must be at current difficulty")

	// ErrTransactionNotFound must be returned (possibly wrapped) by Client
	// implementations when a transaction is unknown to the backend, so it
	// can be told apart from transient I/O failures.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// HeaderChainError reports the first violation found while validating a
// chain of block headers.
type HeaderChainError struct {
	Kind  error
	Index int
}

func (e *HeaderChainError) Error() string {
	return fmt.Sprintf("invalid headers chain; problem with header index %d: %v", e.Index, e.Kind)
}

func (e *HeaderChainError) Unwrap() error {
	return e.Kind
}

func headerErr(kind error, index int) error {
	return &HeaderChainError{Kind: kind, Index: index}
}
