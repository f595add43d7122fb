package redemption

import (
	"errors"
	"fmt"

	"github.com/tmewc-io/bridge-go/bitcoin"
)

var (
	ErrNonStandardRedeemer    = fmt.Errorf("%w: redeemer output script must be of standard type", bitcoin.ErrUnsupportedScriptType)
	ErrNoLiveWallets          = errors.New("there are no live wallets in the network")
	ErrAllWalletsPending      = errors.New("all live wallets in the network have a pending redemption for the given address")
	ErrInsufficientFunds      = errors.New("could not find a wallet with enough funds")
	ErrRequestNotFound        = errors.New("redemption request does not exist")
	ErrUnsupportedRequestType = errors.New("unsupported redemption request type")
)

// InsufficientFundsError carries the largest amount any live wallet could
// redeem.
type InsufficientFundsError struct {
	MaxAmount int64 // satoshi
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v: maximum redemption amount is %d satoshi", ErrInsufficientFunds, e.MaxAmount)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
