package redemption

import (
	"context"

	"github.com/tmewc-io/bridge-go/common"
)

type WalletState int

const (
	WalletUnknown WalletState = iota
	WalletLive
	WalletMovingFunds
	WalletClosing
	WalletClosed
	WalletTerminated
)

// Wallet is the bridge view of a custodial wallet.
type Wallet struct {
	PublicKey common.Hex
	// MainUtxoHash is zero when the wallet has no main UTXO yet.
	MainUtxoHash            common.Hex
	PendingRedemptionsValue int64 // satoshi
	State                   WalletState
}

// Request is a redemption request registered on the bridge. A zero
// RequestedAt means no such request exists.
type Request struct {
	Redeemer             common.Hex `json:"redeemer"`
	RedeemerOutputScript common.Hex `json:"redeemerOutputScript"`
	RequestedAmount      int64      `json:"requestedAmount"`
	TreasuryFee          int64      `json:"treasuryFee"`
	TxMaxFee             int64      `json:"txMaxFee"`
	RequestedAt          int64      `json:"requestedAt"`
}

type RequestType string

const (
	Pending  RequestType = "pending"
	TimedOut RequestType = "timedOut"
)

// Bridge is the read-only view of the bridge contract redemptions need.
type Bridge interface {
	// WalletPublicKeyHashes lists the registered wallets, oldest first.
	WalletPublicKeyHashes(ctx context.Context) ([]common.Hex, error)
	Wallet(ctx context.Context, walletPublicKeyHash common.Hex) (Wallet, error)
	PendingRedemption(ctx context.Context, walletPublicKey, redeemerOutputScript common.Hex) (Request, error)
	TimedOutRedemption(ctx context.Context, walletPublicKey, redeemerOutputScript common.Hex) (Request, error)
}
