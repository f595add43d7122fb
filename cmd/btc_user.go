// BtcUser presents a depositor that
// 1) Holds the deposit receipt (blinding factor, refund data)
// 2) Watches the deposit address for funding
// 3) Prepares the reveal arguments once funded

package cmd

import (
	"context"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
	"github.com/tmewc-io/bridge-go/deposit"
)

const (
	// refund becomes available after this long by default
	DEFAULT_REFUND_LOCKTIME_DURATION = 30 * 24 * time.Hour
)

type BtcUserConfig struct {
	BtcRpcServer   string // btc rpc server info
	BtcRpcPort     string // btc rpc server info
	BtcRpcUsername string // btc rpc server info
	BtcRpcPwd      string // btc rpc server info

	DepositorEvmAddr       string        // receives the minted tokens
	WalletPublicKeyHash    string        // hex, 20 bytes
	RefundPublicKeyHash    string        // hex, 20 bytes
	RefundLocktimeDuration time.Duration // from now
	ExtraDataEvmAddr       string        // optional
}

type BtcUser struct {
	MyDeposit    *deposit.Deposit
	MyUserConfig *BtcUserConfig // contains a copy of user's config.
}

// NewReceipt builds a fresh receipt from buc, with a random blinding factor
// and the refund locktime counted from now.
func NewReceipt(buc *BtcUserConfig, now time.Time) (deposit.Receipt, error) {
	if !ethcommon.IsHexAddress(buc.DepositorEvmAddr) {
		return deposit.Receipt{}, fmt.Errorf("invalid depositor evm address %q", buc.DepositorEvmAddr)
	}
	walletPKH, err := common.HexFromString(buc.WalletPublicKeyHash)
	if err != nil {
		return deposit.Receipt{}, fmt.Errorf("invalid wallet public key hash: %w", err)
	}
	refundPKH, err := common.HexFromString(buc.RefundPublicKeyHash)
	if err != nil {
		return deposit.Receipt{}, fmt.Errorf("invalid refund public key hash: %w", err)
	}
	duration := buc.RefundLocktimeDuration
	if duration <= 0 {
		duration = DEFAULT_REFUND_LOCKTIME_DURATION
	}
	locktime, err := bitcoin.CalculateLocktime(now.Unix(), int64(duration/time.Second))
	if err != nil {
		return deposit.Receipt{}, err
	}

	receipt := deposit.Receipt{
		Depositor:           deposit.DepositorFromEvmAddress(ethcommon.HexToAddress(buc.DepositorEvmAddr)),
		BlindingFactor:      common.RandHex(deposit.BlindingFactorLength),
		WalletPublicKeyHash: walletPKH,
		RefundPublicKeyHash: refundPKH,
		RefundLocktime:      locktime,
	}
	if buc.ExtraDataEvmAddr != "" {
		if !ethcommon.IsHexAddress(buc.ExtraDataEvmAddr) {
			return deposit.Receipt{}, fmt.Errorf("invalid extra data evm address %q", buc.ExtraDataEvmAddr)
		}
		extra := deposit.ExtraDataFromEvmAddress(ethcommon.HexToAddress(buc.ExtraDataEvmAddr))
		receipt.ExtraData = &extra
	}
	return receipt, receipt.Validate()
}

// Create a new BTC user over client with a fresh deposit receipt.
func NewBtcUser(ctx context.Context, buc *BtcUserConfig, client deposit.FundingClient) (*BtcUser, error) {
	receipt, err := NewReceipt(buc, time.Now())
	if err != nil {
		return nil, err
	}
	d, err := deposit.NewDeposit(ctx, receipt, client)
	if err != nil {
		return nil, err
	}

	address, err := d.Address()
	if err != nil {
		return nil, err
	}
	logger.WithFields(logger.Fields{
		"address": address,
		"network": d.Network().String(),
	}).Info("Deposit Address Created")

	return &BtcUser{MyDeposit: d, MyUserConfig: buc}, nil
}

// Balance sums up the value of the UTXOs at the deposit address.
func (bu *BtcUser) Balance(ctx context.Context) (int64, error) {
	utxos, err := bu.MyDeposit.DetectFunding(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, u := range utxos {
		total += u.Value
	}
	return total, nil
}
