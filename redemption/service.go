package redemption

import (
	"context"
	"fmt"
	"math/big"

	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/btcman/utxo"
	"github.com/tmewc-io/bridge-go/common"
)

// satoshiMultiplier converts token amounts (1e18) to satoshi (1e8).
var satoshiMultiplier = big.NewInt(1e10)

// Client is the part of bitcoin.Client redemptions need.
type Client interface {
	GetNetwork(ctx context.Context) (bitcoin.Network, error)
	GetTransaction(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.Tx, error)
	GetTxHashesForPublicKeyHash(ctx context.Context, publicKeyHash common.Hex) ([]bitcoin.TxHash, error)
}

// WalletForRedemption is a wallet able to handle a redemption.
type WalletForRedemption struct {
	WalletPublicKey common.Hex
	MainUtxo        bitcoin.Utxo
}

// RequestArgs is what the token contract takes to request a redemption.
type RequestArgs struct {
	WalletPublicKey      common.Hex   `json:"walletPublicKey"`
	MainUtxo             bitcoin.Utxo `json:"mainUtxo"`
	RedeemerOutputScript common.Hex   `json:"redeemerOutputScript"`
	Amount               *big.Int     `json:"amount"`
}

// RedeemerOutputScript converts a redeemer address to its locking script,
// which must be P2PKH, P2WPKH, P2SH or P2WSH.
func RedeemerOutputScript(address string, network bitcoin.Network) (common.Hex, error) {
	script, err := bitcoin.AddressToOutputScript(address, network)
	if err != nil {
		return common.Hex{}, err
	}
	if _, err := bitcoin.ClassifyOutputScript(script); err != nil {
		return common.Hex{}, ErrNonStandardRedeemer
	}
	return script, nil
}

type Service struct {
	bridge Bridge
	client Client
}

func NewService(bridge Bridge, client Client) *Service {
	return &Service{bridge: bridge, client: client}
}

// PrepareRedemptionRequest picks a wallet for redeeming amount (token
// precision) to redeemerAddress.
func (s *Service) PrepareRedemptionRequest(ctx context.Context, redeemerAddress string, amount *big.Int) (*RequestArgs, error) {
	network, err := s.client.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}
	script, err := RedeemerOutputScript(redeemerAddress, network)
	if err != nil {
		return nil, err
	}

	satoshi := new(big.Int).Div(amount, satoshiMultiplier)
	if !satoshi.IsInt64() {
		return nil, fmt.Errorf("amount %s out of range", amount)
	}
	wallet, err := s.FindWalletForRedemption(ctx, script, satoshi.Int64())
	if err != nil {
		return nil, err
	}

	return &RequestArgs{
		WalletPublicKey:      wallet.WalletPublicKey,
		MainUtxo:             wallet.MainUtxo,
		RedeemerOutputScript: script,
		Amount:               new(big.Int).Set(amount),
	}, nil
}

// FindWalletForRedemption returns the first live wallet, oldest first, whose
// main UTXO covers amount satoshi on top of its pending redemptions and that
// has no pending request to the same output script.
func (s *Service) FindWalletForRedemption(ctx context.Context, redeemerOutputScript common.Hex, amount int64) (*WalletForRedemption, error) {
	walletPKHs, err := s.bridge.WalletPublicKeyHashes(ctx)
	if err != nil {
		return nil, err
	}
	network, err := s.client.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}

	var maxAmount int64
	liveWallets := 0

	for _, pkh := range walletPKHs {
		log := logger.WithField("walletPublicKeyHash", pkh.String())

		wallet, err := s.bridge.Wallet(ctx, pkh)
		if err != nil {
			return nil, err
		}
		if wallet.State != WalletLive {
			log.Debug("wallet is not live, skipping")
			continue
		}
		liveWallets++

		mainUtxo, err := s.determineMainUtxo(ctx, pkh, wallet.MainUtxoHash, network)
		if err != nil {
			return nil, err
		}
		if mainUtxo == nil {
			log.Debug("main utxo of wallet not found, skipping")
			continue
		}

		pending, err := s.bridge.PendingRedemption(ctx, wallet.PublicKey, redeemerOutputScript)
		if err != nil {
			return nil, err
		}
		if pending.RequestedAt != 0 {
			log.Debug("wallet has a pending redemption to the same output script, skipping")
			continue
		}

		balance := mainUtxo.Value - wallet.PendingRedemptionsValue
		if balance > maxAmount {
			maxAmount = balance
		}
		if balance >= amount {
			return &WalletForRedemption{WalletPublicKey: wallet.PublicKey, MainUtxo: *mainUtxo}, nil
		}
		log.WithField("balance", balance).Debug("wallet cannot handle the redemption, skipping")
	}

	if liveWallets == 0 {
		return nil, ErrNoLiveWallets
	}
	if maxAmount == 0 {
		return nil, ErrAllWalletsPending
	}
	return nil, &InsufficientFundsError{MaxAmount: maxAmount}
}

// DetermineWalletMainUtxo finds the outpoint registered as main UTXO of the
// wallet. It returns nil when the wallet has none or it cannot be found.
func (s *Service) DetermineWalletMainUtxo(ctx context.Context, walletPublicKeyHash common.Hex, network bitcoin.Network) (*bitcoin.Utxo, error) {
	wallet, err := s.bridge.Wallet(ctx, walletPublicKeyHash)
	if err != nil {
		return nil, err
	}
	return s.determineMainUtxo(ctx, walletPublicKeyHash, wallet.MainUtxoHash, network)
}

func (s *Service) determineMainUtxo(ctx context.Context, walletPublicKeyHash, mainUtxoHash common.Hex, network bitcoin.Network) (*bitcoin.Utxo, error) {
	if mainUtxoHash.IsEmpty() || mainUtxoHash.Equal(common.NewHex(make([]byte, 32))) {
		return nil, nil
	}

	scripts, err := utxo.WalletOutputScripts(walletPublicKeyHash, network)
	if err != nil {
		return nil, err
	}
	txHashes, err := s.client.GetTxHashesForPublicKeyHash(ctx, walletPublicKeyHash)
	if err != nil {
		return nil, err
	}

	// the most recent transaction is the likeliest to hold the main UTXO
	for i := len(txHashes) - 1; i >= 0; i-- {
		tx, err := s.client.GetTransaction(ctx, txHashes[i])
		if err != nil {
			return nil, err
		}
		candidate, ok := utxo.FindOutput(tx, scripts)
		if !ok {
			logger.WithField("txHash", tx.TransactionHash.String()).Error("wallet output not found in wallet transaction")
			continue
		}
		if utxo.IsMainUtxo(candidate, mainUtxoHash) {
			return &candidate, nil
		}
	}

	logger.WithFields(logger.Fields{
		"mainUtxoHash":        mainUtxoHash.PrefixedString(),
		"walletPublicKeyHash": walletPublicKeyHash.String(),
	}).Error("main utxo not found")
	return nil, nil
}

// GetRedemptionRequest returns the redemption request of the given type
// from walletPublicKey to redeemerAddress.
func (s *Service) GetRedemptionRequest(ctx context.Context, redeemerAddress string, walletPublicKey common.Hex, requestType RequestType) (*Request, error) {
	network, err := s.client.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}
	script, err := bitcoin.AddressToOutputScript(redeemerAddress, network)
	if err != nil {
		return nil, err
	}

	var request Request
	switch requestType {
	case Pending:
		request, err = s.bridge.PendingRedemption(ctx, walletPublicKey, script)
	case TimedOut:
		request, err = s.bridge.TimedOutRedemption(ctx, walletPublicKey, script)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRequestType, requestType)
	}
	if err != nil {
		return nil, err
	}
	if request.RequestedAt == 0 {
		return nil, ErrRequestNotFound
	}
	return &request, nil
}
