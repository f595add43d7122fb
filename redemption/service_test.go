package redemption

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/btcman/utxo"
	"github.com/tmewc-io/bridge-go/common"
)

const (
	redeemerAddress   = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
	redeemerScriptHex = "0014751e76e8199196d454941c45d1b3a323f1433bd6"
)

type fakeBridge struct {
	pkhs     []common.Hex
	wallets  map[string]Wallet
	pending  map[string]Request
	timedOut map[string]Request
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		wallets:  make(map[string]Wallet),
		pending:  make(map[string]Request),
		timedOut: make(map[string]Request),
	}
}

func requestKey(walletPublicKey, script common.Hex) string {
	return walletPublicKey.String() + ":" + script.String()
}

func (b *fakeBridge) addWallet(pkh common.Hex, w Wallet) {
	b.pkhs = append(b.pkhs, pkh)
	b.wallets[pkh.String()] = w
}

func (b *fakeBridge) WalletPublicKeyHashes(_ context.Context) ([]common.Hex, error) {
	return b.pkhs, nil
}

func (b *fakeBridge) Wallet(_ context.Context, pkh common.Hex) (Wallet, error) {
	w, ok := b.wallets[pkh.String()]
	if !ok {
		return Wallet{}, errors.New("unknown wallet")
	}
	return w, nil
}

func (b *fakeBridge) PendingRedemption(_ context.Context, walletPublicKey, script common.Hex) (Request, error) {
	return b.pending[requestKey(walletPublicKey, script)], nil
}

func (b *fakeBridge) TimedOutRedemption(_ context.Context, walletPublicKey, script common.Hex) (Request, error) {
	return b.timedOut[requestKey(walletPublicKey, script)], nil
}

func fundWallet(t *testing.T, client *bitcoin.SimulatedClient, pkh common.Hex, value int64) bitcoin.Utxo {
	address, err := bitcoin.PublicKeyHashToAddress(pkh, true, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	tx, err := client.FundAddress(address, value)
	require.NoError(t, err)
	client.MineBlocks(1)
	return utxoOf(tx, 0)
}

func utxoOf(tx *wire.MsgTx, index uint32) bitcoin.Utxo {
	h := tx.TxHash()
	return bitcoin.Utxo{
		TxOutpoint: bitcoin.TxOutpoint{TransactionHash: bitcoin.TxHashFromChainhash(&h), OutputIndex: index},
		Value:      tx.TxOut[index].Value,
	}
}

type testWallet struct {
	pkh       common.Hex
	publicKey common.Hex
	mainUtxo  bitcoin.Utxo
}

// setup registers a closed wallet followed by two live wallets holding
// 10000 (2000 of it pending redemption) and 100000 satoshi.
func setup(t *testing.T) (*Service, *fakeBridge, []testWallet) {
	client := bitcoin.NewSimulatedClient(bitcoin.NetworkTestnet)
	bridge := newFakeBridge()

	closed := testWallet{pkh: common.RandHex(20), publicKey: common.RandHex(33)}
	closed.mainUtxo = fundWallet(t, client, closed.pkh, 500000)
	bridge.addWallet(closed.pkh, Wallet{
		PublicKey:    closed.publicKey,
		MainUtxoHash: utxo.BuildMainUtxoHash(closed.mainUtxo),
		State:        WalletClosed,
	})

	small := testWallet{pkh: common.RandHex(20), publicKey: common.RandHex(33)}
	small.mainUtxo = fundWallet(t, client, small.pkh, 10000)
	bridge.addWallet(small.pkh, Wallet{
		PublicKey:               small.publicKey,
		MainUtxoHash:            utxo.BuildMainUtxoHash(small.mainUtxo),
		PendingRedemptionsValue: 2000,
		State:                   WalletLive,
	})

	large := testWallet{pkh: common.RandHex(20), publicKey: common.RandHex(33)}
	large.mainUtxo = fundWallet(t, client, large.pkh, 100000)
	bridge.addWallet(large.pkh, Wallet{
		PublicKey:    large.publicKey,
		MainUtxoHash: utxo.BuildMainUtxoHash(large.mainUtxo),
		State:        WalletLive,
	})

	return NewService(bridge, client), bridge, []testWallet{closed, small, large}
}

func TestRedeemerOutputScript(t *testing.T) {
	script, err := RedeemerOutputScript(redeemerAddress, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.Equal(t, redeemerScriptHex, script.String())

	script, err = RedeemerOutputScript("mrCDrCybB6J1vRfbwM5hemdJz73FwDBC8r", bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.True(t, bitcoin.IsP2PKHScript(script))

	script, err = RedeemerOutputScript("2MsFFCK16VhsCcvPXruztdzzcTZEQCbNKjJ", bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.True(t, bitcoin.IsP2SHScript(script))

	script, err = RedeemerOutputScript("tb1qqqqsyqcyq5rqwzqfpg9scrgwpugpzysnzs23v9ccrydpk8qarc0s4taa33", bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.True(t, bitcoin.IsP2WSHScript(script))

	_, err = RedeemerOutputScript("tb1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqp3mvzv", bitcoin.NetworkTestnet)
	assert.ErrorIs(t, err, ErrNonStandardRedeemer)
	assert.ErrorIs(t, err, bitcoin.ErrUnsupportedScriptType)

	_, err = RedeemerOutputScript("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", bitcoin.NetworkTestnet)
	assert.ErrorIs(t, err, bitcoin.ErrInvalidAddress)
}

func TestFindWalletForRedemption(t *testing.T) {
	ctx := context.Background()
	s, _, wallets := setup(t)
	script := common.MustHexFromString(redeemerScriptHex)

	found, err := s.FindWalletForRedemption(ctx, script, 8000)
	require.NoError(t, err)
	assert.True(t, wallets[1].publicKey.Equal(found.WalletPublicKey))
	assert.Equal(t, wallets[1].mainUtxo, found.MainUtxo)

	// the pending redemptions of the small wallet leave it 8000 satoshi
	found, err = s.FindWalletForRedemption(ctx, script, 8001)
	require.NoError(t, err)
	assert.True(t, wallets[2].publicKey.Equal(found.WalletPublicKey))
	assert.Equal(t, wallets[2].mainUtxo, found.MainUtxo)
}

func TestFindWalletForRedemptionSkipsPendingRedeemer(t *testing.T) {
	ctx := context.Background()
	s, bridge, wallets := setup(t)
	script := common.MustHexFromString(redeemerScriptHex)

	bridge.pending[requestKey(wallets[1].publicKey, script)] = Request{RequestedAmount: 1000, RequestedAt: 1700000000}

	found, err := s.FindWalletForRedemption(ctx, script, 1000)
	require.NoError(t, err)
	assert.True(t, wallets[2].publicKey.Equal(found.WalletPublicKey))

	bridge.pending[requestKey(wallets[2].publicKey, script)] = Request{RequestedAmount: 1000, RequestedAt: 1700000000}
	_, err = s.FindWalletForRedemption(ctx, script, 1000)
	assert.ErrorIs(t, err, ErrAllWalletsPending)

	other := common.MustHexFromString("76a91477bff20c60e522dfaa3350c39b030a5d004e839a88ac")
	_, err = s.FindWalletForRedemption(ctx, other, 1000)
	assert.NoError(t, err)
}

func TestFindWalletForRedemptionInsufficientFunds(t *testing.T) {
	s, _, _ := setup(t)

	_, err := s.FindWalletForRedemption(context.Background(), common.MustHexFromString(redeemerScriptHex), 100001)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var fundsErr *InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	assert.Equal(t, int64(100000), fundsErr.MaxAmount)
	assert.Contains(t, err.Error(), "maximum redemption amount is 100000 satoshi")
}

func TestFindWalletForRedemptionNoLiveWallets(t *testing.T) {
	s, bridge, wallets := setup(t)
	for _, w := range wallets {
		state := bridge.wallets[w.pkh.String()]
		state.State = WalletMovingFunds
		bridge.wallets[w.pkh.String()] = state
	}

	_, err := s.FindWalletForRedemption(context.Background(), common.MustHexFromString(redeemerScriptHex), 1)
	assert.ErrorIs(t, err, ErrNoLiveWallets)
}

func TestDetermineWalletMainUtxo(t *testing.T) {
	ctx := context.Background()
	client := bitcoin.NewSimulatedClient(bitcoin.NetworkTestnet)
	bridge := newFakeBridge()
	s := NewService(bridge, client)

	pkh := common.RandHex(20)
	older := fundWallet(t, client, pkh, 7000)
	newer := fundWallet(t, client, pkh, 9000)

	bridge.addWallet(pkh, Wallet{MainUtxoHash: utxo.BuildMainUtxoHash(older), State: WalletLive})
	found, err := s.DetermineWalletMainUtxo(ctx, pkh, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, older, *found)

	bridge.wallets[pkh.String()] = Wallet{MainUtxoHash: utxo.BuildMainUtxoHash(newer), State: WalletLive}
	found, err = s.DetermineWalletMainUtxo(ctx, pkh, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, newer, *found)

	bridge.wallets[pkh.String()] = Wallet{MainUtxoHash: common.NewHex(make([]byte, 32)), State: WalletLive}
	found, err = s.DetermineWalletMainUtxo(ctx, pkh, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.Nil(t, found)

	bridge.wallets[pkh.String()] = Wallet{MainUtxoHash: common.RandHex(32), State: WalletLive}
	found, err = s.DetermineWalletMainUtxo(ctx, pkh, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDetermineWalletMainUtxoLegacy(t *testing.T) {
	ctx := context.Background()
	client := bitcoin.NewSimulatedClient(bitcoin.NetworkTestnet)
	bridge := newFakeBridge()
	s := NewService(bridge, client)

	pkh := common.RandHex(20)
	address, err := bitcoin.PublicKeyHashToAddress(pkh, false, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	tx, err := client.FundAddress(address, 6000)
	require.NoError(t, err)
	client.MineBlocks(1)
	legacy := utxoOf(tx, 0)
	fundWallet(t, client, pkh, 9000)

	bridge.addWallet(pkh, Wallet{MainUtxoHash: utxo.BuildMainUtxoHash(legacy), State: WalletLive})
	found, err := s.DetermineWalletMainUtxo(ctx, pkh, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, legacy, *found)
}

func TestPrepareRedemptionRequest(t *testing.T) {
	s, _, wallets := setup(t)

	// 0.00005 BTC in token precision, plus dust below one satoshi
	amount, ok := new(big.Int).SetString("50000000000123", 10)
	require.True(t, ok)

	args, err := s.PrepareRedemptionRequest(context.Background(), redeemerAddress, amount)
	require.NoError(t, err)
	assert.True(t, wallets[1].publicKey.Equal(args.WalletPublicKey))
	assert.Equal(t, wallets[1].mainUtxo, args.MainUtxo)
	assert.Equal(t, redeemerScriptHex, args.RedeemerOutputScript.String())
	assert.Equal(t, 0, amount.Cmp(args.Amount))

	_, err = s.PrepareRedemptionRequest(context.Background(), "tb1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqp3mvzv", amount)
	assert.ErrorIs(t, err, ErrNonStandardRedeemer)
}

func TestGetRedemptionRequest(t *testing.T) {
	ctx := context.Background()
	s, bridge, wallets := setup(t)
	script := common.MustHexFromString(redeemerScriptHex)
	walletPublicKey := wallets[1].publicKey

	want := Request{
		Redeemer:             common.RandHex(20),
		RedeemerOutputScript: script,
		RequestedAmount:      5000,
		TreasuryFee:          10,
		TxMaxFee:             1000,
		RequestedAt:          1700000000,
	}
	bridge.pending[requestKey(walletPublicKey, script)] = want

	got, err := s.GetRedemptionRequest(ctx, redeemerAddress, walletPublicKey, Pending)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	_, err = s.GetRedemptionRequest(ctx, redeemerAddress, walletPublicKey, TimedOut)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	bridge.timedOut[requestKey(walletPublicKey, script)] = want
	got, err = s.GetRedemptionRequest(ctx, redeemerAddress, walletPublicKey, TimedOut)
	require.NoError(t, err)
	assert.Equal(t, want.RequestedAmount, got.RequestedAmount)

	_, err = s.GetRedemptionRequest(ctx, redeemerAddress, walletPublicKey, RequestType("cancelled"))
	assert.ErrorIs(t, err, ErrUnsupportedRequestType)
}
