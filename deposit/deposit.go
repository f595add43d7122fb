package deposit

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

// FundingClient is the part of bitcoin.Client a deposit needs.
type FundingClient interface {
	GetNetwork(ctx context.Context) (bitcoin.Network, error)
	FindAllUnspentTransactionOutputs(ctx context.Context, address string) ([]bitcoin.Utxo, error)
	GetRawTransaction(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.RawTx, error)
}

// RevealArgs is what the bridge contract takes to reveal a funded deposit.
type RevealArgs struct {
	FundingTx   bitcoin.RawTxVectors `json:"fundingTx"`
	OutputIndex uint32               `json:"outputIndex"`
	Receipt     Receipt              `json:"receipt"`
	Vault       *common.Hex          `json:"vault,omitempty"`
}

// Deposit binds a deposit script to the chain it is funded on.
type Deposit struct {
	script  *Script
	client  FundingClient
	network bitcoin.Network
}

// NewDeposit builds a P2WSH deposit for receipt on the network of client.
func NewDeposit(ctx context.Context, receipt Receipt, client FundingClient) (*Deposit, error) {
	script, err := NewScript(receipt, true)
	if err != nil {
		return nil, err
	}
	return FromScript(ctx, script, client)
}

// FromScript builds a deposit from an existing script, P2SH or P2WSH.
func FromScript(ctx context.Context, script *Script, client FundingClient) (*Deposit, error) {
	network, err := client.GetNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get bitcoin network: %w", err)
	}
	if _, err := network.Params(); err != nil {
		return nil, err
	}
	return &Deposit{script: script, client: client, network: network}, nil
}

func (d *Deposit) Receipt() Receipt {
	return d.script.Receipt()
}

func (d *Deposit) Script() *Script {
	return d.script
}

func (d *Deposit) Network() bitcoin.Network {
	return d.network
}

func (d *Deposit) Address() (string, error) {
	return d.script.DeriveAddress(d.network)
}

// DetectFunding returns the unspent outputs at the deposit address, most
// recent first.
func (d *Deposit) DetectFunding(ctx context.Context) ([]bitcoin.Utxo, error) {
	address, err := d.Address()
	if err != nil {
		return nil, err
	}
	utxos, err := d.client.FindAllUnspentTransactionOutputs(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("cannot find unspent outputs of %s: %w", address, err)
	}
	return utxos, nil
}

// PrepareReveal assembles the reveal arguments for the funding at outpoint.
// With a nil outpoint the most recent funding is used.
func (d *Deposit) PrepareReveal(ctx context.Context, outpoint *bitcoin.TxOutpoint, vault *common.Hex) (*RevealArgs, error) {
	if outpoint == nil {
		utxos, err := d.DetectFunding(ctx)
		if err != nil {
			return nil, err
		}
		if len(utxos) == 0 {
			return nil, ErrNotFunded
		}
		outpoint = &utxos[0].TxOutpoint
	}

	rawTx, err := d.client.GetRawTransaction(ctx, outpoint.TransactionHash)
	if err != nil {
		return nil, fmt.Errorf("cannot get funding transaction %s: %w", outpoint.TransactionHash, err)
	}
	vectors, err := bitcoin.ExtractRawTxVectors(rawTx)
	if err != nil {
		return nil, err
	}

	output, err := bitcoin.OutputAt(vectors.Outputs, outpoint.OutputIndex)
	if err != nil {
		return nil, err
	}
	if !output.ScriptPubKey.Equal(d.script.OutputScript()) {
		return nil, fmt.Errorf("%w: %s:%d", ErrFundingMismatch, outpoint.TransactionHash, outpoint.OutputIndex)
	}

	logger.WithFields(logger.Fields{
		"txHash": outpoint.TransactionHash.String(),
		"index":  outpoint.OutputIndex,
		"value":  output.Value,
	}).Debug("deposit reveal prepared")

	return &RevealArgs{
		FundingTx:   vectors,
		OutputIndex: outpoint.OutputIndex,
		Receipt:     d.Receipt(),
		Vault:       vault,
	}, nil
}
