package spv

import (
	"context"
	"fmt"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

// DifficultyFactorSource reports how many confirmations the settlement
// chain demands of a proof.
type DifficultyFactorSource interface {
	TxProofDifficultyFactor(ctx context.Context) (int, error)
}

// StaticDifficultyFactor is a fixed, configured difficulty factor.
type StaticDifficultyFactor int

func (f StaticDifficultyFactor) TxProofDifficultyFactor(_ context.Context) (int, error) {
	return int(f), nil
}

// MaintainerClient is the part of bitcoin.Client the maintainer needs.
type MaintainerClient interface {
	ProofClient
	GetRawTransaction(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.RawTx, error)
}

// SweepProofArgs is what the bridge contract takes to accept a deposit sweep.
type SweepProofArgs struct {
	SweepTx  bitcoin.RawTxVectors `json:"sweepTx"`
	Proof    *Proof               `json:"proof"`
	MainUtxo bitcoin.Utxo         `json:"mainUtxo"`
	Vault    *common.Hex          `json:"vault,omitempty"`
}

// RedemptionProofArgs is what the bridge contract takes to accept a
// redemption transaction.
type RedemptionProofArgs struct {
	RedemptionTx    bitcoin.RawTxVectors `json:"redemptionTx"`
	Proof           *Proof               `json:"proof"`
	MainUtxo        bitcoin.Utxo         `json:"mainUtxo"`
	WalletPublicKey common.Hex           `json:"walletPublicKey"`
}

// Maintainer prepares the proofs of wallet transactions for submission.
type Maintainer struct {
	factor DifficultyFactorSource
	client MaintainerClient
}

func NewMaintainer(factor DifficultyFactorSource, client MaintainerClient) *Maintainer {
	return &Maintainer{factor: factor, client: client}
}

func (m *Maintainer) PrepareDepositSweepProof(ctx context.Context, txHash bitcoin.TxHash, mainUtxo bitcoin.Utxo, vault *common.Hex) (*SweepProofArgs, error) {
	vectors, proof, err := m.prepare(ctx, txHash)
	if err != nil {
		return nil, err
	}
	return &SweepProofArgs{SweepTx: vectors, Proof: proof, MainUtxo: mainUtxo, Vault: vault}, nil
}

func (m *Maintainer) PrepareRedemptionProof(ctx context.Context, txHash bitcoin.TxHash, mainUtxo bitcoin.Utxo, walletPublicKey common.Hex) (*RedemptionProofArgs, error) {
	if walletPublicKey.Len() != bitcoin.CompressedPublicKeyLength {
		return nil, fmt.Errorf("%w: wallet public key must be %d bytes compressed", bitcoin.ErrMalformedInput, bitcoin.CompressedPublicKeyLength)
	}
	vectors, proof, err := m.prepare(ctx, txHash)
	if err != nil {
		return nil, err
	}
	return &RedemptionProofArgs{RedemptionTx: vectors, Proof: proof, MainUtxo: mainUtxo, WalletPublicKey: walletPublicKey}, nil
}

func (m *Maintainer) prepare(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.RawTxVectors, *Proof, error) {
	confirmations, err := m.factor.TxProofDifficultyFactor(ctx)
	if err != nil {
		return bitcoin.RawTxVectors{}, nil, fmt.Errorf("cannot get proof difficulty factor: %w", err)
	}
	proof, err := AssembleProof(ctx, txHash, confirmations, m.client)
	if err != nil {
		return bitcoin.RawTxVectors{}, nil, err
	}
	rawTx, err := m.client.GetRawTransaction(ctx, txHash)
	if err != nil {
		return bitcoin.RawTxVectors{}, nil, fmt.Errorf("cannot get transaction %s: %w", txHash, err)
	}
	vectors, err := bitcoin.ExtractRawTxVectors(rawTx)
	if err != nil {
		return bitcoin.RawTxVectors{}, nil, err
	}
	return vectors, proof, nil
}
