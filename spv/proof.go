/*
Package spv assembles and validates the SPV proofs the settlement chain
requires before it accepts a Bitcoin transaction: a merkle path locating the
transaction in its block plus the chain of headers burying that block.
*/
package spv

import (
	"context"
	"fmt"
	"math/big"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

// maxConcurrentProofs bounds AssembleProofs.
const maxConcurrentProofs = 4

// Proof is the SPV proof of a transaction.
type Proof struct {
	// MerkleProof concatenates the sibling hashes, internal byte order.
	MerkleProof    common.Hex `json:"merkleProof"`
	TxIndexInBlock int        `json:"txIndexInBlock"`
	// BitcoinHeaders concatenates the headers from the transaction block on.
	BitcoinHeaders common.Hex `json:"bitcoinHeaders"`
	BlockHeight    int64      `json:"blockHeight"`
}

// ProofClient is the part of bitcoin.Client proof assembly needs.
type ProofClient interface {
	GetTransactionConfirmations(ctx context.Context, txHash bitcoin.TxHash) (int64, error)
	LatestBlockHeight(ctx context.Context) (int64, error)
	GetHeadersChain(ctx context.Context, blockHeight int64, chainLength int) (common.Hex, error)
	GetTransactionMerkle(ctx context.Context, txHash bitcoin.TxHash, blockHeight int64) (bitcoin.TxMerkleBranch, error)
}

// AssembleProof builds the proof of txHash carrying exactly
// requiredConfirmations headers, starting at the block of the transaction.
func AssembleProof(ctx context.Context, txHash bitcoin.TxHash, requiredConfirmations int, client ProofClient) (*Proof, error) {
	if requiredConfirmations < 1 {
		return nil, ErrInvalidRequiredConfirmations
	}

	confirmations, err := client.GetTransactionConfirmations(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("cannot get confirmations of %s: %w", txHash, err)
	}
	if confirmations < int64(requiredConfirmations) {
		return nil, &ConfirmationsError{Got: confirmations, Required: requiredConfirmations}
	}

	latestHeight, err := client.LatestBlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get latest block height: %w", err)
	}
	txBlockHeight := latestHeight - confirmations + 1

	headers, err := client.GetHeadersChain(ctx, txBlockHeight, requiredConfirmations-1)
	if err != nil {
		return nil, fmt.Errorf("cannot get headers from %d: %w", txBlockHeight, err)
	}

	branch, err := client.GetTransactionMerkle(ctx, txHash, txBlockHeight)
	if err != nil {
		return nil, fmt.Errorf("cannot get merkle branch of %s: %w", txHash, err)
	}

	logger.WithFields(logger.Fields{
		"txHash":        txHash.String(),
		"blockHeight":   txBlockHeight,
		"confirmations": confirmations,
	}).Debug("spv proof assembled")

	return &Proof{
		MerkleProof:    branch.Proof(),
		TxIndexInBlock: branch.Position,
		BitcoinHeaders: headers,
		BlockHeight:    txBlockHeight,
	}, nil
}

// AssembleProofs assembles the proofs of unrelated transactions
// concurrently. Proofs are returned in the order of txHashes; the first
// failure cancels the rest.
func AssembleProofs(ctx context.Context, txHashes []bitcoin.TxHash, requiredConfirmations int, client ProofClient) ([]*Proof, error) {
	proofs := make([]*Proof, len(txHashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProofs)
	for i, txHash := range txHashes {
		g.Go(func() error {
			proof, err := AssembleProof(gctx, txHash, requiredConfirmations, client)
			if err != nil {
				return err
			}
			proofs[i] = proof
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return proofs, nil
}

// ValidateProof checks that proof places txHash in the first of at least
// requiredConfirmations headers, and that the headers form a valid chain at
// the given epoch difficulties.
func ValidateProof(
	txHash bitcoin.TxHash,
	proof *Proof,
	requiredConfirmations int,
	previousDifficulty, currentDifficulty *big.Int,
) error {
	if requiredConfirmations < 1 {
		return ErrInvalidRequiredConfirmations
	}

	headers, err := bitcoin.DeserializeHeadersChain(proof.BitcoinHeaders)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(headers) < requiredConfirmations {
		return fmt.Errorf("%w: %d headers, required %d", ErrInvalidProof, len(headers), requiredConfirmations)
	}

	if !bitcoin.VerifyMerkleProof(txHash, headers[0].MerkleRootHash, proof.MerkleProof, proof.TxIndexInBlock) {
		return fmt.Errorf("%w: transaction merkle proof is not valid for provided header", ErrInvalidProof)
	}

	return bitcoin.ValidateHeadersChain(headers, previousDifficulty, currentDifficulty)
}

// ValidateTransactionProof assembles the proof of txHash and validates it.
func ValidateTransactionProof(
	ctx context.Context,
	txHash bitcoin.TxHash,
	requiredConfirmations int,
	previousDifficulty, currentDifficulty *big.Int,
	client ProofClient,
) error {
	proof, err := AssembleProof(ctx, txHash, requiredConfirmations, client)
	if err != nil {
		return err
	}
	return ValidateProof(txHash, proof, requiredConfirmations, previousDifficulty, currentDifficulty)
}
