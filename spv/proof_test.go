package spv

import (
	"context"
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

var one = big.NewInt(1)

func txHashOf(tx *wire.MsgTx) bitcoin.TxHash {
	h := tx.TxHash()
	return bitcoin.TxHashFromChainhash(&h)
}

// fundedChain mines a block with a few transactions, then buries it under
// depth-1 more blocks.
func fundedChain(t *testing.T, depth int) (*bitcoin.SimulatedClient, []bitcoin.TxHash) {
	client := bitcoin.NewSimulatedClient(bitcoin.NetworkTestnet)
	client.MineBlocks(2)

	var hashes []bitcoin.TxHash
	for i := 0; i < 3; i++ {
		tx := client.FundScript(common.MustHexFromString("00147ac2d9378a1c47e589dfb8095ca95ed2140d2726"), int64(1000*(i+1)))
		hashes = append(hashes, txHashOf(tx))
	}
	client.MineBlocks(depth)
	return client, hashes
}

func TestAssembleProof(t *testing.T) {
	ctx := context.Background()
	client, hashes := fundedChain(t, 6)

	proof, err := AssembleProof(ctx, hashes[1], 6, client)
	require.NoError(t, err)
	assert.Equal(t, int64(3), proof.BlockHeight)
	assert.Equal(t, 2, proof.TxIndexInBlock)
	assert.Equal(t, 6*bitcoin.HeaderSize, proof.BitcoinHeaders.Len())
	// four transactions with the coinbase, two levels
	assert.Equal(t, 64, proof.MerkleProof.Len())

	headers, err := bitcoin.DeserializeHeadersChain(proof.BitcoinHeaders)
	require.NoError(t, err)
	raw, err := client.GetHeadersChain(ctx, 3, 0)
	require.NoError(t, err)
	first, err := headers[0].Serialize()
	require.NoError(t, err)
	assert.True(t, raw.Equal(first))

	assert.NoError(t, ValidateProof(hashes[1], proof, 6, one, one))
}

func TestAssembleProofInsufficientConfirmations(t *testing.T) {
	ctx := context.Background()
	client, hashes := fundedChain(t, 3)

	_, err := AssembleProof(ctx, hashes[0], 6, client)
	assert.ErrorIs(t, err, ErrInsufficientConfirmations)
	var confErr *ConfirmationsError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, int64(3), confErr.Got)
	assert.Equal(t, 6, confErr.Required)

	_, err = AssembleProof(ctx, hashes[0], 0, client)
	assert.ErrorIs(t, err, ErrInvalidRequiredConfirmations)
}

func TestAssembleProofTransactionNotFound(t *testing.T) {
	client, _ := fundedChain(t, 1)
	_, err := AssembleProof(context.Background(), bitcoin.TxHash{Hex: common.RandHex(32)}, 1, client)
	assert.ErrorIs(t, err, bitcoin.ErrTransactionNotFound)
}

func TestAssembleProofs(t *testing.T) {
	ctx := context.Background()
	client, hashes := fundedChain(t, 2)

	proofs, err := AssembleProofs(ctx, hashes, 2, client)
	require.NoError(t, err)
	require.Len(t, proofs, len(hashes))
	for i, proof := range proofs {
		assert.Equal(t, i+1, proof.TxIndexInBlock)
		assert.NoError(t, ValidateProof(hashes[i], proof, 2, one, one))
	}

	withMissing := append([]bitcoin.TxHash{}, hashes...)
	withMissing = append(withMissing, bitcoin.TxHash{Hex: common.RandHex(32)})
	_, err = AssembleProofs(ctx, withMissing, 2, client)
	assert.ErrorIs(t, err, bitcoin.ErrTransactionNotFound)
}

func TestValidateProofRejects(t *testing.T) {
	ctx := context.Background()
	client, hashes := fundedChain(t, 3)

	proof, err := AssembleProof(ctx, hashes[0], 3, client)
	require.NoError(t, err)

	// wrong transaction
	err = ValidateProof(hashes[1], proof, 3, one, one)
	assert.ErrorIs(t, err, ErrInvalidProof)

	// wrong index
	bad := *proof
	bad.TxIndexInBlock = 2
	assert.ErrorIs(t, ValidateProof(hashes[0], &bad, 3, one, one), ErrInvalidProof)

	// too few headers
	assert.ErrorIs(t, ValidateProof(hashes[0], proof, 4, one, one), ErrInvalidProof)

	// truncated headers
	bad = *proof
	bad.BitcoinHeaders = common.NewHex(proof.BitcoinHeaders.Bytes()[:200])
	assert.ErrorIs(t, ValidateProof(hashes[0], &bad, 2, one, one), ErrInvalidProof)

	// broken chain
	headers, err := bitcoin.DeserializeHeadersChain(proof.BitcoinHeaders)
	require.NoError(t, err)
	headers[1], headers[2] = headers[2], headers[1]
	bad = *proof
	bad.BitcoinHeaders, err = bitcoin.SerializeHeadersChain(headers)
	require.NoError(t, err)
	assert.ErrorIs(t, ValidateProof(hashes[0], &bad, 3, one, one), bitcoin.ErrChainDiscontinuity)

	// simulated blocks are at difficulty 0
	assert.ErrorIs(t, ValidateProof(hashes[0], proof, 3, big.NewInt(2), one), bitcoin.ErrUnexpectedDifficulty)
	assert.NoError(t, ValidateTransactionProof(ctx, hashes[0], 3, big.NewInt(0), big.NewInt(0), client))
}
