package bitcoin

import (
	"context"

	"github.com/tmewc-io/bridge-go/common"
)

// Client is the Bitcoin chain collaborator the bridge reads from.
//
// Implementations must report unknown transactions with an error wrapping
// ErrTransactionNotFound. Retrying transient failures is up to the
// implementation.
type Client interface {
	// GetNetwork returns the network the client is connected to.
	GetNetwork(ctx context.Context) (Network, error)

	// FindAllUnspentTransactionOutputs returns the unspent outputs locked by
	// address, most recent first.
	FindAllUnspentTransactionOutputs(ctx context.Context, address string) ([]Utxo, error)

	GetTransaction(ctx context.Context, txHash TxHash) (Tx, error)

	GetRawTransaction(ctx context.Context, txHash TxHash) (RawTx, error)

	// GetTransactionConfirmations returns 0 for mempool transactions.
	GetTransactionConfirmations(ctx context.Context, txHash TxHash) (int64, error)

	LatestBlockHeight(ctx context.Context) (int64, error)

	// GetHeadersChain returns the headers from blockHeight through
	// blockHeight+chainLength, inclusive, concatenated in block order.
	GetHeadersChain(ctx context.Context, blockHeight int64, chainLength int) (common.Hex, error)

	// GetTransactionMerkle returns the merkle branch of txHash in the block
	// at blockHeight.
	GetTransactionMerkle(ctx context.Context, txHash TxHash, blockHeight int64) (TxMerkleBranch, error)

	// GetTxHashesForPublicKeyHash returns the hashes of transactions paying
	// to or spending from the P2PKH or P2WPKH outputs of publicKeyHash,
	// oldest first.
	GetTxHashesForPublicKeyHash(ctx context.Context, publicKeyHash common.Hex) ([]TxHash, error)
}
