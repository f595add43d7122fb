package rpc

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tmewc-io/bridge-go/bitcoin"
	btcutils "github.com/tmewc-io/bridge-go/btcman/utils"
	"github.com/tmewc-io/bridge-go/common"
)

const (
	MAX_CONFIRM = 9999999

	maxConcurrentHeaderFetches = 8
	searchPageSize             = 100
)

type RpcClientConfig struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	Username   string
	Pwd        string
}

// chainBackend is the subset of *rpcclient.Client the bridge calls.
type chainBackend interface {
	GetBlockCount() (int64, error)
	GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
	GetBlockHeader(blockHash *chainhash.Hash) (*wire.BlockHeader, error)
	GetBlockVerbose(blockHash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error)
	GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
	GetRawTransactionVerbose(txHash *chainhash.Hash) (*btcjson.TxRawResult, error)
	ListUnspentMinMaxAddresses(minConf, maxConf int, addrs []btcutil.Address) ([]btcjson.ListUnspentResult, error)
	SearchRawTransactionsVerbose(address btcutil.Address, skip, count int, includePrevOut, reverse bool, filterAddrs []string) ([]*btcjson.SearchRawTransactionsResult, error)
	Shutdown()
}

// RpcClient implements bitcoin.Client over the JSON-RPC interface of a
// bitcoin node. Transaction lookups need -txindex, and
// GetTxHashesForPublicKeyHash needs a btcd node running with --addrindex.
type RpcClient struct {
	ServerAddr string // ip address of server
	Port       string // port of server
	Username   string
	Pwd        string
	client     chainBackend

	mu      sync.Mutex
	network bitcoin.Network
}

// Create a new RPC client connected to a bitcoin node over HTTP POST.
func NewRpcClient(rcc *RpcClientConfig) (*RpcClient, error) {
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         rcc.ServerAddr + ":" + rcc.Port,
		User:         rcc.Username,
		Pass:         rcc.Pwd,
		HTTPPostMode: true, // original bitcoin only supports HTTP POST mode
		DisableTLS:   true, // original bitcoin does not support TLS
	}, nil)
	if err != nil {
		return nil, err
	}

	r := newRpcClient(client)
	r.ServerAddr, r.Port, r.Username, r.Pwd = rcc.ServerAddr, rcc.Port, rcc.Username, rcc.Pwd
	return r, nil
}

func newRpcClient(backend chainBackend) *RpcClient {
	return &RpcClient{client: backend}
}

// Close the rpc client
func (r *RpcClient) Close() {
	r.client.Shutdown()
}

// isNotFound reports the node's "no information available" error.
func isNotFound(err error) bool {
	var rpcErr *btcjson.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCNoTxInfo
}

func wrapTxErr(err error, txHash bitcoin.TxHash) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s: %v", bitcoin.ErrTransactionNotFound, txHash, err)
	}
	return fmt.Errorf("failed to get transaction %s: %w", txHash, err)
}

// GetNetwork identifies the network by the genesis block of the node.
func (r *RpcClient) GetNetwork(ctx context.Context) (bitcoin.Network, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.network != bitcoin.NetworkUnknown {
		return r.network, nil
	}
	if err := ctx.Err(); err != nil {
		return bitcoin.NetworkUnknown, err
	}

	genesis, err := r.client.GetBlockHash(0)
	if err != nil {
		return bitcoin.NetworkUnknown, err
	}
	network := bitcoin.NetworkFromGenesisHash(bitcoin.TxHashFromChainhash(genesis).Hex)
	if network == bitcoin.NetworkUnknown {
		return bitcoin.NetworkUnknown, fmt.Errorf("%w: genesis block %s", bitcoin.ErrUnsupportedNetwork, genesis)
	}
	r.network = network
	return network, nil
}

func (r *RpcClient) LatestBlockHeight(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.client.GetBlockCount()
}

func (r *RpcClient) GetTransaction(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.Tx, error) {
	if err := ctx.Err(); err != nil {
		return bitcoin.Tx{}, err
	}
	tx, err := r.client.GetRawTransaction(txHash.Chainhash())
	if err != nil {
		return bitcoin.Tx{}, wrapTxErr(err, txHash)
	}
	return bitcoin.TxFromMsgTx(tx.MsgTx()), nil
}

func (r *RpcClient) GetRawTransaction(ctx context.Context, txHash bitcoin.TxHash) (bitcoin.RawTx, error) {
	if err := ctx.Err(); err != nil {
		return bitcoin.RawTx{}, err
	}
	tx, err := r.client.GetRawTransaction(txHash.Chainhash())
	if err != nil {
		return bitcoin.RawTx{}, wrapTxErr(err, txHash)
	}
	var buf bytes.Buffer
	if err := tx.MsgTx().Serialize(&buf); err != nil {
		return bitcoin.RawTx{}, err
	}
	return bitcoin.RawTx{TransactionHex: common.NewHex(buf.Bytes())}, nil
}

func (r *RpcClient) GetTransactionConfirmations(ctx context.Context, txHash bitcoin.TxHash) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	result, err := r.client.GetRawTransactionVerbose(txHash.Chainhash())
	if err != nil {
		return 0, wrapTxErr(err, txHash)
	}
	return int64(result.Confirmations), nil
}

// FindAllUnspentTransactionOutputs lists the unspent outputs of address known
// to the node wallet, mempool included. Only imported addresses are tracked
// by bitcoin core.
func (r *RpcClient) FindAllUnspentTransactionOutputs(ctx context.Context, address string) ([]bitcoin.Utxo, error) {
	network, err := r.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}
	params, err := network.Params()
	if err != nil {
		return nil, err
	}
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bitcoin.ErrInvalidAddress, err)
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("%w: %s is not a %s address", bitcoin.ErrInvalidAddress, address, network)
	}

	unspent, err := r.client.ListUnspentMinMaxAddresses(0, MAX_CONFIRM, []btcutil.Address{decoded})
	if err != nil {
		return nil, err
	}
	// most recent first
	slices.SortStableFunc(unspent, func(a, b btcjson.ListUnspentResult) int {
		return int(a.Confirmations - b.Confirmations)
	})

	utxos := make([]bitcoin.Utxo, 0, len(unspent))
	for _, item := range unspent {
		u, err := btcutils.UtxoFromListUnspent(item)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u)
	}
	logger.WithFields(logger.Fields{
		"address": address,
		"utxos":   len(utxos),
	}).Debug("listed unspent outputs")
	return utxos, nil
}

// GetHeadersChain fetches the headers concurrently and reassembles them in
// block order.
func (r *RpcClient) GetHeadersChain(ctx context.Context, blockHeight int64, chainLength int) (common.Hex, error) {
	latest, err := r.LatestBlockHeight(ctx)
	if err != nil {
		return common.Hex{}, err
	}
	last := blockHeight + int64(chainLength)
	if blockHeight < 0 || chainLength < 0 || last > latest {
		return common.Hex{}, fmt.Errorf("headers %d-%d not available, latest block is %d", blockHeight, last, latest)
	}

	headers := make([]common.Hex, chainLength+1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHeaderFetches)
	for i := range headers {
		height := blockHeight + int64(i)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hash, err := r.client.GetBlockHash(height)
			if err != nil {
				return fmt.Errorf("failed to get block hash at height %d: %w", height, err)
			}
			header, err := r.client.GetBlockHeader(hash)
			if err != nil {
				return fmt.Errorf("failed to get block header %s: %w", hash, err)
			}
			var buf bytes.Buffer
			if err := header.Serialize(&buf); err != nil {
				return err
			}
			headers[i] = common.NewHex(buf.Bytes())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return common.Hex{}, err
	}
	return common.ConcatHex(headers...), nil
}

// GetTransactionMerkle computes the merkle branch from the transaction list
// of the block.
func (r *RpcClient) GetTransactionMerkle(ctx context.Context, txHash bitcoin.TxHash, blockHeight int64) (bitcoin.TxMerkleBranch, error) {
	if err := ctx.Err(); err != nil {
		return bitcoin.TxMerkleBranch{}, err
	}
	blockHash, err := r.client.GetBlockHash(blockHeight)
	if err != nil {
		return bitcoin.TxMerkleBranch{}, fmt.Errorf("failed to get block hash at height %d: %w", blockHeight, err)
	}
	block, err := r.client.GetBlockVerbose(blockHash)
	if err != nil {
		return bitcoin.TxMerkleBranch{}, fmt.Errorf("failed to get block %s: %w", blockHash, err)
	}

	index := -1
	hashes := make([]bitcoin.TxHash, 0, len(block.Tx))
	for i, txid := range block.Tx {
		h, err := bitcoin.NewTxHashFromString(txid)
		if err != nil {
			return bitcoin.TxMerkleBranch{}, err
		}
		if h.Equal(txHash.Hex) {
			index = i
		}
		hashes = append(hashes, h)
	}
	if index < 0 {
		return bitcoin.TxMerkleBranch{}, fmt.Errorf("%w: %s in block %d", bitcoin.ErrTransactionNotFound, txHash, blockHeight)
	}

	branch, err := bitcoin.ComputeMerkleBranch(hashes, index)
	if err != nil {
		return bitcoin.TxMerkleBranch{}, err
	}
	branch.BlockHeight = blockHeight
	return branch, nil
}

// GetTxHashesForPublicKeyHash merges the address index histories of the
// P2PKH and P2WPKH addresses of publicKeyHash, oldest first.
func (r *RpcClient) GetTxHashesForPublicKeyHash(ctx context.Context, publicKeyHash common.Hex) ([]bitcoin.TxHash, error) {
	network, err := r.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}

	var history []*btcjson.SearchRawTransactionsResult
	for _, witness := range []bool{false, true} {
		address, err := bitcoin.PublicKeyHashToAddress(publicKeyHash, witness, network)
		if err != nil {
			return nil, err
		}
		txs, err := r.searchAddress(ctx, address, network)
		if err != nil {
			return nil, err
		}
		history = append(history, txs...)
	}

	// block order, mempool last
	slices.SortStableFunc(history, func(a, b *btcjson.SearchRawTransactionsResult) int {
		return cmp.Compare(b.Confirmations, a.Confirmations)
	})

	seen := make(map[string]bool, len(history))
	hashes := make([]bitcoin.TxHash, 0, len(history))
	for _, tx := range history {
		if seen[tx.Txid] {
			continue
		}
		seen[tx.Txid] = true
		h, err := bitcoin.NewTxHashFromString(tx.Txid)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// searchAddress pages through the address index for address, oldest first.
func (r *RpcClient) searchAddress(ctx context.Context, address string, network bitcoin.Network) ([]*btcjson.SearchRawTransactionsResult, error) {
	params, err := network.Params()
	if err != nil {
		return nil, err
	}
	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bitcoin.ErrInvalidAddress, err)
	}

	var history []*btcjson.SearchRawTransactionsResult
	for skip := 0; ; skip += searchPageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txs, err := r.client.SearchRawTransactionsVerbose(decoded, skip, searchPageSize, false, false, nil)
		if isNotFound(err) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to search transactions of %s: %w", address, err)
		}
		history = append(history, txs...)
		if len(txs) < searchPageSize {
			break
		}
	}
	logger.WithFields(logger.Fields{
		"address": address,
		"txs":     len(history),
	}).Debug("searched address history")
	return history, nil
}

var _ bitcoin.Client = (*RpcClient)(nil)
