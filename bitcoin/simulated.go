package bitcoin

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/tmewc-io/bridge-go/common"
)

const (
	// SimulatedBits is the regression test network target, met by roughly one
	// hash in two.
	SimulatedBits = 0x207fffff

	simulatedGenesisTime = 1_700_000_000
	simulatedBlockTime   = 600
	simulatedSubsidy     = 50 * btcutil.SatoshiPerBitcoin
)

type txLocation struct {
	height int64
	index  int
}

// SimulatedClient is an in-memory chain implementing Client. Blocks carry
// real headers with valid proof of work, so proofs assembled against it
// pass validation with difficulties of 1.
type SimulatedClient struct {
	mu sync.RWMutex

	network   Network
	blocks    []*wire.MsgBlock
	confirmed map[chainhash.Hash]txLocation
	mempool   []*wire.MsgTx
	nonce     uint64 // distinguishes funding inputs
}

// NewSimulatedClient creates a chain holding only a genesis block.
func NewSimulatedClient(network Network) *SimulatedClient {
	c := &SimulatedClient{
		network:   network,
		confirmed: make(map[chainhash.Hash]txLocation),
	}
	c.mineLocked()
	return c
}

// AddTransaction puts tx into the mempool.
func (c *SimulatedClient) AddTransaction(tx *wire.MsgTx) TxHash {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mempool = append(c.mempool, tx.Copy())
	h := tx.TxHash()
	return TxHashFromChainhash(&h)
}

// FundAddress adds to the mempool a witness transaction paying value to
// address at output 0.
func (c *SimulatedClient) FundAddress(address string, value int64) (*wire.MsgTx, error) {
	script, err := AddressToOutputScript(address, c.network)
	if err != nil {
		return nil, err
	}
	return c.FundScript(script, value), nil
}

// FundScript adds to the mempool a witness transaction paying value to
// script at output 0.
func (c *SimulatedClient) FundScript(script common.Hex, value int64) *wire.MsgTx {
	c.mu.Lock()
	c.nonce++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], c.nonce)
	c.mu.Unlock()

	tx := wire.NewMsgTx(wire.TxVersion)
	prev := chainhash.HashH(seed[:])
	in := wire.NewTxIn(wire.NewOutPoint(&prev, 0), nil, nil)
	in.Witness = wire.TxWitness{seed[:]}
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(value, script.Bytes()))
	c.AddTransaction(tx)
	return tx
}

// MineBlocks mines n blocks, the first one taking the whole mempool.
// It returns the height of the last block.
func (c *SimulatedClient) MineBlocks(n int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < n; i++ {
		c.mineLocked()
	}
	return int64(len(c.blocks) - 1)
}

func (c *SimulatedClient) mineLocked() {
	height := int64(len(c.blocks))

	var heightBytes [8]byte
	binary.LittleEndian.PutUint64(heightBytes[:], uint64(height))
	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32), heightBytes[:], nil))
	coinbase.AddTxOut(wire.NewTxOut(simulatedSubsidy, []byte{txscript.OP_TRUE}))

	txs := append([]*wire.MsgTx{coinbase}, c.mempool...)
	c.mempool = nil

	utilTxs := make([]*btcutil.Tx, 0, len(txs))
	for _, tx := range txs {
		utilTxs = append(utilTxs, btcutil.NewTx(tx))
	}

	var prevHash chainhash.Hash
	if height > 0 {
		prevHash = c.blocks[height-1].BlockHash()
	}
	header := wire.BlockHeader{
		Version:    4,
		PrevBlock:  prevHash,
		MerkleRoot: blockchain.CalcMerkleRoot(utilTxs, false),
		Timestamp:  time.Unix(simulatedGenesisTime+height*simulatedBlockTime, 0),
		Bits:       SimulatedBits,
	}
	target := BitsToTarget(SimulatedBits)
	for {
		hash := header.BlockHash()
		if HashLEToBigInt(common.NewHex(hash[:])).Cmp(target) <= 0 {
			break
		}
		header.Nonce++
	}

	block := wire.NewMsgBlock(&header)
	for i, tx := range txs {
		_ = block.AddTransaction(tx)
		c.confirmed[tx.TxHash()] = txLocation{height: height, index: i}
	}
	c.blocks = append(c.blocks, block)
}

func (c *SimulatedClient) GetNetwork(_ context.Context) (Network, error) {
	return c.network, nil
}

func (c *SimulatedClient) LatestBlockHeight(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.blocks) - 1), nil
}

// findLocked returns the transaction and its location; a negative height
// means the transaction sits in the mempool.
func (c *SimulatedClient) findLocked(txHash TxHash) (*wire.MsgTx, txLocation, error) {
	h := txHash.Chainhash()
	if loc, ok := c.confirmed[*h]; ok {
		return c.blocks[loc.height].Transactions[loc.index], loc, nil
	}
	for i, tx := range c.mempool {
		if tx.TxHash() == *h {
			return tx, txLocation{height: -1, index: i}, nil
		}
	}
	return nil, txLocation{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, txHash)
}

func (c *SimulatedClient) GetTransaction(_ context.Context, txHash TxHash) (Tx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tx, _, err := c.findLocked(txHash)
	if err != nil {
		return Tx{}, err
	}
	return TxFromMsgTx(tx), nil
}

func (c *SimulatedClient) GetRawTransaction(_ context.Context, txHash TxHash) (RawTx, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tx, _, err := c.findLocked(txHash)
	if err != nil {
		return RawTx{}, err
	}
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return RawTx{}, err
	}
	return RawTx{TransactionHex: common.NewHex(buf.Bytes())}, nil
}

func (c *SimulatedClient) GetTransactionConfirmations(_ context.Context, txHash TxHash) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, loc, err := c.findLocked(txHash)
	if err != nil {
		return 0, err
	}
	if loc.height < 0 {
		return 0, nil
	}
	return int64(len(c.blocks)) - loc.height, nil
}

func (c *SimulatedClient) GetHeadersChain(_ context.Context, blockHeight int64, chainLength int) (common.Hex, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	last := blockHeight + int64(chainLength)
	if blockHeight < 0 || chainLength < 0 || last >= int64(len(c.blocks)) {
		return common.Hex{}, fmt.Errorf("headers %d-%d not available, latest block is %d", blockHeight, last, len(c.blocks)-1)
	}
	var buf bytes.Buffer
	for h := blockHeight; h <= last; h++ {
		if err := c.blocks[h].Header.Serialize(&buf); err != nil {
			return common.Hex{}, err
		}
	}
	return common.NewHex(buf.Bytes()), nil
}

func (c *SimulatedClient) GetTransactionMerkle(_ context.Context, txHash TxHash, blockHeight int64) (TxMerkleBranch, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.confirmed[*txHash.Chainhash()]
	if !ok || loc.height != blockHeight {
		return TxMerkleBranch{}, fmt.Errorf("%w: %s in block %d", ErrTransactionNotFound, txHash, blockHeight)
	}
	block := c.blocks[blockHeight]
	hashes := make([]TxHash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		h := tx.TxHash()
		hashes = append(hashes, TxHashFromChainhash(&h))
	}
	branch, err := ComputeMerkleBranch(hashes, loc.index)
	if err != nil {
		return TxMerkleBranch{}, err
	}
	branch.BlockHeight = blockHeight
	return branch, nil
}

// orderedLocked returns confirmed transactions in chain order followed by the
// mempool.
func (c *SimulatedClient) orderedLocked() []*wire.MsgTx {
	var txs []*wire.MsgTx
	for _, b := range c.blocks {
		txs = append(txs, b.Transactions...)
	}
	return append(txs, c.mempool...)
}

func (c *SimulatedClient) FindAllUnspentTransactionOutputs(_ context.Context, address string) ([]Utxo, error) {
	script, err := AddressToOutputScript(address, c.network)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	txs := c.orderedLocked()

	spent := make(map[wire.OutPoint]bool)
	for _, tx := range txs {
		for _, in := range tx.TxIn {
			spent[in.PreviousOutPoint] = true
		}
	}

	var utxos []Utxo
	for i := len(txs) - 1; i >= 0; i-- {
		txHash := txs[i].TxHash()
		for vout, out := range txs[i].TxOut {
			if spent[*wire.NewOutPoint(&txHash, uint32(vout))] || !bytes.Equal(out.PkScript, script.Bytes()) {
				continue
			}
			utxos = append(utxos, Utxo{
				TxOutpoint: TxOutpoint{TransactionHash: TxHashFromChainhash(&txHash), OutputIndex: uint32(vout)},
				Value:      out.Value,
			})
		}
	}
	return utxos, nil
}

func (c *SimulatedClient) GetTxHashesForPublicKeyHash(_ context.Context, publicKeyHash common.Hex) ([]TxHash, error) {
	var scripts [][]byte
	for _, witness := range []bool{false, true} {
		address, err := PublicKeyHashToAddress(publicKeyHash, witness, c.network)
		if err != nil {
			return nil, err
		}
		script, err := AddressToOutputScript(address, c.network)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script.Bytes())
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	owned := make(map[wire.OutPoint]bool)
	var hashes []TxHash
	for _, tx := range c.orderedLocked() {
		txHash := tx.TxHash()
		related := false
		for _, in := range tx.TxIn {
			if owned[in.PreviousOutPoint] {
				related = true
			}
		}
		for vout, out := range tx.TxOut {
			if slices.ContainsFunc(scripts, func(s []byte) bool { return bytes.Equal(out.PkScript, s) }) {
				owned[*wire.NewOutPoint(&txHash, uint32(vout))] = true
				related = true
			}
		}
		if related {
			hashes = append(hashes, TxHashFromChainhash(&txHash))
		}
	}
	return hashes, nil
}

var _ Client = (*SimulatedClient)(nil)
