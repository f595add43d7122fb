package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/tmewc-io/bridge-go/common"
)

// TxMerkleBranch is the merkle path of a transaction within its block.
// Merkle holds the sibling hashes from the leaf level up, each in explorer
// byte order as returned by Electrum servers.
type TxMerkleBranch struct {
	BlockHeight int64
	Merkle      []common.Hex
	Position    int
}

// Proof concatenates the sibling hashes in internal byte order, the shape
// the settlement contracts verify.
func (b TxMerkleBranch) Proof() common.Hex {
	parts := make([]common.Hex, 0, len(b.Merkle))
	for _, m := range b.Merkle {
		parts = append(parts, m.Reverse())
	}
	return common.ConcatHex(parts...)
}

// ComputeMerkleBranch builds the merkle path of the transaction at index in a
// block whose transaction hashes are txHashes, in block order.
func ComputeMerkleBranch(txHashes []TxHash, index int) (TxMerkleBranch, error) {
	if index < 0 || index >= len(txHashes) {
		return TxMerkleBranch{}, fmt.Errorf("%w: transaction index %d out of range, transactions=%d", ErrMalformedInput, index, len(txHashes))
	}

	level := make([]*chainhash.Hash, 0, len(txHashes))
	for _, h := range txHashes {
		level = append(level, h.Chainhash())
	}

	branch := TxMerkleBranch{Position: index}
	for idx := index; len(level) > 1; idx /= 2 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}
		sibling := level[idx^1]
		branch.Merkle = append(branch.Merkle, TxHashFromChainhash(sibling).Hex)

		next := make([]*chainhash.Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := blockchain.HashMerkleBranches(level[i], level[i+1])
			next = append(next, &h)
		}
		level = next
	}
	return branch, nil
}

// VerifyMerkleProof checks that txHash is included at index under merkleRoot.
// The root and the proof are in internal byte order.
func VerifyMerkleProof(txHash TxHash, merkleRoot common.Hex, proof common.Hex, index int) bool {
	if proof.Len()%chainhash.HashSize != 0 || merkleRoot.Len() != chainhash.HashSize || index < 0 {
		return false
	}

	current := txHash.Chainhash()
	raw := proof.Bytes()
	for i := 0; i < len(raw); i += chainhash.HashSize {
		var sibling chainhash.Hash
		copy(sibling[:], raw[i:i+chainhash.HashSize])

		var next chainhash.Hash
		if index&1 == 1 {
			next = blockchain.HashMerkleBranches(&sibling, current)
		} else {
			next = blockchain.HashMerkleBranches(current, &sibling)
		}
		current = &next
		index >>= 1
	}
	return index == 0 && merkleRoot.Equal(common.NewHex(current[:]))
}
