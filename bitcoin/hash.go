/*
Package bitcoin implements the SPV side of the bridge: hashing, raw
transaction vectors, addresses and scripts, block header chains and
merkle branches.

Everything in this package is a pure function over in-memory bytes, except
the Client interface which is implemented by external collaborators.
*/
package bitcoin

import (
	"crypto/sha256"
	"math/big"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/tmewc-io/bridge-go/common"
)

// ComputeSha256 computes a single SHA256.
// Do not confuse it with ComputeHash256 which computes double SHA256.
func ComputeSha256(data common.Hex) common.Hex {
	h := sha256.Sum256(data.Bytes())
	return common.NewHex(h[:])
}

// ComputeHash256 computes the double SHA256 used for transaction and
// block header hashes.
func ComputeHash256(data common.Hex) common.Hex {
	return common.NewHex(chainhash.DoubleHashB(data.Bytes()))
}

// ComputeHash160 computes RIPEMD160(SHA256(data)), 20 bytes long.
func ComputeHash160(data common.Hex) common.Hex {
	return common.NewHex(btcutil.Hash160(data.Bytes()))
}

// HashLEToBigInt interprets a little-endian hash as an unsigned integer.
func HashLEToBigInt(hash common.Hex) *big.Int {
	return new(big.Int).SetBytes(hash.Reverse().Bytes())
}
