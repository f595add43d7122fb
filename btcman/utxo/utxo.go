/*
Package utxo identifies wallet main UTXOs.

The bridge stores only the hash of a wallet main UTXO; the full outpoint and
value must be found again on the Bitcoin chain by matching that hash.
*/
package utxo

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

// BuildMainUtxoHash returns
// keccak256(txHash ++ uint32(outputIndex) ++ uint64(value)), with the
// transaction hash in internal byte order and the integers big-endian.
func BuildMainUtxoHash(u bitcoin.Utxo) common.Hex {
	var index [4]byte
	binary.BigEndian.PutUint32(index[:], u.OutputIndex)
	var value [8]byte
	binary.BigEndian.PutUint64(value[:], uint64(u.Value))

	return common.NewHex(crypto.Keccak256(u.TransactionHash.Reverse().Bytes(), index[:], value[:]))
}

// IsMainUtxo tells whether u hashes to mainUtxoHash.
func IsMainUtxo(u bitcoin.Utxo, mainUtxoHash common.Hex) bool {
	return BuildMainUtxoHash(u).Equal(mainUtxoHash)
}

// WalletOutputScripts returns the P2PKH and P2WPKH locking scripts of a
// wallet public key hash.
func WalletOutputScripts(walletPublicKeyHash common.Hex, network bitcoin.Network) ([]common.Hex, error) {
	var scripts []common.Hex
	for _, witness := range []bool{false, true} {
		address, err := bitcoin.PublicKeyHashToAddress(walletPublicKeyHash, witness, network)
		if err != nil {
			return nil, err
		}
		script, err := bitcoin.AddressToOutputScript(address, network)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script)
	}
	return scripts, nil
}

// FindOutput returns the first output of tx locked by one of scripts.
func FindOutput(tx bitcoin.Tx, scripts []common.Hex) (bitcoin.Utxo, bool) {
	for _, out := range tx.Outputs {
		for _, script := range scripts {
			if out.ScriptPubKey.Equal(script) {
				return bitcoin.Utxo{
					TxOutpoint: bitcoin.TxOutpoint{TransactionHash: tx.TransactionHash, OutputIndex: out.OutputIndex},
					Value:      out.Value,
				}, true
			}
		}
	}
	return bitcoin.Utxo{}, false
}
