package utils

import (
	"fmt"

	"github.com/btcsuite/btcd/btcjson"

	"github.com/tmewc-io/bridge-go/bitcoin"
)

// UtxoFromListUnspent converts a listunspent entry of a bitcoin node.
func UtxoFromListUnspent(item btcjson.ListUnspentResult) (bitcoin.Utxo, error) {
	txHash, err := bitcoin.NewTxHashFromString(item.TxID)
	if err != nil {
		return bitcoin.Utxo{}, err
	}
	value, err := BtcToSatoshi(item.Amount)
	if err != nil {
		return bitcoin.Utxo{}, fmt.Errorf("invalid amount of %s:%d: %w", item.TxID, item.Vout, err)
	}
	return bitcoin.Utxo{
		TxOutpoint: bitcoin.TxOutpoint{TransactionHash: txHash, OutputIndex: item.Vout},
		Value:      value,
	}, nil
}

// IsFundingOutput tells whether utxo is worth at least minValue satoshi.
func IsFundingOutput(utxo bitcoin.Utxo, minValue int64) bool {
	return utxo.Value > 0 && utxo.Value >= minValue
}
