package utils

import (
	"github.com/btcsuite/btcd/btcutil"
)

func SatoshiToBtc(satoshi int64) float64 {
	return btcutil.Amount(satoshi).ToBTC()
}

// BtcToSatoshi rounds to the nearest satoshi. Amounts that are not finite
// or out of range are rejected.
func BtcToSatoshi(btc float64) (int64, error) {
	amount, err := btcutil.NewAmount(btc)
	if err != nil {
		return 0, err
	}
	return int64(amount), nil
}
