package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/tmewc-io/bridge-go/common"
)

const (
	CompressedPublicKeyLength = 33
	PublicKeyHashLength       = 20
)

// PublicKeyToAddress derives a P2WPKH (witness=true) or P2PKH address from
// a compressed public key.
func PublicKeyToAddress(publicKey common.Hex, network Network, witness bool) (string, error) {
	if publicKey.Len() != CompressedPublicKeyLength {
		return "", fmt.Errorf("%w: public key must be %d bytes compressed, got %d", ErrMalformedInput, CompressedPublicKeyLength, publicKey.Len())
	}
	if _, err := btcec.ParsePubKey(publicKey.Bytes()); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return PublicKeyHashToAddress(ComputeHash160(publicKey), witness, network)
}

// PublicKeyHashToAddress encodes a 20-byte public key hash as a P2WPKH
// (witness=true) or P2PKH address.
func PublicKeyHashToAddress(publicKeyHash common.Hex, witness bool, network Network) (string, error) {
	params, err := network.Params()
	if err != nil {
		return "", err
	}
	if publicKeyHash.Len() != PublicKeyHashLength {
		return "", fmt.Errorf("%w: public key hash must be %d bytes, got %d", ErrMalformedInput, PublicKeyHashLength, publicKeyHash.Len())
	}

	var addr btcutil.Address
	if witness {
		addr, err = btcutil.NewAddressWitnessPubKeyHash(publicKeyHash.Bytes(), params)
	} else {
		addr, err = btcutil.NewAddressPubKeyHash(publicKeyHash.Bytes(), params)
	}
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// AddressToPublicKeyHash decodes a P2PKH or P2WPKH address into its public
// key hash. Any other address type (or an address of another network)
// fails with ErrUnsupportedAddressType.
func AddressToPublicKeyHash(address string, network Network) (common.Hex, error) {
	params, err := network.Params()
	if err != nil {
		return common.Hex{}, err
	}

	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil || !decoded.IsForNet(params) {
		return common.Hex{}, ErrUnsupportedAddressType
	}

	switch addr := decoded.(type) {
	case *btcutil.AddressPubKeyHash:
		return common.NewHex(addr.ScriptAddress()), nil
	case *btcutil.AddressWitnessPubKeyHash:
		return common.NewHex(addr.ScriptAddress()), nil
	default:
		return common.Hex{}, ErrUnsupportedAddressType
	}
}

// AddressToOutputScript converts an address to its locking script, not
// prepended with length.
func AddressToOutputScript(address string, network Network) (common.Hex, error) {
	params, err := network.Params()
	if err != nil {
		return common.Hex{}, err
	}

	decoded, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return common.Hex{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if !decoded.IsForNet(params) {
		return common.Hex{}, fmt.Errorf("%w: %s is not a %s address", ErrInvalidAddress, address, network)
	}

	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return common.Hex{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return common.NewHex(script), nil
}

// OutputScriptToAddress converts a locking script, not prepended with
// length, to the network specific address.
func OutputScriptToAddress(script common.Hex, network Network) (string, error) {
	params, err := network.Params()
	if err != nil {
		return "", err
	}

	class, addrs, _, err := txscript.ExtractPkScriptAddrs(script.Bytes(), params)
	if err != nil || len(addrs) != 1 {
		return "", ErrUnsupportedScriptType
	}
	switch class {
	case txscript.PubKeyHashTy, txscript.WitnessV0PubKeyHashTy,
		txscript.ScriptHashTy, txscript.WitnessV0ScriptHashTy,
		txscript.WitnessV1TaprootTy:
		return addrs[0].EncodeAddress(), nil
	default:
		return "", ErrUnsupportedScriptType
	}
}
