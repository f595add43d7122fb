package bitcoin

import (
	"github.com/btcsuite/btcd/txscript"

	"github.com/tmewc-io/bridge-go/common"
)

// ScriptType is the locking script type of an output.
type ScriptType int

const (
	UnknownScript ScriptType = iota
	P2PKHScript
	P2WPKHScript
	P2SHScript
	P2WSHScript
)

func (t ScriptType) String() string {
	switch t {
	case P2PKHScript:
		return "P2PKH"
	case P2WPKHScript:
		return "P2WPKH"
	case P2SHScript:
		return "P2SH"
	case P2WSHScript:
		return "P2WSH"
	default:
		return "unknown"
	}
}

// OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
func IsP2PKHScript(script common.Hex) bool {
	return txscript.IsPayToPubKeyHash(script.Bytes())
}

// OP_0 <20-byte hash>
func IsP2WPKHScript(script common.Hex) bool {
	return txscript.IsPayToWitnessPubKeyHash(script.Bytes())
}

// OP_HASH160 <20-byte hash> OP_EQUAL
func IsP2SHScript(script common.Hex) bool {
	return txscript.IsPayToScriptHash(script.Bytes())
}

// OP_0 <32-byte hash>
func IsP2WSHScript(script common.Hex) bool {
	return txscript.IsPayToWitnessScriptHash(script.Bytes())
}

// ClassifyOutputScript returns the type of a standard locking script.
// Any other shape fails with ErrUnsupportedScriptType.
func ClassifyOutputScript(script common.Hex) (ScriptType, error) {
	switch {
	case IsP2PKHScript(script):
		return P2PKHScript, nil
	case IsP2WPKHScript(script):
		return P2WPKHScript, nil
	case IsP2SHScript(script):
		return P2SHScript, nil
	case IsP2WSHScript(script):
		return P2WSHScript, nil
	default:
		return UnknownScript, ErrUnsupportedScriptType
	}
}
