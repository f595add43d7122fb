package deposit

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
)

// Script is the locking script of a deposit. It can be spent by the wallet
// at any time or by the refund key once the refund locktime has passed.
type Script struct {
	receipt Receipt
	witness bool
	plain   common.Hex
}

// NewScript validates receipt and builds its script. With witness the
// script is wrapped in P2WSH, otherwise in legacy P2SH.
func NewScript(receipt Receipt, witness bool) (*Script, error) {
	if err := receipt.Validate(); err != nil {
		return nil, err
	}

	b := txscript.NewScriptBuilder().
		AddData(receipt.Depositor.Bytes()).
		AddOp(txscript.OP_DROP)
	if receipt.ExtraData != nil {
		b.AddData(receipt.ExtraData.Bytes()).AddOp(txscript.OP_DROP)
	}
	b.AddData(receipt.BlindingFactor.Bytes()).
		AddOp(txscript.OP_DROP).
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(receipt.WalletPublicKeyHash.Bytes()).
		AddOp(txscript.OP_EQUAL).
		AddOp(txscript.OP_IF).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ELSE).
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(receipt.RefundPublicKeyHash.Bytes()).
		AddOp(txscript.OP_EQUALVERIFY).
		AddData(receipt.RefundLocktime.Bytes()).
		AddOp(txscript.OP_CHECKLOCKTIMEVERIFY).
		AddOp(txscript.OP_DROP).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_ENDIF)

	plain, err := b.Script()
	if err != nil {
		return nil, err
	}

	return &Script{receipt: receipt, witness: witness, plain: common.NewHex(plain)}, nil
}

func (s *Script) Receipt() Receipt {
	return s.receipt
}

func (s *Script) Witness() bool {
	return s.witness
}

// PlainText returns the script in opcode form.
func (s *Script) PlainText() common.Hex {
	return s.plain
}

// Hash is SHA256 of the script for P2WSH, HASH160 for P2SH.
func (s *Script) Hash() common.Hex {
	if s.witness {
		return bitcoin.ComputeSha256(s.plain)
	}
	return bitcoin.ComputeHash160(s.plain)
}

// OutputScript returns the locking script a funding output must carry.
func (s *Script) OutputScript() common.Hex {
	b := txscript.NewScriptBuilder()
	if s.witness {
		b.AddOp(txscript.OP_0).AddData(s.Hash().Bytes())
	} else {
		b.AddOp(txscript.OP_HASH160).AddData(s.Hash().Bytes()).AddOp(txscript.OP_EQUAL)
	}
	script, _ := b.Script()
	return common.NewHex(script)
}

// DeriveAddress encodes the script hash as an address of network.
func (s *Script) DeriveAddress(network bitcoin.Network) (string, error) {
	params, err := network.Params()
	if err != nil {
		return "", err
	}

	var addr btcutil.Address
	if s.witness {
		addr, err = btcutil.NewAddressWitnessScriptHash(s.Hash().Bytes(), params)
	} else {
		addr, err = btcutil.NewAddressScriptHashFromHash(s.Hash().Bytes(), params)
	}
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
