package bitcoin

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tmewc-io/bridge-go/common"
)

// TxHash is a transaction hash (transaction ID) in the byte order used by
// block explorers, which is the reverse of the protocol's internal order.
// Use Reverse() where the internal order is expected.
type TxHash struct {
	common.Hex
}

// NewTxHash wraps a 32-byte value given in explorer byte order.
func NewTxHash(h common.Hex) (TxHash, error) {
	if h.Len() != chainhash.HashSize {
		return TxHash{}, fmt.Errorf("%w: transaction hash must be %d bytes, got %d", ErrMalformedInput, chainhash.HashSize, h.Len())
	}
	return TxHash{h}, nil
}

func NewTxHashFromString(s string) (TxHash, error) {
	h, err := common.HexFromString(s)
	if err != nil {
		return TxHash{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return NewTxHash(h)
}

// TxHashFromChainhash converts a btcd hash (internal order) to a TxHash.
func TxHashFromChainhash(h *chainhash.Hash) TxHash {
	return TxHash{common.NewHex(h[:]).Reverse()}
}

// Chainhash converts the hash to the btcd representation.
func (t TxHash) Chainhash() *chainhash.Hash {
	var h chainhash.Hash
	copy(h[:], t.Reverse().Bytes())
	return &h
}

// RawTx is a full serialized transaction.
type RawTx struct {
	TransactionHex common.Hex
}

// TxOutpoint identifies an output of a transaction.
type TxOutpoint struct {
	TransactionHash TxHash `json:"transactionHash"`
	OutputIndex     uint32 `json:"outputIndex"`
}

type TxInput struct {
	TxOutpoint
	ScriptSig common.Hex
}

type TxOutput struct {
	OutputIndex  uint32
	Value        int64 // in satoshi
	ScriptPubKey common.Hex
}

// Tx is a decoded transaction.
type Tx struct {
	TransactionHash TxHash
	Inputs          []TxInput
	Outputs         []TxOutput
}

// Utxo is an unspent output together with its value in satoshi.
type Utxo struct {
	TxOutpoint
	Value int64 `json:"value"`
}

// RawTxVectors is a transaction split into the four parts the settlement
// contracts consume separately.
type RawTxVectors struct {
	Version  common.Hex `json:"version"`  // 4 bytes, little-endian
	Inputs   common.Hex `json:"inputs"`   // compact size count followed by inputs
	Outputs  common.Hex `json:"outputs"`  // compact size count followed by outputs
	Locktime common.Hex `json:"locktime"` // 4 bytes, little-endian
}

// Serialize concatenates the vectors back into a transaction without
// witness data.
func (v RawTxVectors) Serialize() common.Hex {
	return common.ConcatHex(v.Version, v.Inputs, v.Outputs, v.Locktime)
}

// ComputeTxHash returns the transaction hash of the vectors.
func ComputeTxHash(v RawTxVectors) TxHash {
	return TxHash{ComputeHash256(v.Serialize()).Reverse()}
}

// ExtractRawTxVectors decomposes a raw transaction into version, inputs,
// outputs and locktime. Witness data, if any, is not part of the vectors.
func ExtractRawTxVectors(rawTx RawTx) (RawTxVectors, error) {
	msgTx, err := DeserializeMsgTx(rawTx)
	if err != nil {
		return RawTxVectors{}, err
	}
	return VectorsFromMsgTx(msgTx), nil
}

// DeserializeMsgTx parses a raw transaction, rejecting trailing bytes.
func DeserializeMsgTx(rawTx RawTx) (*wire.MsgTx, error) {
	if rawTx.TransactionHex.IsEmpty() {
		return nil, ErrEmptyInput
	}
	r := bytes.NewReader(rawTx.TransactionHex.Bytes())
	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(r); err != nil {
		return nil, fmt.Errorf("%w: cannot deserialize transaction: %v", ErrMalformedInput, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: transaction has %d unexpected trailing bytes", ErrMalformedInput, r.Len())
	}
	return &msgTx, nil
}

// VectorsFromMsgTx serializes each part of tx independently.
// Writes to bytes.Buffer never fail so write errors are not checked.
func VectorsFromMsgTx(tx *wire.MsgTx) RawTxVectors {
	var version [4]byte
	binary.LittleEndian.PutUint32(version[:], uint32(tx.Version))

	var inputs bytes.Buffer
	_ = wire.WriteVarInt(&inputs, 0, uint64(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		inputs.Write(in.PreviousOutPoint.Hash[:])
		_ = binary.Write(&inputs, binary.LittleEndian, in.PreviousOutPoint.Index)
		_ = wire.WriteVarBytes(&inputs, 0, in.SignatureScript)
		_ = binary.Write(&inputs, binary.LittleEndian, in.Sequence)
	}

	var outputs bytes.Buffer
	_ = wire.WriteVarInt(&outputs, 0, uint64(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		_ = binary.Write(&outputs, binary.LittleEndian, out.Value)
		_ = wire.WriteVarBytes(&outputs, 0, out.PkScript)
	}

	var locktime [4]byte
	binary.LittleEndian.PutUint32(locktime[:], tx.LockTime)

	return RawTxVectors{
		Version:  common.NewHex(version[:]),
		Inputs:   common.NewHex(inputs.Bytes()),
		Outputs:  common.NewHex(outputs.Bytes()),
		Locktime: common.NewHex(locktime[:]),
	}
}

// TxFromMsgTx converts a btcd transaction into a Tx.
func TxFromMsgTx(msgTx *wire.MsgTx) Tx {
	txHash := msgTx.TxHash()
	tx := Tx{TransactionHash: TxHashFromChainhash(&txHash)}
	for _, in := range msgTx.TxIn {
		tx.Inputs = append(tx.Inputs, TxInput{
			TxOutpoint: TxOutpoint{
				TransactionHash: TxHashFromChainhash(&in.PreviousOutPoint.Hash),
				OutputIndex:     in.PreviousOutPoint.Index,
			},
			ScriptSig: common.NewHex(in.SignatureScript),
		})
	}
	for i, out := range msgTx.TxOut {
		tx.Outputs = append(tx.Outputs, TxOutput{
			OutputIndex:  uint32(i),
			Value:        out.Value,
			ScriptPubKey: common.NewHex(out.PkScript),
		})
	}
	return tx
}

// ReadOutputsVector parses an outputs vector the way the settlement
// contracts do, so the compact size width limitation applies.
func ReadOutputsVector(outputsVector common.Hex) ([]TxOutput, error) {
	data := outputsVector.Bytes()
	count, err := ReadCompactSizeUint(outputsVector)
	if err != nil {
		return nil, err
	}
	offset := count.ByteLength

	outputs := make([]TxOutput, 0, count.Value)
	for i := uint64(0); i < count.Value; i++ {
		if len(data) < offset+8 {
			return nil, fmt.Errorf("%w: output %d truncated", ErrMalformedInput, i)
		}
		value := int64(binary.LittleEndian.Uint64(data[offset : offset+8]))
		offset += 8

		scriptLen, err := ReadCompactSizeUint(common.NewHex(data[offset:]))
		if err != nil {
			return nil, fmt.Errorf("output %d script length: %w", i, err)
		}
		offset += scriptLen.ByteLength
		end := offset + int(scriptLen.Value)
		if len(data) < end {
			return nil, fmt.Errorf("%w: output %d script truncated", ErrMalformedInput, i)
		}
		outputs = append(outputs, TxOutput{
			OutputIndex:  uint32(i),
			Value:        value,
			ScriptPubKey: common.NewHex(data[offset:end]),
		})
		offset = end
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%w: %d unexpected bytes after outputs", ErrMalformedInput, len(data)-offset)
	}
	return outputs, nil
}

// OutputAt returns the output at index from an outputs vector.
func OutputAt(outputsVector common.Hex, index uint32) (TxOutput, error) {
	outputs, err := ReadOutputsVector(outputsVector)
	if err != nil {
		return TxOutput{}, err
	}
	if int(index) >= len(outputs) {
		return TxOutput{}, fmt.Errorf("%w: output index %d out of range, outputs=%d", ErrMalformedInput, index, len(outputs))
	}
	return outputs[index], nil
}
