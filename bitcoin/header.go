package bitcoin

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/tmewc-io/bridge-go/common"
)

const HeaderSize = 80

// diff1Target is the target of difficulty 1.
var diff1Target, _ = new(big.Int).SetString("ffff0000000000000000000000000000000000000000000000000000", 16)

// BlockHeader is a block header. Hashes are kept in the internal byte order,
// the same order they take in the 80-byte serialization.
type BlockHeader struct {
	Version                 uint32
	PreviousBlockHeaderHash common.Hex
	MerkleRootHash          common.Hex
	Time                    uint32
	Bits                    uint32
	Nonce                   uint32
}

// Serialize writes the header in its fixed 80-byte layout.
func (h BlockHeader) Serialize() (common.Hex, error) {
	if h.PreviousBlockHeaderHash.Len() != chainhash.HashSize {
		return common.Hex{}, fmt.Errorf("%w: previous block header hash must be %d bytes", ErrMalformedInput, chainhash.HashSize)
	}
	if h.MerkleRootHash.Len() != chainhash.HashSize {
		return common.Hex{}, fmt.Errorf("%w: merkle root hash must be %d bytes", ErrMalformedInput, chainhash.HashSize)
	}

	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	copy(buf[4:36], h.PreviousBlockHeaderHash.Bytes())
	copy(buf[36:68], h.MerkleRootHash.Bytes())
	binary.LittleEndian.PutUint32(buf[68:72], h.Time)
	binary.LittleEndian.PutUint32(buf[72:76], h.Bits)
	binary.LittleEndian.PutUint32(buf[76:80], h.Nonce)
	return common.NewHex(buf), nil
}

// Hash returns the double SHA-256 of the serialized header, internal order.
func (h BlockHeader) Hash() (common.Hex, error) {
	raw, err := h.Serialize()
	if err != nil {
		return common.Hex{}, err
	}
	return ComputeHash256(raw), nil
}

func DeserializeHeader(raw common.Hex) (BlockHeader, error) {
	if raw.Len() != HeaderSize {
		return BlockHeader{}, fmt.Errorf("%w: header must be %d bytes, got %d", ErrMalformedInput, HeaderSize, raw.Len())
	}
	buf := raw.Bytes()
	return BlockHeader{
		Version:                 binary.LittleEndian.Uint32(buf[0:4]),
		PreviousBlockHeaderHash: common.NewHex(buf[4:36]),
		MerkleRootHash:          common.NewHex(buf[36:68]),
		Time:                    binary.LittleEndian.Uint32(buf[68:72]),
		Bits:                    binary.LittleEndian.Uint32(buf[72:76]),
		Nonce:                   binary.LittleEndian.Uint32(buf[76:80]),
	}, nil
}

// DeserializeHeadersChain splits concatenated 80-byte headers.
func DeserializeHeadersChain(raw common.Hex) ([]BlockHeader, error) {
	if raw.Len()%HeaderSize != 0 {
		return nil, fmt.Errorf("%w: headers chain length %d is not a multiple of %d", ErrMalformedInput, raw.Len(), HeaderSize)
	}
	buf := raw.Bytes()
	headers := make([]BlockHeader, 0, len(buf)/HeaderSize)
	for i := 0; i < len(buf); i += HeaderSize {
		h, err := DeserializeHeader(common.NewHex(buf[i : i+HeaderSize]))
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}

func SerializeHeadersChain(headers []BlockHeader) (common.Hex, error) {
	parts := make([]common.Hex, 0, len(headers))
	for i, h := range headers {
		raw, err := h.Serialize()
		if err != nil {
			return common.Hex{}, fmt.Errorf("header %d: %w", i, err)
		}
		parts = append(parts, raw)
	}
	return common.ConcatHex(parts...), nil
}

// HeaderFromWire converts a btcd header.
func HeaderFromWire(h *wire.BlockHeader) BlockHeader {
	return BlockHeader{
		Version:                 uint32(h.Version),
		PreviousBlockHeaderHash: common.NewHex(h.PrevBlock[:]),
		MerkleRootHash:          common.NewHex(h.MerkleRoot[:]),
		Time:                    uint32(h.Timestamp.Unix()),
		Bits:                    h.Bits,
		Nonce:                   h.Nonce,
	}
}

// BitsToTarget expands the compact difficulty encoding:
// target = mantissa * 256^(exponent-3).
func BitsToTarget(bits uint32) *big.Int {
	exponent := int((bits>>24)&0xff) - 3
	mantissa := new(big.Int).SetUint64(uint64(bits & 0xffffff))
	if exponent >= 0 {
		return mantissa.Lsh(mantissa, uint(8*exponent))
	}
	return mantissa.Rsh(mantissa, uint(-8*exponent))
}

// TargetToDifficulty returns DIFF1_TARGET / target, or zero for a zero target.
func TargetToDifficulty(target *big.Int) *big.Int {
	if target.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(diff1Target, target)
}

// ValidateHeadersChain checks that headers form a chain, that each header
// carries enough work for its own target and that the difficulty of every
// header is the previous or the current epoch difficulty, switching from
// previous to current at most once. It returns the first violation as a
// *HeaderChainError.
//
// When both difficulties are 1 the difficulty checks are skipped, as test
// networks may drop to the minimum difficulty at any block.
func ValidateHeadersChain(headers []BlockHeader, previousEpochDifficulty, currentEpochDifficulty *big.Int) error {
	one := big.NewInt(1)
	skipDifficulty := previousEpochDifficulty.Cmp(one) == 0 && currentEpochDifficulty.Cmp(one) == 0

	requireCurrentDifficulty := false
	var previousHash common.Hex

	for index, header := range headers {
		if index != 0 && !previousHash.Equal(header.PreviousBlockHeaderHash) {
			return headerErr(ErrChainDiscontinuity, index)
		}

		hash, err := header.Hash()
		if err != nil {
			return fmt.Errorf("header %d: %w", index, err)
		}

		target := BitsToTarget(header.Bits)
		if target.Sign() == 0 || HashLEToBigInt(hash).Cmp(target) > 0 {
			return headerErr(ErrInsufficientWork, index)
		}
		previousHash = hash

		if skipDifficulty {
			continue
		}

		difficulty := TargetToDifficulty(target)
		atCurrent := difficulty.Cmp(currentEpochDifficulty) == 0
		if !atCurrent && difficulty.Cmp(previousEpochDifficulty) != 0 {
			return headerErr(ErrUnexpectedDifficulty, index)
		}
		if requireCurrentDifficulty && !atCurrent {
			return headerErr(ErrDifficultyRegression, index)
		}
		requireCurrentDifficulty = atCurrent
	}
	return nil
}
