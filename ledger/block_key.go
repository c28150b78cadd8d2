package ledger

import (
	"errors"
	"strconv"

	"github.com/NethermindEth/seth/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrInvalidBlockKey     = errors.New("failed to parse block number")
	ErrUnsupportedBlockKey = errors.New("unsupported block tag")
)

type BlockKeyKind uint8

const (
	Latest BlockKeyKind = iota
	Earliest
	Number
	Hash
)

func (k BlockKeyKind) String() string {
	switch k {
	case Latest:
		return "latest"
	case Earliest:
		return "earliest"
	case Number:
		return "number"
	case Hash:
		return "hash"
	default:
		return "unknown"
	}
}

// BlockKey selects the ledger snapshot a query is evaluated against.
type BlockKey struct {
	Kind   BlockKeyKind
	Number uint64
	Hash   common.Hash
}

func LatestKey() BlockKey {
	return BlockKey{Kind: Latest}
}

func NumberKey(n uint64) BlockKey {
	return BlockKey{Kind: Number, Number: n}
}

func HashKey(h common.Hash) BlockKey {
	return BlockKey{Kind: Hash, Hash: h}
}

// Immutable reports whether the key names one fixed snapshot.
func (k BlockKey) Immutable() bool {
	return k.Kind != Latest
}

// String returns the wire form of the key.
func (k BlockKey) String() string {
	switch k.Kind {
	case Earliest:
		return "earliest"
	case Number:
		return hexutil.EncodeUint64(k.Number)
	case Hash:
		return k.Hash.Hex()
	default:
		return "latest"
	}
}

// ParseBlockKey resolves a block parameter into a key. Every string lands in
// exactly one of three outcomes: a key, ErrUnsupportedBlockKey for well formed
// tags this ledger cannot serve, or ErrInvalidBlockKey.
//
//	latest, earliest       tags
//	pending, safe, finalized  unsupported tags
//	0x + 64 hex digits     block hash
//	0x + 1..16 hex digits  block number
func ParseBlockKey(raw string) (BlockKey, error) {
	switch raw {
	case "latest":
		return LatestKey(), nil
	case "earliest":
		return BlockKey{Kind: Earliest}, nil
	case "pending", "safe", "finalized":
		return BlockKey{}, ErrUnsupportedBlockKey
	}

	if len(raw) < 3 || raw[:2] != "0x" {
		return BlockKey{}, ErrInvalidBlockKey
	}
	digits := raw[2:]

	if len(digits) == 2*common.HashLength {
		b, err := hexutil.Decode(raw)
		if err != nil {
			return BlockKey{}, ErrInvalidBlockKey
		}
		return HashKey(common.BytesToHash(b)), nil
	}

	if len(digits) > 16 || !utils.IsHex(digits) {
		return BlockKey{}, ErrInvalidBlockKey
	}
	n, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return BlockKey{}, ErrInvalidBlockKey
	}
	return NumberKey(n), nil
}
