// Package ledger is the account state the RPC handlers read from. A Client
// answers point-in-time queries, the Store keeps a versioned local copy and
// the upstream package forwards queries to another Ethereum node.
package ledger

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

//go:generate mockgen -destination=../mocks/mock_ledger.go -package=mocks -mock_names Client=MockLedgerClient github.com/NethermindEth/seth/ledger Client

// ErrNotFound reports an account, slot or block that does not exist at the
// requested snapshot.
var ErrNotFound = errors.New("not found")

var ErrBlockNotFound = fmt.Errorf("block %w", ErrNotFound)

type Account struct {
	Balance *big.Int
	Nonce   uint64
	Code    []byte
}

// Client answers account queries against a ledger snapshot. Addresses are 40
// hex digits and positions an even number of hex digits, both without the 0x
// prefix.
type Client interface {
	Account(ctx context.Context, address string, at BlockKey) (*Account, error)
	StorageAt(ctx context.Context, address, position string, at BlockKey) ([]byte, error)
}

type Header struct {
	Number     uint64      `cbor:"1,keyasint"`
	Hash       common.Hash `cbor:"2,keyasint"`
	ParentHash common.Hash `cbor:"3,keyasint"`
	Timestamp  uint64      `cbor:"4,keyasint"`
}

// StateUpdate is the state written by one block. Accounts set to nil are
// deleted, storage values of zero length clear the slot.
type StateUpdate struct {
	Header   Header
	Accounts map[common.Address]*Account
	Storage  map[common.Address]map[common.Hash][]byte
}

func ParseAddress(address string) (common.Address, error) {
	b, err := hex.DecodeString(address)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("address %q is %d bytes long", address, len(b))
	}
	return common.BytesToAddress(b), nil
}

// ParsePosition left pads a storage position to a full slot key. Positions
// wider than a slot cannot exist and report ErrNotFound.
func ParsePosition(position string) (common.Hash, error) {
	b, err := hex.DecodeString(position)
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode position %q: %w", position, err)
	}
	if len(b) > common.HashLength {
		return common.Hash{}, ErrNotFound
	}
	return common.BytesToHash(b), nil
}
