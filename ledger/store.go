package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/NethermindEth/seth/db"
	"github.com/NethermindEth/seth/encoder"
	"github.com/NethermindEth/seth/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const schemaVersion uint64 = 1

var (
	ErrNonSequentialBlock = errors.New("block does not extend the chain head")
	ErrSchemaMismatch     = errors.New("unsupported database schema version")
	ErrBalanceOverflow    = errors.New("balance does not fit in 256 bits")
)

var _ Client = (*Store)(nil)

type accountRecord struct {
	Balance []byte `cbor:"1,keyasint"`
	Nonce   uint64 `cbor:"2,keyasint"`
	Code    []byte `cbor:"3,keyasint"`
	// block the account was last created at, older storage is not visible
	Incarnation uint64 `cbor:"4,keyasint"`
	Deleted     bool   `cbor:"5,keyasint,omitempty"`
}

func (r *accountRecord) account() *Account {
	return &Account{
		Balance: new(uint256.Int).SetBytes(r.Balance).ToBig(),
		Nonce:   r.Nonce,
		Code:    r.Code,
	}
}

// Store keeps every version of every account and storage slot, keyed by the
// block that wrote it, so any committed block can be queried.
type Store struct {
	db  db.DB
	log utils.SimpleLogger
}

func NewStore(database db.DB, log utils.SimpleLogger) (*Store, error) {
	s := &Store{db: database, log: log}
	if err := s.checkSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) checkSchema() error {
	return s.db.Update(func(txn db.Transaction) error {
		err := txn.Get(db.SchemaVersion.Key(), func(val []byte) error {
			if len(val) != 8 || binary.BigEndian.Uint64(val) != schemaVersion {
				return ErrSchemaMismatch
			}
			return nil
		})
		if errors.Is(err, db.ErrKeyNotFound) {
			s.log.Debugw("Initialising ledger store", "schema", schemaVersion)
			return txn.Set(db.SchemaVersion.Key(), uint64Key(schemaVersion))
		}
		return err
	})
}

// Head returns the header of the latest committed block.
func (s *Store) Head(ctx context.Context) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var head *Header
	err := s.db.View(func(txn db.Transaction) error {
		number, err := headNumber(txn)
		if err != nil {
			return err
		}
		head, err = headerByNumber(txn, number)
		return err
	})
	return head, err
}

func (s *Store) HeaderByKey(ctx context.Context, at BlockKey) (*Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var header *Header
	err := s.db.View(func(txn db.Transaction) error {
		number, err := resolve(txn, at)
		if err != nil {
			return err
		}
		header, err = headerByNumber(txn, number)
		return err
	})
	return header, err
}

func (s *Store) Account(ctx context.Context, address string, at BlockKey) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	var account *Account
	err = s.db.View(func(txn db.Transaction) error {
		number, err := resolve(txn, at)
		if err != nil {
			return err
		}
		record, err := accountAt(txn, addr, number)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrNotFound
		}
		account = record.account()
		return nil
	})
	return account, err
}

func (s *Store) StorageAt(ctx context.Context, address, position string, at BlockKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	slot, err := ParsePosition(position)
	if err != nil {
		return nil, err
	}

	var value []byte
	err = s.db.View(func(txn db.Transaction) error {
		number, err := resolve(txn, at)
		if err != nil {
			return err
		}
		record, err := accountAt(txn, addr, number)
		if err != nil {
			return err
		}
		if record == nil {
			return ErrNotFound
		}

		value, err = storageAt(txn, addr, slot, number, record.Incarnation)
		return err
	})
	return value, err
}

// Commit appends a block to the chain. The block must be the child of the
// current head, or block zero on an empty store.
func (s *Store) Commit(ctx context.Context, update *StateUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	header := update.Header

	err := s.db.Update(func(txn db.Transaction) error {
		if err := checkParent(txn, &header); err != nil {
			return err
		}

		num := uint64Key(header.Number)
		encoded, err := encoder.Marshal(header)
		if err != nil {
			return err
		}
		if err = txn.Set(db.BlockHeaders.Key(num), encoded); err != nil {
			return err
		}
		if err = txn.Set(db.BlockHashToNum.Key(header.Hash.Bytes()), num); err != nil {
			return err
		}

		for addr, account := range update.Accounts {
			if err = putAccount(txn, addr, account, header.Number); err != nil {
				return fmt.Errorf("account %s: %w", addr.Hex(), err)
			}
		}

		for addr, slots := range update.Storage {
			for slot, value := range slots {
				if err = txn.Set(db.StorageHistory.Key(addr.Bytes(), slot.Bytes(), num), value); err != nil {
					return err
				}
			}
		}

		return txn.Set(db.ChainHead.Key(), num)
	})
	if err != nil {
		return err
	}

	s.log.Debugw("Committed block", "number", header.Number, "hash", header.Hash.Hex(),
		"accounts", len(update.Accounts), "storage", len(update.Storage))
	return nil
}

func checkParent(txn db.Transaction, header *Header) error {
	head, err := headNumber(txn)
	if errors.Is(err, ErrBlockNotFound) {
		if header.Number != 0 {
			return fmt.Errorf("%w: empty store, got block %d", ErrNonSequentialBlock, header.Number)
		}
		return nil
	} else if err != nil {
		return err
	}

	if header.Number != head+1 {
		return fmt.Errorf("%w: head is %d, got block %d", ErrNonSequentialBlock, head, header.Number)
	}
	parent, err := headerByNumber(txn, head)
	if err != nil {
		return err
	}
	if parent.Hash != header.ParentHash {
		return fmt.Errorf("%w: parent hash %s, head hash %s", ErrNonSequentialBlock,
			header.ParentHash.Hex(), parent.Hash.Hex())
	}
	return nil
}

func putAccount(txn db.Transaction, addr common.Address, account *Account, number uint64) error {
	record := accountRecord{Deleted: true}
	if account != nil {
		balance, err := toUint256(account.Balance)
		if err != nil {
			return err
		}

		prev, err := accountAt(txn, addr, number)
		if err != nil {
			return err
		}
		incarnation := number
		if prev != nil {
			incarnation = prev.Incarnation
		}

		record = accountRecord{
			Balance:     balance.Bytes(),
			Nonce:       account.Nonce,
			Code:        account.Code,
			Incarnation: incarnation,
		}
	}

	encoded, err := encoder.Marshal(record)
	if err != nil {
		return err
	}
	return txn.Set(db.AccountHistory.Key(addr.Bytes(), uint64Key(number)), encoded)
}

func toUint256(balance *big.Int) (*uint256.Int, error) {
	if balance == nil {
		return new(uint256.Int), nil
	}
	if balance.Sign() < 0 {
		return nil, fmt.Errorf("negative balance %s", balance)
	}
	b, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, ErrBalanceOverflow
	}
	return b, nil
}

func resolve(txn db.Transaction, at BlockKey) (uint64, error) {
	switch at.Kind {
	case Latest:
		return headNumber(txn)
	case Earliest:
		return 0, hasHeader(txn, 0)
	case Number:
		return at.Number, hasHeader(txn, at.Number)
	case Hash:
		var number uint64
		err := txn.Get(db.BlockHashToNum.Key(at.Hash.Bytes()), func(val []byte) error {
			number = binary.BigEndian.Uint64(val)
			return nil
		})
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, ErrBlockNotFound
		}
		return number, err
	default:
		return 0, fmt.Errorf("unknown block key kind %d", at.Kind)
	}
}

func headNumber(txn db.Transaction) (uint64, error) {
	var number uint64
	err := txn.Get(db.ChainHead.Key(), func(val []byte) error {
		number = binary.BigEndian.Uint64(val)
		return nil
	})
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, ErrBlockNotFound
	}
	return number, err
}

func hasHeader(txn db.Transaction, number uint64) error {
	err := txn.Get(db.BlockHeaders.Key(uint64Key(number)), func([]byte) error { return nil })
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrBlockNotFound
	}
	return err
}

func headerByNumber(txn db.Transaction, number uint64) (*Header, error) {
	header := new(Header)
	err := txn.Get(db.BlockHeaders.Key(uint64Key(number)), func(val []byte) error {
		return encoder.Unmarshal(val, header)
	})
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, ErrBlockNotFound
	}
	return header, err
}

// accountAt returns the account as of block number, nil if it does not exist.
func accountAt(txn db.Transaction, addr common.Address, number uint64) (*accountRecord, error) {
	val, _, found, err := latestVersion(txn, db.AccountHistory.Key(addr.Bytes()), number)
	if err != nil || !found {
		return nil, err
	}

	record := new(accountRecord)
	if err = encoder.Unmarshal(val, record); err != nil {
		return nil, err
	}
	if record.Deleted {
		return nil, nil
	}
	return record, nil
}

func storageAt(txn db.Transaction, addr common.Address, slot common.Hash, number, since uint64) ([]byte, error) {
	prefix := db.StorageHistory.Key(addr.Bytes(), slot.Bytes())
	val, version, found, err := latestVersion(txn, prefix, number)
	if err != nil {
		return nil, err
	}
	// cleared, or written before the account was last recreated
	if !found || len(val) == 0 || version < since {
		return nil, ErrNotFound
	}
	return val, nil
}

// latestVersion finds the newest value under prefix written at or before
// number, along with the block it was written at.
func latestVersion(txn db.Transaction, prefix []byte, number uint64) (val []byte, version uint64, found bool, err error) {
	it, err := txn.NewIterator()
	if err != nil {
		return nil, 0, false, err
	}
	defer db.CloseAndWrapOnError(it.Close, &err)

	// prefix|number|0x00 is the smallest key sorting after prefix|number
	if !it.SeekLT(slices.Concat(prefix, uint64Key(number), []byte{0})) {
		return nil, 0, false, nil
	}
	key := it.Key()
	if len(key) != len(prefix)+8 || !bytes.HasPrefix(key, prefix) {
		return nil, 0, false, nil
	}
	version = binary.BigEndian.Uint64(key[len(prefix):])

	value, err := it.Value()
	if err != nil {
		return nil, 0, false, err
	}
	return bytes.Clone(value), version, true, nil
}

func uint64Key(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}
