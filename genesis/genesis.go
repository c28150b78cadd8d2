// Package genesis seeds an empty ledger store with the accounts allocated
// at block zero.
package genesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/NethermindEth/seth/encoder"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/utils"
	"github.com/NethermindEth/seth/validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/crypto/sha3"
	"gopkg.in/yaml.v3"
)

var ErrGenesisMismatch = errors.New("stored genesis block does not match the genesis file")

type Config struct {
	Timestamp uint64                `yaml:"timestamp"`
	Alloc     map[string]Allocation `yaml:"alloc" validate:"dive,keys,eth_address,endkeys,required"`
}

// Allocation is the state of one account at genesis. Balance is a decimal or
// 0x-prefixed hex number, code and storage are hex.
type Allocation struct {
	Balance string            `yaml:"balance" validate:"required"`
	Nonce   uint64            `yaml:"nonce"`
	Code    string            `yaml:"code" validate:"omitempty,hexadecimal"`
	Storage map[string]string `yaml:"storage" validate:"dive,keys,hexadecimal,max=66,endkeys,hexadecimal,max=66"`
}

func Read(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(file))
	decoder.KnownFields(true)
	if err = decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("decode genesis file %s: %w", path, err)
	}
	if err = validator.Validator().Struct(config); err != nil {
		return nil, fmt.Errorf("validate genesis file %s: %w", path, err)
	}
	return &config, nil
}

// StateUpdate builds block zero from the allocation. The block hash commits to
// the timestamp and the allocated state, so the same file always yields the
// same block.
func (c *Config) StateUpdate() (*ledger.StateUpdate, error) {
	update := &ledger.StateUpdate{
		Header:   ledger.Header{Timestamp: c.Timestamp},
		Accounts: make(map[common.Address]*ledger.Account, len(c.Alloc)),
		Storage:  make(map[common.Address]map[common.Hash][]byte),
	}

	for address, alloc := range c.Alloc {
		if !common.IsHexAddress(address) {
			return nil, fmt.Errorf("invalid address %q", address)
		}
		addr := common.HexToAddress(address)

		account, err := alloc.account()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", address, err)
		}
		update.Accounts[addr] = account

		if len(alloc.Storage) == 0 {
			continue
		}
		slots := make(map[common.Hash][]byte, len(alloc.Storage))
		for position, value := range alloc.Storage {
			key, err := decodeWord(position)
			if err != nil {
				return nil, fmt.Errorf("account %s: storage position %q: %w", address, position, err)
			}
			word, err := decodeWord(value)
			if err != nil {
				return nil, fmt.Errorf("account %s: storage value %q: %w", address, value, err)
			}
			if word == (common.Hash{}) {
				continue
			}
			slots[key] = word.Bytes()
		}
		update.Storage[addr] = slots
	}

	hash, err := stateHash(update)
	if err != nil {
		return nil, err
	}
	update.Header.Hash = hash
	return update, nil
}

func (a *Allocation) account() (*ledger.Account, error) {
	if a.Balance == "" {
		return nil, errors.New("missing balance")
	}
	balance, ok := math.ParseBig256(a.Balance)
	if !ok || balance.Sign() < 0 {
		return nil, fmt.Errorf("invalid balance %q", a.Balance)
	}

	if a.Code != "" && !utils.IsHex(utils.StripHexPrefix(a.Code)) {
		return nil, fmt.Errorf("invalid code %q", a.Code)
	}
	return &ledger.Account{Balance: balance, Nonce: a.Nonce, Code: common.FromHex(a.Code)}, nil
}

// decodeWord left pads a hex string of up to 32 bytes, odd lengths included.
func decodeWord(s string) (common.Hash, error) {
	if !utils.IsHex(utils.StripHexPrefix(s)) {
		return common.Hash{}, fmt.Errorf("not hex")
	}
	b := common.FromHex(s)
	if len(b) > common.HashLength {
		return common.Hash{}, fmt.Errorf("longer than %d bytes", common.HashLength)
	}
	return common.BytesToHash(b), nil
}

func stateHash(update *ledger.StateUpdate) (common.Hash, error) {
	encoded, err := encoder.Marshal(struct {
		Timestamp uint64                                    `cbor:"1,keyasint"`
		Accounts  map[common.Address]*ledger.Account        `cbor:"2,keyasint"`
		Storage   map[common.Address]map[common.Hash][]byte `cbor:"3,keyasint"`
	}{update.Header.Timestamp, update.Accounts, update.Storage})
	if err != nil {
		return common.Hash{}, err
	}
	hash := sha3.NewLegacyKeccak256()
	hash.Write(encoded)
	return common.BytesToHash(hash.Sum(nil)), nil
}

// Apply commits the genesis block to an empty store. A store that already
// holds a chain must have been started from the same genesis.
func Apply(ctx context.Context, store *ledger.Store, config *Config, log utils.SimpleLogger) error {
	update, err := config.StateUpdate()
	if err != nil {
		return err
	}

	stored, err := store.HeaderByKey(ctx, ledger.NumberKey(0))
	switch {
	case errors.Is(err, ledger.ErrBlockNotFound):
		if err = store.Commit(ctx, update); err != nil {
			return fmt.Errorf("commit genesis: %w", err)
		}
		log.Infow("Stored genesis block", "hash", update.Header.Hash.Hex(), "accounts", len(update.Accounts))
		return nil
	case err != nil:
		return err
	case stored.Hash != update.Header.Hash:
		return fmt.Errorf("%w: stored %s, file %s", ErrGenesisMismatch, stored.Hash.Hex(), update.Header.Hash.Hex())
	}
	log.Debugw("Genesis block already stored", "hash", stored.Hash.Hex())
	return nil
}
