package rpc

import (
	"context"
	"errors"

	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/utils"
)

/****************************************************
		Account Handlers
*****************************************************/

// Balance returns the balance of an account in wei, or null if the account
// does not exist at the given block.
func (h *Handler) Balance(ctx context.Context, address, block string) (*string, *jsonrpc.Error) {
	account, rpcErr := h.account(ctx, "eth_getBalance", address, block)
	if rpcErr != nil || account == nil {
		return nil, rpcErr
	}
	balance := utils.BigToHex(account.Balance)
	return &balance, nil
}

// Code returns the code deployed at an account, or null if the account does
// not exist at the given block.
func (h *Handler) Code(ctx context.Context, address, block string) (*string, *jsonrpc.Error) {
	account, rpcErr := h.account(ctx, "eth_getCode", address, block)
	if rpcErr != nil || account == nil {
		return nil, rpcErr
	}
	code := utils.HexPrefix(utils.BytesToHex(account.Code))
	return &code, nil
}

// StorageAt returns the value of a storage slot, or null if the slot or its
// account does not exist at the given block.
func (h *Handler) StorageAt(ctx context.Context, address, position, block string) (*string, *jsonrpc.Error) {
	key, rpcErr := resolveBlockKey(block)
	if rpcErr != nil {
		return nil, rpcErr
	}
	accountAddress, rpcErr := validateAccountAddress(address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	storagePosition, rpcErr := validateStoragePosition(position)
	if rpcErr != nil {
		return nil, rpcErr
	}

	value, err := h.ledger.StorageAt(ctx, accountAddress, storagePosition, key)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		h.log.Errorw("Failed to get storage", "method", "eth_getStorageAt", "address", address,
			"position", position, "block", block, "err", err)
		return nil, ErrInternal
	}

	hexValue := utils.HexPrefix(utils.BytesToHex(value))
	return &hexValue, nil
}

// account validates the block key before the address, both before the
// ledger is queried. A nil account with a nil error means absent.
func (h *Handler) account(ctx context.Context, method, address, block string) (*ledger.Account, *jsonrpc.Error) {
	key, rpcErr := resolveBlockKey(block)
	if rpcErr != nil {
		return nil, rpcErr
	}
	accountAddress, rpcErr := validateAccountAddress(address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	account, err := h.ledger.Account(ctx, accountAddress, key)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		h.log.Errorw("Failed to get account", "method", method, "address", address, "block", block, "err", err)
		return nil, ErrInternal
	}
	return account, nil
}
