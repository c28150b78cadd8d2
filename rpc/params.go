package rpc

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
)

const (
	addressLength = 42

	accountSignature = "Takes [address: DATA(20), block: QUANTITY|TAG]"
	storageSignature = "Takes [address: DATA(20), position: QUANTITY, block: QUANTITY|TAG]"
)

// resolveBlockKey maps unsupported tags to NotImplemented and anything else
// unparseable to InvalidParams.
func resolveBlockKey(block string) (ledger.BlockKey, *jsonrpc.Error) {
	key, err := ledger.ParseBlockKey(block)
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, ledger.ErrUnsupportedBlockKey):
		return ledger.BlockKey{}, ErrNotImplemented
	default:
		return ledger.BlockKey{}, ErrInvalidParams("Failed to parse block number")
	}
}

// validateAccountAddress checks the length of a 0x prefixed address and
// returns the digits after the prefix. The digits themselves are checked by
// the ledger.
func validateAccountAddress(address string) (string, *jsonrpc.Error) {
	if len(address) != addressLength {
		return "", ErrInvalidParams(fmt.Sprintf("Invalid address length: %d != %d", len(address), addressLength))
	}
	return address[2:], nil
}

// validateStoragePosition accepts a 0x prefixed position of at least one
// whole byte.
func validateStoragePosition(position string) (string, *jsonrpc.Error) {
	if len(position) < 4 || len(position)%2 != 0 {
		return "", ErrInvalidParams("Invalid storage position: " + position)
	}
	return position[2:], nil
}
