// Package upstream answers ledger queries by forwarding them to another
// Ethereum JSON-RPC node.
package upstream

import (
	"bytes"
	"context"
	"fmt"

	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/utils"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

var _ ledger.Client = (*Client)(nil)

type Client struct {
	rpc *rpc.Client
	log utils.SimpleLogger
}

// Dial connects to url, any transport go-ethereum's rpc package accepts works.
func Dial(ctx context.Context, url string, log utils.SimpleLogger) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial upstream %s: %w", url, err)
	}
	return NewClient(c, log), nil
}

func NewClient(c *rpc.Client, log utils.SimpleLogger) *Client {
	return &Client{rpc: c, log: log}
}

func (c *Client) Close() {
	c.rpc.Close()
}

// Account fetches balance, nonce and code in one batch. An account with all
// three empty does not exist.
func (c *Client) Account(ctx context.Context, address string, at ledger.BlockKey) (*ledger.Account, error) {
	addr, err := ledger.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	block := blockParam(at)

	var (
		balance hexutil.Big
		nonce   hexutil.Uint64
		code    hexutil.Bytes
	)
	batch := []rpc.BatchElem{
		{Method: "eth_getBalance", Args: []any{addr, block}, Result: &balance},
		{Method: "eth_getTransactionCount", Args: []any{addr, block}, Result: &nonce},
		{Method: "eth_getCode", Args: []any{addr, block}, Result: &code},
	}
	if err = c.rpc.BatchCallContext(ctx, batch); err != nil {
		return nil, err
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, fmt.Errorf("%s: %w", elem.Method, elem.Error)
		}
	}

	account := &ledger.Account{
		Balance: balance.ToInt(),
		Nonce:   uint64(nonce),
		Code:    code,
	}
	if account.Balance.Sign() == 0 && account.Nonce == 0 && len(account.Code) == 0 {
		c.log.Tracew("Upstream account is empty", "address", addr.Hex(), "block", at.String())
		return nil, ledger.ErrNotFound
	}
	return account, nil
}

// StorageAt reports zero slots as absent.
func (c *Client) StorageAt(ctx context.Context, address, position string, at ledger.BlockKey) ([]byte, error) {
	addr, err := ledger.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	slot, err := ledger.ParsePosition(position)
	if err != nil {
		return nil, err
	}

	var value hexutil.Bytes
	if err = c.rpc.CallContext(ctx, &value, "eth_getStorageAt", addr, slot, blockParam(at)); err != nil {
		return nil, err
	}
	if len(bytes.TrimLeft(value, "\x00")) == 0 {
		return nil, ledger.ErrNotFound
	}
	return value, nil
}

// blockParam renders a key the way eth_ methods accept it, hashes use the
// EIP-1898 object form.
func blockParam(at ledger.BlockKey) any {
	if at.Kind == ledger.Hash {
		return map[string]any{"blockHash": at.Hash}
	}
	return at.String()
}

