package rpc

import (
	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/utils"
)

type Handler struct {
	ledger ledger.Client
	log    utils.Logger
}

func New(client ledger.Client, log utils.Logger) *Handler {
	return &Handler{
		ledger: client,
		log:    log,
	}
}

// Methods lists the account methods in registration order.
func (h *Handler) Methods() []jsonrpc.Method {
	return []jsonrpc.Method{
		{
			Name:      "eth_getBalance",
			Params:    []jsonrpc.Parameter{{Name: "address"}, {Name: "block"}},
			Signature: accountSignature,
			Handler:   h.Balance,
		},
		{
			Name:      "eth_getStorageAt",
			Params:    []jsonrpc.Parameter{{Name: "address"}, {Name: "position"}, {Name: "block"}},
			Signature: storageSignature,
			Handler:   h.StorageAt,
		},
		{
			Name:      "eth_getCode",
			Params:    []jsonrpc.Parameter{{Name: "address"}, {Name: "block"}},
			Signature: accountSignature,
			Handler:   h.Code,
		},
		{
			Name:         "eth_sign",
			IgnoreParams: true,
			Handler:      h.Sign,
		},
		{
			Name:         "eth_call",
			IgnoreParams: true,
			Handler:      h.Call,
		},
		{
			Name:         "eth_accounts",
			IgnoreParams: true,
			Handler:      h.Accounts,
		},
	}
}
