package rpc

import "github.com/NethermindEth/seth/jsonrpc"

// Sign, Call and Accounts are registered so clients get NotImplemented
// rather than MethodNotFound, whatever params they send.

func (h *Handler) Sign() (any, *jsonrpc.Error) {
	return nil, ErrNotImplemented
}

func (h *Handler) Call() (any, *jsonrpc.Error) {
	return nil, ErrNotImplemented
}

func (h *Handler) Accounts() (any, *jsonrpc.Error) {
	return nil, ErrNotImplemented
}
