package rpc

import "github.com/NethermindEth/seth/jsonrpc"

// NotImplemented is the EIP-1474 "method not supported" code.
const NotImplemented = -32004

var (
	// ErrNotImplemented answers methods and block tags this node does not serve.
	ErrNotImplemented = &jsonrpc.Error{Code: NotImplemented, Message: "Not implemented"}
	// ErrInternal never carries the underlying cause, it is logged instead.
	ErrInternal = &jsonrpc.Error{Code: jsonrpc.InternalError, Message: "Internal error"}
)

// ErrInvalidParams reports a malformed parameter, msg is returned to the caller as is.
func ErrInvalidParams(msg string) *jsonrpc.Error {
	return &jsonrpc.Error{Code: jsonrpc.InvalidParams, Message: msg}
}
