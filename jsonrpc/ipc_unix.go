//go:build !windows

package jsonrpc

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
)

// sun_path limit, see unix(7)
const maxIpcPathSize = 108

var errPathTooLong = errors.New("ipc: path too long")

func createListener(endpoint string) (net.Listener, error) {
	// path + terminator
	if len(endpoint)+1 > maxIpcPathSize {
		return nil, errPathTooLong
	}
	if err := preparePath(endpoint); err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", endpoint)
	if err != nil {
		return nil, err
	}
	if err = os.Chmod(endpoint, 0o600); err != nil {
		return nil, errors.Join(err, l.Close())
	}
	return l, nil
}

func IpcDial(ctx context.Context, endpoint string) (net.Conn, error) {
	return new(net.Dialer).DialContext(ctx, "unix", endpoint)
}

// preparePath creates the socket directory and removes a stale socket file.
func preparePath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o751); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
