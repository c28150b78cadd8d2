//go:build !windows

package jsonrpc_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIpc(t *testing.T, endpoint string, listener jsonrpc.ConnectionListener) *jsonrpc.Ipc {
	t.Helper()
	ipc, err := jsonrpc.NewIpc(echoServer(t), utils.NewNopZapLogger(), endpoint)
	require.NoError(t, err)
	return ipc.WithListener(listener)
}

func exchangeMsg(conn net.Conn, send, want string) error {
	if _, err := conn.Write([]byte(send)); err != nil {
		return err
	}

	buffer := make([]byte, len(want))
	if _, err := io.ReadFull(conn, buffer); err != nil {
		return err
	}

	if !bytes.Equal(buffer, []byte(want)) {
		return fmt.Errorf("recv msg does not match. got %v, want %v", string(buffer), want)
	}
	return nil
}

func TestIpcHandler(t *testing.T) {
	t.Run("single conn", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, &jsonrpc.SelectiveListener{})
		srv.Start()
		defer srv.Stop()

		conn, err := jsonrpc.IpcDial(context.Background(), path)
		require.NoError(t, err)
		defer conn.Close()
		assert.NoError(t, exchangeMsg(conn, echoRequest, echoResponse))
	})

	t.Run("several messages on one conn", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, &jsonrpc.SelectiveListener{})
		srv.Start()
		defer srv.Stop()

		conn, err := jsonrpc.IpcDial(context.Background(), path)
		require.NoError(t, err)
		defer conn.Close()
		// messages may share a write, the decoder splits them
		require.NoError(t, exchangeMsg(conn, echoRequest+"\n"+echoRequest, echoResponse+echoResponse))
	})

	t.Run("multiple conns", func(t *testing.T) {
		var (
			items = 256
			conns = make([]net.Conn, items)
			errCh = make(chan error, items)
		)
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, &jsonrpc.SelectiveListener{})
		srv.Start()
		defer srv.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for i := 0; i < items; i++ {
			conn, err := jsonrpc.IpcDial(ctx, path)
			require.NoError(t, err)
			conns[i] = conn
			go func() {
				errCh <- exchangeMsg(conn, echoRequest, echoResponse)
			}()
		}
		defer func() {
			for _, conn := range conns {
				conn.Close()
			}
		}()

		for i := 0; i < items; i++ {
			select {
			case <-ctx.Done():
				t.Fatal(ctx.Err())
			case err := <-errCh:
				require.NoError(t, err)
			}
		}
	})

	t.Run("teardown", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, &jsonrpc.SelectiveListener{})
		srv.Start()

		var (
			items = 128
			errCh = make(chan error, items)
			wg    sync.WaitGroup
		)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		for i := 0; i < items; i++ {
			conn, err := jsonrpc.IpcDial(ctx, path)
			require.NoError(t, err)
			defer conn.Close()
			wg.Add(1)
			go func() {
				wg.Done()
				_, err := conn.Read(make([]byte, 1))
				errCh <- err
			}()
		}
		wg.Wait()
		require.NoError(t, srv.Stop())
		// a second stop is a no-op
		require.NoError(t, srv.Stop())

		for i := 0; i < items; i++ {
			select {
			case <-ctx.Done():
				t.Fatal(ctx.Err())
			case err := <-errCh:
				assert.Error(t, err)
			}
		}
	})

	t.Run("disconnecting clients", func(t *testing.T) {
		listener := NewCountingEventListener()
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, listener)
		srv.Start()
		defer func() { assert.NoError(t, srv.Stop()) }()

		conn, err := jsonrpc.IpcDial(context.Background(), path)
		require.NoError(t, err)
		require.NoError(t, exchangeMsg(conn, echoRequest, echoResponse))
		assert.Equal(t, 1, listener.OpenConnections())

		require.NoError(t, conn.Close())
		assert.Eventually(t, func() bool {
			return listener.OpenConnections() == 0
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("run stops on context cancel", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "seth.ipc")
		srv := testIpc(t, path, &jsonrpc.SelectiveListener{})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Run(ctx) }()

		require.Eventually(t, func() bool {
			conn, err := jsonrpc.IpcDial(context.Background(), path)
			if err != nil {
				return false
			}
			defer conn.Close()
			return exchangeMsg(conn, echoRequest, echoResponse) == nil
		}, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("ipc server did not stop")
		}
	})
}

func TestIpcPathTooLong(t *testing.T) {
	path := filepath.Join(t.TempDir(), string(bytes.Repeat([]byte("a"), 120)))
	_, err := jsonrpc.NewIpc(echoServer(t), utils.NewNopZapLogger(), path)
	require.Error(t, err)
}
