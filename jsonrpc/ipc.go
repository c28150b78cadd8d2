package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/NethermindEth/seth/utils"
	"github.com/sourcegraph/conc"
)

type IpcConnParams struct {
	// Maximum time to write a response.
	WriteDuration time.Duration
}

func DefaultIpcConnParams() *IpcConnParams {
	return &IpcConnParams{
		WriteDuration: 5 * time.Second,
	}
}

// Ipc serves newline or whitespace separated JSON-RPC messages over a unix socket.
type Ipc struct {
	rpc        *Server
	log        utils.SimpleLogger
	connParams *IpcConnParams
	listener   ConnectionListener

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    conc.WaitGroup

	stopOnce sync.Once
	stopErr  error
}

func NewIpc(rpc *Server, log utils.SimpleLogger, endpoint string) (*Ipc, error) {
	ln, err := createListener(endpoint)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Ipc{
		rpc:        rpc,
		log:        log,
		connParams: DefaultIpcConnParams(),
		listener:   &SelectiveListener{},
		ln:         ln,
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// WithConnParams applies the provided params.
func (i *Ipc) WithConnParams(p *IpcConnParams) *Ipc {
	i.connParams = p
	return i
}

// WithListener registers a ConnectionListener
func (i *Ipc) WithListener(listener ConnectionListener) *Ipc {
	i.listener = listener
	return i
}

// Run serves connections until ctx is cancelled.
func (i *Ipc) Run(ctx context.Context) error {
	i.Start()
	<-ctx.Done()
	return i.Stop()
}

func (i *Ipc) Start() {
	i.wg.Go(i.accept)
}

// Stop closes the listener and every open connection, then waits for all
// connection handlers to return. It is safe to call more than once.
func (i *Ipc) Stop() error {
	i.stopOnce.Do(func() {
		i.cancel()
		i.stopErr = i.ln.Close()

		i.mu.Lock()
		for conn := range i.conns {
			if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				i.log.Debugw("Failed closing ipc connection", "err", err)
			}
		}
		i.mu.Unlock()

		i.wg.Wait()
	})
	return i.stopErr
}

func (i *Ipc) accept() {
	for {
		conn, err := i.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				i.log.Warnw("Failed accepting ipc connection", "err", err)
			}
			return
		}

		if !i.track(conn) {
			conn.Close()
			return
		}
		i.wg.Go(func() {
			defer i.untrack(conn)
			i.serveConn(conn)
		})
	}
}

func (i *Ipc) track(conn net.Conn) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ctx.Err() != nil {
		return false
	}
	i.conns[conn] = struct{}{}
	i.listener.OnNewConnection(conn)
	return true
}

func (i *Ipc) untrack(conn net.Conn) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.conns[conn]; !ok {
		return
	}
	delete(i.conns, conn)
	i.listener.OnDisconnect(conn)
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		i.log.Debugw("Failed closing ipc connection", "err", err)
	}
}

func (i *Ipc) serveConn(conn net.Conn) {
	dec := json.NewDecoder(conn)
	for {
		var msg json.RawMessage
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				i.log.Debugw("Dropping ipc connection", "err", err)
			}
			return
		}

		resp, err := i.rpc.HandleReader(i.ctx, bytes.NewReader(msg))
		if err != nil {
			i.log.Errorw("Handler failure", "err", err)
			return
		}
		if resp == nil {
			continue
		}

		if err = conn.SetWriteDeadline(time.Now().Add(i.connParams.WriteDuration)); err != nil {
			return
		}
		if _, err = conn.Write(resp); err != nil {
			i.log.Debugw("Failed writing ipc response", "err", err)
			return
		}
	}
}
