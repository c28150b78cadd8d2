package jsonrpc_test

import (
	"net"
	"sync"
	"time"
)

type handledCall struct {
	method string
	took   time.Duration
}

type failedCall struct {
	method string
	data   any
}

type CountingEventListener struct {
	mu                    sync.Mutex
	OnNewRequestLogs      []string
	OnRequestHandledCalls []handledCall
	OnRequestFailedCalls  []failedCall
	OnConnectionCalls     map[net.Conn]int
}

func NewCountingEventListener() *CountingEventListener {
	return &CountingEventListener{
		OnNewRequestLogs:      []string{},
		OnRequestHandledCalls: []handledCall{},
		OnRequestFailedCalls:  []failedCall{},
		OnConnectionCalls:     map[net.Conn]int{},
	}
}

func (l *CountingEventListener) OnNewRequest(method string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OnNewRequestLogs = append(l.OnNewRequestLogs, method)
}

func (l *CountingEventListener) OnRequestHandled(method string, took time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OnRequestHandledCalls = append(l.OnRequestHandledCalls, handledCall{method: method, took: took})
}

func (l *CountingEventListener) OnRequestFailed(method string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OnRequestFailedCalls = append(l.OnRequestFailedCalls, failedCall{method: method, data: data})
}

func (l *CountingEventListener) OnNewConnection(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OnConnectionCalls[conn]++
}

func (l *CountingEventListener) OnDisconnect(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.OnConnectionCalls[conn]--
}

func (l *CountingEventListener) NewRequests() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.OnNewRequestLogs...)
}

func (l *CountingEventListener) OpenConnections() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	open := 0
	for _, n := range l.OnConnectionCalls {
		open += n
	}
	return open
}
