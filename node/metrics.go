package node

import (
	"context"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/NethermindEth/seth/db"
	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

func makeDBMetrics() db.EventListener {
	latencyBuckets := []float64{
		25,
		50,
		75,
		100,
		250,
		500,
		1000, // 1ms
		2000,
		3000,
		4000,
		5000,
		10000,
		50000,
		500000,
		math.Inf(0),
	}
	readLatencyHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "db",
		Name:      "read_latency",
		Buckets:   latencyBuckets,
	})
	writeLatencyHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "db",
		Name:      "write_latency",
		Buckets:   latencyBuckets,
	})
	commitLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "db",
		Name:      "commit_latency",
		Buckets: []float64{
			5000,
			10000,
			20000,
			50000,
			100000, // 100ms
			200000,
			500000,
			1000000,
			math.Inf(0),
		},
	})

	prometheus.DefaultRegisterer.MustRegister(readLatencyHistogram, writeLatencyHistogram, commitLatency)
	return &db.SelectiveListener{
		OnIOCb: func(write bool, duration time.Duration) {
			if write {
				writeLatencyHistogram.Observe(float64(duration.Microseconds()))
			} else {
				readLatencyHistogram.Observe(float64(duration.Microseconds()))
			}
		},
		OnCommitCb: func(duration time.Duration) {
			commitLatency.Observe(float64(duration.Microseconds()))
		},
	}
}

func makeRequestMetrics(transport string) jsonrpc.NewRequestListener {
	reqCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rpc",
		Subsystem: transport,
		Name:      "requests",
	})
	prometheus.DefaultRegisterer.MustRegister(reqCounter)

	return &jsonrpc.SelectiveListener{
		OnNewRequestCb: func(method string) {
			reqCounter.Inc()
		},
	}
}

func makeIpcMetrics() jsonrpc.ConnectionListener {
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rpc",
		Subsystem: "ipc",
		Name:      "connections",
	})
	prometheus.DefaultRegisterer.MustRegister(connections)

	return &jsonrpc.SelectiveListener{
		OnNewConnectionCb: func(net.Conn) { connections.Inc() },
		OnDisconnectCb:    func(net.Conn) { connections.Dec() },
	}
}

func makeRPCMetrics() jsonrpc.EventListener {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rpc",
		Subsystem: "server",
		Name:      "requests",
	}, []string{"method"})
	failedRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rpc",
		Subsystem: "server",
		Name:      "failed_requests",
	}, []string{"method", "error_code"})
	requestLatencies := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rpc",
		Subsystem: "server",
		Name:      "requests_latency",
	}, []string{"method"})
	prometheus.DefaultRegisterer.MustRegister(requests, failedRequests, requestLatencies)

	return &jsonrpc.SelectiveListener{
		OnNewRequestCb: func(method string) {
			requests.WithLabelValues(method).Inc()
		},
		OnRequestHandledCb: func(method string, took time.Duration) {
			requestLatencies.WithLabelValues(method).Observe(took.Seconds())
		},
		OnRequestFailedCb: func(method string, data any) {
			var errorCode string
			if rpcErr, ok := data.(*jsonrpc.Error); ok {
				errorCode = strconv.Itoa(rpcErr.Code)
			}

			failedRequests.WithLabelValues(method, errorCode).Inc()
		},
	}
}

// makeLedgerMetrics reports query throttling and, when caching is enabled,
// the number of cached answers.
func makeLedgerMetrics(throttled *ledger.ThrottledClient, cached *ledger.CachedClient) {
	jobs := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ledger",
		Name:      "jobs",
	}, func() float64 {
		return float64(throttled.JobsRunning())
	})
	queue := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ledger",
		Name:      "queue",
	}, func() float64 {
		return float64(throttled.QueueLen())
	})
	prometheus.DefaultRegisterer.MustRegister(jobs, queue)

	if cached == nil {
		return
	}
	prometheus.DefaultRegisterer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ledger",
		Subsystem: "cache",
		Name:      "entries",
	}, func() float64 {
		return float64(cached.Len())
	}))
}

func makeStoreMetrics(store *ledger.Store) {
	prometheus.DefaultRegisterer.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "ledger",
		Name:      "head",
	}, func() float64 {
		head, err := store.Head(context.Background())
		if err != nil {
			return 0
		}
		return float64(head.Number)
	}))
}

func makeSethMetrics(version string) {
	prometheus.DefaultRegisterer.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "seth",
		Name:        "info",
		Help:        "Information about the seth binary",
		ConstLabels: prometheus.Labels{"version": version},
	}))
}
