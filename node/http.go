package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/service"
	"github.com/NethermindEth/seth/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sourcegraph/conc"
)

type httpService struct {
	srv      *http.Server
	listener net.Listener
}

var _ service.Service = (*httpService)(nil)

func (h *httpService) Run(ctx context.Context) error {
	errCh := make(chan error)
	defer close(errCh)

	var wg conc.WaitGroup
	defer wg.Wait()
	wg.Go(func() {
		if err := h.srv.Serve(h.listener); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	})

	select {
	case <-ctx.Done():
		return h.srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

func makeHTTPService(listener net.Listener, handler http.Handler) *httpService {
	return &httpService{
		srv: &http.Server{
			Addr:    listener.Addr().String(),
			Handler: handler,
			// ReadTimeout also sets ReadHeaderTimeout and IdleTimeout.
			ReadTimeout: 30 * time.Second,
		},
		listener: listener,
	}
}

// corsHandler allows browser requests from the given origins, or leaves the
// handler untouched when there are none.
func corsHandler(handler http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return handler
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	}).Handler(handler)
}

func makeRPCOverHTTP(listener net.Listener, jsonrpcServer *jsonrpc.Server, log utils.SimpleLogger,
	limiter *jsonrpc.RateLimiter, corsOrigins []string, reqListener jsonrpc.NewRequestListener,
) *httpService {
	httpHandler := jsonrpc.NewHTTP(jsonrpcServer, log).WithRateLimiter(limiter)
	if reqListener != nil {
		httpHandler = httpHandler.WithListener(reqListener)
	}
	mux := http.NewServeMux()
	mux.Handle("/", httpHandler)
	return makeHTTPService(listener, corsHandler(mux, corsOrigins))
}

func makeRPCOverWebsocket(listener net.Listener, jsonrpcServer *jsonrpc.Server, log utils.SimpleLogger,
	corsOrigins []string, reqListener jsonrpc.NewRequestListener,
) *httpService {
	wsHandler := jsonrpc.NewWebsocket(jsonrpcServer, log).WithOriginPatterns(corsOrigins)
	if reqListener != nil {
		wsHandler = wsHandler.WithListener(reqListener)
	}
	mux := http.NewServeMux()
	mux.Handle("/", wsHandler)
	return makeHTTPService(listener, mux)
}

func makeRPCOverIpc(endpoint string, jsonrpcServer *jsonrpc.Server, log utils.SimpleLogger,
	connListener jsonrpc.ConnectionListener,
) (*jsonrpc.Ipc, error) {
	ipc, err := jsonrpc.NewIpc(jsonrpcServer, log, endpoint)
	if err != nil {
		return nil, err
	}
	if connListener != nil {
		ipc = ipc.WithListener(connListener)
	}
	return ipc, nil
}

func makeMetrics(listener net.Listener, logLevel *utils.LogLevel) *httpService {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer,
		promhttp.HandlerOpts{Registry: prometheus.DefaultRegisterer}))
	mux.HandleFunc("/log/level", func(w http.ResponseWriter, r *http.Request) {
		utils.HTTPLogSettings(w, r, logLevel)
	})
	return makeHTTPService(listener, mux)
}

func makePPROF(listener net.Listener) *httpService {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return makeHTTPService(listener, mux)
}
