package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"runtime"
	"strconv"

	"github.com/Masterminds/semver/v3"
	"github.com/NethermindEth/seth/db"
	"github.com/NethermindEth/seth/db/pebble"
	"github.com/NethermindEth/seth/genesis"
	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/ledger/upstream"
	"github.com/NethermindEth/seth/rpc"
	"github.com/NethermindEth/seth/service"
	"github.com/NethermindEth/seth/utils"
	"github.com/NethermindEth/seth/validator"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	StoreLedger    = "store"
	UpstreamLedger = "upstream"
)

// Config is the top-level seth configuration.
type Config struct {
	LogLevel utils.LogLevel `mapstructure:"log-level"`
	Colour   bool           `mapstructure:"colour"`

	HTTP          bool     `mapstructure:"http"`
	HTTPHost      string   `mapstructure:"http-host"`
	HTTPPort      uint16   `mapstructure:"http-port"`
	Websocket     bool     `mapstructure:"ws"`
	WebsocketHost string   `mapstructure:"ws-host"`
	WebsocketPort uint16   `mapstructure:"ws-port"`
	IPCPath       string   `mapstructure:"ipc-path"`
	CORSOrigins   []string `mapstructure:"cors-origins"`

	Metrics     bool   `mapstructure:"metrics"`
	MetricsHost string `mapstructure:"metrics-host"`
	MetricsPort uint16 `mapstructure:"metrics-port"`
	Pprof       bool   `mapstructure:"pprof"`
	PprofHost   string `mapstructure:"pprof-host"`
	PprofPort   uint16 `mapstructure:"pprof-port"`

	Ledger       string `mapstructure:"ledger" validate:"oneof=store upstream"`
	DatabasePath string `mapstructure:"db-path" validate:"required_if=Ledger store"`
	DBCacheSize  uint   `mapstructure:"db-cache-size"`
	DBMaxHandles int    `mapstructure:"db-max-handles" validate:"min=0"`
	GenesisFile  string `mapstructure:"genesis-file"`
	UpstreamURL  string `mapstructure:"upstream-url" validate:"required_if=Ledger upstream"`

	MaxConcurrentQueries uint    `mapstructure:"max-concurrent-queries" validate:"min=1"`
	MaxQueuedQueries     int32   `mapstructure:"max-queued-queries" validate:"min=0"`
	LedgerCacheSize      int     `mapstructure:"ledger-cache-size" validate:"min=0"`
	RPCMaxGoroutines     int     `mapstructure:"rpc-max-goroutines" validate:"min=0"`
	RPCRateLimit         float64 `mapstructure:"rpc-rate-limit" validate:"min=0"`
	RPCRateBurst         int     `mapstructure:"rpc-rate-burst" validate:"min=0"`
}

type SethNode interface {
	Run(ctx context.Context)
	Config() Config
}

type NewSethNodeFn func(cfg *Config, version string) (SethNode, error)

type Node struct {
	cfg     *Config
	db      db.DB
	closers []func() error

	services []service.Service
	log      utils.Logger

	version string
}

// New sets the config and logger to the seth node.
// Any errors while parsing the config or opening the ledger will be returned.
func New(cfg *Config, version string) (*Node, error) { //nolint:gocyclo,funlen
	if cfg.LogLevel.GetAtomicLevel() == (zap.AtomicLevel{}) {
		cfg.LogLevel = *utils.NewLogLevel(utils.INFO)
	}
	if err := validator.Validator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := utils.NewZapLogger(&cfg.LogLevel, cfg.Colour)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:     cfg,
		log:     log,
		version: version,
	}
	if err = n.init(); err != nil {
		return nil, utils.RunAndWrapOnError(n.close, err)
	}
	return n, nil
}

func (n *Node) init() error { //nolint:funlen
	cfg := n.cfg

	client, err := n.openLedger()
	if err != nil {
		return err
	}

	var cached *ledger.CachedClient
	if cfg.LedgerCacheSize > 0 {
		cached = ledger.NewCachedClient(client, cfg.LedgerCacheSize)
		client = cached
	}
	throttled := ledger.NewThrottledClient(client, cfg.MaxConcurrentQueries, cfg.MaxQueuedQueries)

	maxGoroutines := cfg.RPCMaxGoroutines
	if maxGoroutines == 0 {
		// to improve RPC throughput we double GOMAXPROCS
		maxGoroutines = 2 * runtime.GOMAXPROCS(0)
	}
	jsonrpcServer := jsonrpc.NewServer(maxGoroutines, n.log).WithValidator(validator.Validator())
	if err = jsonrpcServer.RegisterMethods(rpc.New(throttled, n.log).Methods()...); err != nil {
		return err
	}

	var (
		httpListener jsonrpc.NewRequestListener
		wsListener   jsonrpc.NewRequestListener
		ipcListener  jsonrpc.ConnectionListener
	)
	if cfg.Metrics {
		jsonrpcServer.WithListener(makeRPCMetrics())
		httpListener = makeRequestMetrics("http")
		wsListener = makeRequestMetrics("ws")
		ipcListener = makeIpcMetrics()
		makeLedgerMetrics(throttled, cached)
		makeSethMetrics(n.version)
	}

	if cfg.HTTP {
		ln, err := n.listen(cfg.HTTPHost, cfg.HTTPPort)
		if err != nil {
			return err
		}
		limiter := jsonrpc.NewRateLimiter(cfg.RPCRateLimit, cfg.RPCRateBurst)
		n.services = append(n.services,
			makeRPCOverHTTP(ln, jsonrpcServer, n.log, limiter, cfg.CORSOrigins, httpListener))
	}
	if cfg.Websocket {
		ln, err := n.listen(cfg.WebsocketHost, cfg.WebsocketPort)
		if err != nil {
			return err
		}
		n.services = append(n.services,
			makeRPCOverWebsocket(ln, jsonrpcServer, n.log, cfg.CORSOrigins, wsListener))
	}
	if cfg.IPCPath != "" {
		ipc, err := makeRPCOverIpc(cfg.IPCPath, jsonrpcServer, n.log, ipcListener)
		if err != nil {
			return fmt.Errorf("create ipc endpoint %s: %w", cfg.IPCPath, err)
		}
		n.closers = append(n.closers, ipc.Stop)
		n.services = append(n.services, ipc)
	}
	if cfg.Metrics {
		ln, err := n.listen(cfg.MetricsHost, cfg.MetricsPort)
		if err != nil {
			return err
		}
		n.services = append(n.services, makeMetrics(ln, &cfg.LogLevel))
	}
	if cfg.Pprof {
		ln, err := n.listen(cfg.PprofHost, cfg.PprofPort)
		if err != nil {
			return err
		}
		n.services = append(n.services, makePPROF(ln))
	}

	if _, err := semver.NewVersion(n.version); err != nil {
		n.log.Warnw("Failed to parse seth version", "version", n.version, "err", err)
	}
	return nil
}

// openLedger returns the client queries are answered from, seeding the local
// store from the genesis file when one is configured.
func (n *Node) openLedger() (ledger.Client, error) {
	cfg := n.cfg
	if cfg.Ledger == UpstreamLedger {
		client, err := upstream.Dial(context.Background(), cfg.UpstreamURL, n.log)
		if err != nil {
			return nil, err
		}
		n.closers = append(n.closers, func() error {
			client.Close()
			return nil
		})
		n.log.Infow("Forwarding ledger queries", "upstream", cfg.UpstreamURL)
		return client, nil
	}

	dbLog, err := utils.NewZapLogger(utils.NewLogLevel(utils.ERROR), cfg.Colour)
	if err != nil {
		return nil, fmt.Errorf("create DB logger: %w", err)
	}
	options := []pebble.Option{pebble.WithLogger(dbLog)}
	if cfg.DBCacheSize > 0 {
		options = append(options, pebble.WithCacheSize(cfg.DBCacheSize))
	}
	if cfg.DBMaxHandles > 0 {
		options = append(options, pebble.WithMaxOpenFiles(cfg.DBMaxHandles))
	}
	database, err := pebble.New(cfg.DatabasePath, options...)
	if err != nil {
		return nil, fmt.Errorf("open DB: %w", err)
	}
	if cfg.Metrics {
		database = database.WithListener(makeDBMetrics())
	}
	n.db = database

	store, err := ledger.NewStore(database, n.log)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics {
		makeStoreMetrics(store)
	}

	if cfg.GenesisFile != "" {
		genesisConfig, err := genesis.Read(cfg.GenesisFile)
		if err != nil {
			return nil, err
		}
		if err = genesis.Apply(context.Background(), store, genesisConfig, n.log); err != nil {
			return nil, err
		}
	}

	if _, err = store.Head(context.Background()); errors.Is(err, ledger.ErrBlockNotFound) {
		n.log.Warnw("Ledger store is empty, every query will return null", "db", cfg.DatabasePath)
	} else if err != nil {
		return nil, err
	}
	return store, nil
}

func (n *Node) listen(host string, port uint16) (net.Listener, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.FormatUint(uint64(port), 10)))
	if err != nil {
		return nil, err
	}
	n.closers = append(n.closers, func() error {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})
	return ln, nil
}

func (n *Node) close() error {
	var err error
	for i := len(n.closers) - 1; i >= 0; i-- {
		err = errors.Join(err, n.closers[i]())
	}
	if n.db != nil {
		err = errors.Join(err, n.db.Close())
	}
	return err
}

// Run starts the seth node and all its services.
// Errors returned by a service's Run are logged and stop the node.
// Run will wait for all services to return before exiting.
func (n *Node) Run(ctx context.Context) {
	defer func() {
		if closeErr := n.close(); closeErr != nil {
			n.log.Errorw("Error while shutting down", "err", closeErr)
		}
	}()

	n.log.Infow("Starting seth", "version", n.version, "ledger", n.cfg.Ledger)

	ctx, cancel := context.WithCancel(ctx)
	wg := conc.NewWaitGroup()
	for _, s := range n.services {
		wg.Go(func() {
			if err := s.Run(ctx); err != nil {
				n.log.Errorw("Service error", "name", reflect.TypeOf(s), "err", err)
				cancel()
			}
		})
	}
	defer wg.Wait()

	<-ctx.Done()
	cancel()
	n.log.Infow("Shutting down seth...")
}

func (n *Node) Config() Config {
	return *n.cfg
}
