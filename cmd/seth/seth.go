package main

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/NethermindEth/seth/node"
	"github.com/NethermindEth/seth/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version string

const greeting = `
           _   _     
  ___  ___| |_| |__  
 / __|/ _ \ __| '_ \ 
 \__ \  __/ |_| | | |
 |___/\___|\__|_| |_|

seth answers Ethereum JSON-RPC account queries. Version: %s

`

const (
	envPrefix = "SETH"

	configF               = "config"
	logLevelF             = "log-level"
	colourF               = "colour"
	httpF                 = "http"
	httpHostF             = "http-host"
	httpPortF             = "http-port"
	wsF                   = "ws"
	wsHostF               = "ws-host"
	wsPortF               = "ws-port"
	ipcPathF              = "ipc-path"
	corsOriginsF          = "cors-origins"
	metricsF              = "metrics"
	metricsHostF          = "metrics-host"
	metricsPortF          = "metrics-port"
	pprofF                = "pprof"
	pprofHostF            = "pprof-host"
	pprofPortF            = "pprof-port"
	ledgerF               = "ledger"
	dbPathF               = "db-path"
	dbCacheSizeF          = "db-cache-size"
	dbMaxHandlesF         = "db-max-handles"
	genesisFileF          = "genesis-file"
	upstreamURLF          = "upstream-url"
	maxConcurrentQueriesF = "max-concurrent-queries"
	maxQueuedQueriesF     = "max-queued-queries"
	ledgerCacheSizeF      = "ledger-cache-size"
	rpcMaxGoroutinesF     = "rpc-max-goroutines"
	rpcRateLimitF         = "rpc-rate-limit"
	rpcRateBurstF         = "rpc-rate-burst"

	defaultConfig               = ""
	defaultColour               = true
	defaultHTTP                 = true
	defaultHost                 = "localhost"
	defaultHTTPPort             = uint16(8545)
	defaultWS                   = false
	defaultWSPort               = uint16(8546)
	defaultIPCPath              = ""
	defaultMetrics              = false
	defaultMetricsPort          = uint16(9090)
	defaultPprof                = false
	defaultPprofPort            = uint16(6062)
	defaultLedger               = node.StoreLedger
	defaultDBCacheSize          = uint(1024)
	defaultDBMaxHandles         = 1024
	defaultGenesisFile          = ""
	defaultUpstreamURL          = ""
	defaultMaxConcurrentQueries = uint(64)
	defaultMaxQueuedQueries     = int32(1024)
	defaultLedgerCacheSize      = 4096
	defaultRPCMaxGoroutines     = 0
	defaultRPCRateLimit         = float64(0)
	defaultRPCRateBurst         = 0

	configFlagUsage   = "The YAML configuration file."
	logLevelFlagUsage = "Options: trace, debug, info, warn, error."
	colourUsage       = "Use `--colour=false` command to disable colourized outputs (ANSI Escape Codes)."
	httpUsage         = "Enables the HTTP RPC server on the default port and interface."
	httpHostUsage     = "The interface on which the HTTP RPC server will listen for requests."
	httpPortUsage     = "The port on which the HTTP server will listen for requests."
	wsUsage           = "Enables the WebSocket RPC server on the default port."
	wsHostUsage       = "The interface on which the WebSocket RPC server will listen for connections."
	wsPortUsage       = "The port on which the WebSocket server will listen for requests."
	ipcPathUsage      = "Serve JSON-RPC over a unix socket at this path. Disabled when empty."
	corsOriginsUsage  = "Comma separated origins allowed to make cross-origin HTTP and WebSocket requests."
	metricsUsage      = "Enables the Prometheus metrics endpoint on the default port."
	metricsHostUsage  = "The interface on which the Prometheus endpoint will listen for requests."
	metricsPortUsage  = "The port on which the Prometheus endpoint will listen for requests."
	pprofUsage        = "Enables the pprof endpoint on the default port."
	pprofHostUsage    = "The interface on which the pprof HTTP server will listen for connections."
	pprofPortUsage    = "The port on which the pprof HTTP server will listen for connections."
	ledgerUsage       = "Where account state is read from. Options: store, upstream."
	dbPathUsage       = "Location of the database files."
	dbCacheSizeUsage  = "Determines the amount of memory (in megabytes) allocated for caching data in the database."
	dbMaxHandlesUsage = "A soft limit on the number of open files that can be used by the DB"
	genesisFileUsage  = "YAML file with the accounts allocated at block zero, applied to an empty store."
	upstreamURLUsage  = "Ethereum JSON-RPC endpoint queries are forwarded to when --ledger=upstream."

	maxConcurrentQueriesUsage = "Maximum number of ledger queries executed concurrently."
	maxQueuedQueriesUsage     = "Maximum number of ledger queries waiting for a slot before new ones are rejected."
	ledgerCacheSizeUsage      = "Number of answers for historical blocks kept in memory. 0 disables the cache."
	rpcMaxGoroutinesUsage     = "Maximum number of goroutines serving one batch request. 0 uses twice GOMAXPROCS."
	rpcRateLimitUsage         = "Maximum HTTP requests per second from one remote host. 0 disables the limit."
	rpcRateBurstUsage         = "Number of HTTP requests from one remote host allowed above the rate limit in a burst."
)

var SethNode node.SethNode

func NewCmd(newNodeFn node.NewSethNodeFn) *cobra.Command {
	var cfgFile string

	sethCmd := &cobra.Command{
		Use:     "seth [flags]",
		Short:   "Ethereum JSON-RPC account query endpoint.",
		Version: Version,
		Args:    cobra.NoArgs,
	}

	defaultDBPath, err := utils.DefaultDataDir()
	if err != nil {
		defaultDBPath = ""
	}

	flags := sethCmd.Flags()
	flags.StringVar(&cfgFile, configF, defaultConfig, configFlagUsage)
	flags.Var(utils.NewLogLevel(utils.INFO), logLevelF, logLevelFlagUsage)
	flags.Bool(colourF, defaultColour, colourUsage)
	flags.Bool(httpF, defaultHTTP, httpUsage)
	flags.String(httpHostF, defaultHost, httpHostUsage)
	flags.Uint16(httpPortF, defaultHTTPPort, httpPortUsage)
	flags.Bool(wsF, defaultWS, wsUsage)
	flags.String(wsHostF, defaultHost, wsHostUsage)
	flags.Uint16(wsPortF, defaultWSPort, wsPortUsage)
	flags.String(ipcPathF, defaultIPCPath, ipcPathUsage)
	flags.StringSlice(corsOriginsF, nil, corsOriginsUsage)
	flags.Bool(metricsF, defaultMetrics, metricsUsage)
	flags.String(metricsHostF, defaultHost, metricsHostUsage)
	flags.Uint16(metricsPortF, defaultMetricsPort, metricsPortUsage)
	flags.Bool(pprofF, defaultPprof, pprofUsage)
	flags.String(pprofHostF, defaultHost, pprofHostUsage)
	flags.Uint16(pprofPortF, defaultPprofPort, pprofPortUsage)
	flags.String(ledgerF, defaultLedger, ledgerUsage)
	flags.String(dbPathF, defaultDBPath, dbPathUsage)
	flags.Uint(dbCacheSizeF, defaultDBCacheSize, dbCacheSizeUsage)
	flags.Int(dbMaxHandlesF, defaultDBMaxHandles, dbMaxHandlesUsage)
	flags.String(genesisFileF, defaultGenesisFile, genesisFileUsage)
	flags.String(upstreamURLF, defaultUpstreamURL, upstreamURLUsage)
	flags.Uint(maxConcurrentQueriesF, defaultMaxConcurrentQueries, maxConcurrentQueriesUsage)
	flags.Int32(maxQueuedQueriesF, defaultMaxQueuedQueries, maxQueuedQueriesUsage)
	flags.Int(ledgerCacheSizeF, defaultLedgerCacheSize, ledgerCacheSizeUsage)
	flags.Int(rpcMaxGoroutinesF, defaultRPCMaxGoroutines, rpcMaxGoroutinesUsage)
	flags.Float64(rpcRateLimitF, defaultRPCRateLimit, rpcRateLimitUsage)
	flags.Int(rpcRateBurstF, defaultRPCRateBurst, rpcRateBurstUsage)

	sethCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigType("yaml")
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return err
			}
		}

		v.SetEnvPrefix(envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), greeting, Version); err != nil {
			return err
		}

		sethCfg := new(node.Config)
		decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		))
		if err := v.Unmarshal(sethCfg, decodeHook); err != nil {
			return err
		}

		var err error
		SethNode, err = newNodeFn(sethCfg, Version)
		if err != nil {
			return err
		}

		SethNode.Run(cmd.Context())
		return nil
	}

	sethCmd.AddCommand(VersionCmd(), DBCmd(defaultDBPath))
	return sethCmd
}

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the seth version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, err := semver.NewVersion(Version)
			if err != nil {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "seth %s (unreleased build)\n", Version)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seth v%s\n", version)
			return err
		},
	}
}
