// Package main is the entry point for the swap route finder.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/joho/godotenv"

	"github.com/fd1az/swap-router/business/blockchain"
	blockchainDI "github.com/fd1az/swap-router/business/blockchain/di"
	"github.com/fd1az/swap-router/business/routing"
	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/business/routing/domain"
	routingDI "github.com/fd1az/swap-router/business/routing/di"
	"github.com/fd1az/swap-router/internal/apm"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/asset"
	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/health"
	"github.com/fd1az/swap-router/internal/httpclient"
	"github.com/fd1az/swap-router/internal/logger"
	"github.com/fd1az/swap-router/internal/metrics"
	"github.com/fd1az/swap-router/internal/monolith"
	"github.com/fd1az/swap-router/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// fallbackDecimals is used when a token's decimals() cannot be read.
const fallbackDecimals = 18

type options struct {
	configPath string
	tokenIn    string
	tokenOut   string
	amount     string
	decimals   int
	slippage   int
	watch      bool
	verbose    bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.tokenIn, "in", "", "Input token address (native sentinel for the native asset)")
	flag.StringVar(&opts.tokenOut, "out", "", "Output token address")
	flag.StringVar(&opts.amount, "amount", "", "Input amount in whole units, e.g. 1.5")
	flag.IntVar(&opts.decimals, "decimals", app.AutoDecimals, "Input token decimals (default: read from the token)")
	flag.IntVar(&opts.slippage, "slippage", -1, "Slippage tolerance in basis points (default from config)")
	flag.BoolVar(&opts.watch, "watch", false, "Re-quote on an interval in an interactive view")
	flag.BoolVar(&opts.verbose, "v", false, "Log to stderr")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("routefinder %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	if opts.tokenIn == "" || opts.tokenOut == "" || opts.amount == "" {
		fmt.Fprintln(os.Stderr, "usage: routefinder -in <addr> -out <addr> -amount <decimal> [-decimals n] [-slippage bps] [-config path] [-watch]")
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, ui.NegativeValue.Render("error: "+err.Error()))
		if apperror.IsInput(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The watch view owns the terminal, so logs only go to stderr on request.
	var log logger.LoggerInterface
	switch {
	case opts.watch || !opts.verbose:
		log = logger.New(io.Discard, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	default:
		log = logger.NewConsole(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name)
	}
	log.Info(ctx, "starting swap route finder", "version", version, "environment", cfg.App.Environment)

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // ledger client and token metadata
		&routing.Module{},    // venue adapters and the routing service
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	if cfg.Health.Enabled {
		hs := health.NewServer(cfg.Health.Port, version, log)
		hs.RegisterCheck("ledger", ledgerCheck(cfg.Ethereum))
		hs.Start(ctx)
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			hs.Stop(shutdownCtx)
		}()
	}

	svc := routingDI.GetRoutingService(mono.Services())
	req, pair, err := buildRequest(ctx, svc, opts)
	if err != nil {
		return err
	}

	quote := func(ctx context.Context) (*domain.TokenToTokenResult, error) {
		return svc.FindTokenToTokenRoute(ctx, req)
	}

	if opts.watch {
		chain := blockchainDI.GetBlockchainService(mono.Services())
		err := ui.Run(ctx, ui.WatchConfig{
			Pair:     pair,
			Quote:    quote,
			Interval: cfg.UI.RefreshInterval,
			Status:   func() string { return string(chain.Status().State) },
		})
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("watch view: %w", err)
		}
		return nil
	}

	res, err := quote(ctx)
	if err != nil {
		return err
	}
	fmt.Println(ui.RenderResult(pair, res))
	return nil
}

// buildRequest resolves decimals and symbols for display. The input token's
// decimals fall back to fallbackDecimals when they cannot be read.
func buildRequest(ctx context.Context, svc *app.RoutingService, opts options) (app.RouteRequest, ui.Pair, error) {
	slippage := opts.slippage
	if slippage < 0 {
		slippage = int(svc.DefaultSlippageBps())
	}

	req := app.RouteRequest{
		TokenIn:         opts.tokenIn,
		TokenOut:        opts.tokenOut,
		AmountIn:        opts.amount,
		TokenInDecimals: opts.decimals,
		SlippageBps:     slippage,
	}

	inDecimals := uint8(fallbackDecimals)
	if opts.decimals >= 0 && opts.decimals <= asset.MaxDecimals {
		inDecimals = uint8(opts.decimals)
	} else if d, err := svc.ResolveDecimals(ctx, opts.tokenIn); err == nil {
		inDecimals = d
	} else if apperror.HasCode(err, apperror.CodeInvalidAddress) {
		return req, ui.Pair{}, err
	} else {
		req.TokenInDecimals = fallbackDecimals
	}

	outDecimals := uint8(fallbackDecimals)
	if d, err := svc.ResolveDecimals(ctx, opts.tokenOut); err == nil {
		outDecimals = d
	}

	reg := svc.Registry()
	return req, ui.Pair{
		In:          symbol(reg, opts.tokenIn),
		Out:         symbol(reg, opts.tokenOut),
		InDecimals:  inDecimals,
		OutDecimals: outDecimals,
		Mid:         reg.WrappedNative().Symbol(),
	}, nil
}

func symbol(reg *asset.Registry, addr string) string {
	a := common.HexToAddress(addr)
	if known, ok := reg.Get(a); ok {
		return known.Symbol()
	}
	return asset.ShortAddress(a)
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	traceProvider, err := apm.NewTraceProvider(ctx, log, apm.Settings{
		Provider:    apm.ParseProvider(cfg.Telemetry.TraceProvider),
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{
			Provider: metrics.PrometheusProvider,
		}),
	}
	// A gRPC trace collector also receives metrics.
	if apm.ParseProvider(cfg.Telemetry.TraceProvider) == apm.OTLPGRPCProvider && cfg.Telemetry.OTLPEndpoint != "" {
		metricOpts = append(metricOpts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint,
			apm.ParseHeaders(cfg.Telemetry.OTLPHeaders),
			strings.HasPrefix(cfg.Telemetry.OTLPEndpoint, "http://"),
		)))
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, metricOpts...)
	if err != nil {
		traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(cfg.Telemetry.PrometheusPort, nil)
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "prometheus server stopped", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		promServer.Shutdown(shutdownCtx)
		meterProvider.Shutdown(shutdownCtx)
		traceProvider.Stop()
	}, nil
}

// ledgerCheck probes the node with eth_chainId over a separate client so a
// tripped breaker on the main client does not hide a recovered node.
func ledgerCheck(ec config.EthereumConfig) health.CheckFunc {
	client, clientErr := httpclient.New(
		httpclient.WithProviderName("health"),
		httpclient.WithRequestTimeout(3*time.Second),
	)
	return func(ctx context.Context) (bool, string) {
		if clientErr != nil {
			return false, clientErr.Error()
		}
		raw, err := httpclient.CallRPC(ctx, client, ec.HTTPURL, "eth_chainId")
		if err != nil {
			return false, err.Error()
		}
		var hex string
		if err := json.Unmarshal(raw, &hex); err != nil {
			return false, "malformed eth_chainId response"
		}
		id, err := hexutil.DecodeUint64(hex)
		if err != nil {
			return false, err.Error()
		}
		if ec.ChainID != 0 && id != ec.ChainID {
			return false, fmt.Sprintf("chain id %d, expected %d", id, ec.ChainID)
		}
		return true, fmt.Sprintf("chain %d", id)
	}
}
