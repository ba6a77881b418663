// Package main is the entry point for the unified multi-exchange
// market-data WebSocket client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fd1az/uxfeed/internal/apm"
	"github.com/fd1az/uxfeed/internal/config"
	_ "github.com/fd1az/uxfeed/internal/exchange/binance"
	_ "github.com/fd1az/uxfeed/internal/exchange/bitmex"
	_ "github.com/fd1az/uxfeed/internal/exchange/deribit"
	_ "github.com/fd1az/uxfeed/internal/exchange/huobi"
	_ "github.com/fd1az/uxfeed/internal/exchange/okex"
	"github.com/fd1az/uxfeed/internal/di"
	"github.com/fd1az/uxfeed/internal/feed"
	"github.com/fd1az/uxfeed/internal/health"
	"github.com/fd1az/uxfeed/internal/logger"
	"github.com/fd1az/uxfeed/internal/market"
	"github.com/fd1az/uxfeed/internal/metrics"
	"github.com/fd1az/uxfeed/internal/monolith"
	"github.com/fd1az/uxfeed/internal/pipeline"
	"github.com/fd1az/uxfeed/internal/wshandler"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	exchangeID := flag.String("exchange", "binance", "Exchange id (binance, okex, bitmex, huobipro, huobidm, deribit)")
	marketType := flag.String("market", market.MarketSpot, "Market type (spot, swap, futures)")
	datatype := flag.String("datatype", "orderbook", "Topic datatype (orderbook, trade, ticker, ohlcv)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wsxclient %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, *configPath, *exchangeID, *marketType, *datatype); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, exchangeID, marketType, datatype string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.App.Name, logger.LevelInfo)
	log.Info(ctx, "starting wsxclient", "version", version, "exchange", exchangeID)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		defer healthServer.Stop(ctx)
	}

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&feed.Module{ExchangeID: exchangeID, MarketType: marketType, Datatype: datatype},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	handler := di.GetToken[*wshandler.Handler](mono.Services(), feed.TokenHandler)

	// Every delivered message passes through a small processing
	// pipeline before it's logged: drop nils the handler's hooks use as
	// a no-op sentinel, then tag the message with its source exchange.
	pl := pipeline.New(
		func(v any) (any, bool) {
			if v == nil {
				return nil, false
			}
			return v, true
		},
		func(v any) (any, bool) {
			return map[string]any{"exchange": exchangeID, "payload": v}, true
		},
	)
	collector := func(msg any) {
		tagged, ok := pl.Run(msg)
		if !ok {
			return
		}
		log.Debug(ctx, "message", "data", tagged)
	}

	log.Info(ctx, "connecting", "exchange", exchangeID)
	if err := handler.Run(ctx, collector); err != nil {
		return fmt.Errorf("ws handler stopped: %w", err)
	}
	return nil
}
