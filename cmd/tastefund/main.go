package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tastefun/config"
	"tastefun/core"
	"tastefun/observability/logging"
	telemetry "tastefun/observability/otel"
	"tastefun/rpc"
	"tastefun/rpc/middleware"
	"tastefun/storage"
	"tastefun/storage/journal"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("tastefund", cfg.Environment, logging.Level(cfg.Logging.Level), logging.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tastefund exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("tastefund stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ids, err := cfg.Identities()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "tastefund",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if cfg.Backend != storage.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("prepare data directory: %w", err)
		}
	}
	db, err := storage.Open(cfg.Backend, cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	defer db.Close()

	opts := core.Options{
		Params:   cfg.Protocol,
		Oracle:   ids.Oracle,
		Treasury: ids.Treasury,
		DustSink: ids.DustSink,
		Admin:    ids.Admin,
		Logger:   logger,
		Faucet:   cfg.DevFaucet,
	}

	var events rpc.EventQuerier
	if cfg.Journal.Driver != config.JournalNone {
		if cfg.Journal.Driver == config.JournalSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.Journal.DSN), 0o755); err != nil {
				return fmt.Errorf("prepare journal directory: %w", err)
			}
		}
		j, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer j.Close()
		j.SetLogger(logger)
		opts.Emitter = j
		events = j
		logger.Info("event journal enabled", slog.String("driver", cfg.Journal.Driver))
	}

	node, err := core.NewNode(db, opts)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	if cfg.DevFaucet {
		logger.Warn("development faucet enabled")
	}
	tradingCfg, seeded, err := node.SeedTradingConfig(ctx)
	if err != nil {
		return fmt.Errorf("seed trading config: %w", err)
	}
	if seeded {
		logger.Info("trading config initialised from protocol params",
			slog.Uint64("fee_bps", tradingCfg.FeeBps),
			slog.Uint64("buyback_bps", tradingCfg.BuybackBps),
			slog.Uint64("platform_bps", tradingCfg.PlatformBps),
			slog.Uint64("creator_bps", tradingCfg.CreatorBps))
	}

	server, err := rpc.NewServer(node, events, rpc.ServerConfig{
		Auth: middleware.AuthConfig{
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		},
		RateLimit: middleware.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := server.Serve(ctx, cfg.RPCAddress); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
