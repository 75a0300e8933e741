package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/feltkit/holdem/internal/history"
	"github.com/feltkit/holdem/internal/server"
	"github.com/feltkit/holdem/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"holdem-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		kctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		kctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		kctx.Exit(1)
	}
	kctx.Exit(0)
}

func run(cfg *server.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := buildStore(cfg, logger)
	if err != nil {
		return err
	}

	var opts []server.RegistryOption
	if cfg.Archive.Enabled {
		archive, err := history.Open(cfg.Archive.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect archive: %w", err)
		}
		defer archive.Close()
		if err := archive.Migrate(ctx); err != nil {
			return err
		}
		opts = append(opts, server.WithArchive(archive))
		logger.Info("Hand history archive enabled")
	}

	registry := server.NewRegistry(snapshots, quartz.NewReal(), logger, opts...)
	if err := registry.Restore(ctx); err != nil {
		return fmt.Errorf("restore games: %w", err)
	}

	srv := server.NewServer(cfg, registry, logger)
	logger.Info("Starting holdem server", "addr", cfg.ListenAddress(), "storage", cfg.Storage.Backend)
	return srv.Run(ctx)
}

func buildStore(cfg *server.Config, logger *log.Logger) (store.SnapshotStore, error) {
	switch cfg.Storage.Backend {
	case "file":
		logger.Info("Using file snapshot store", "dir", cfg.Storage.Dir)
		return store.NewFileStore(cfg.Storage.Dir)
	case "redis":
		logger.Info("Using redis snapshot store", "addr", cfg.Storage.RedisAddr)
		return store.NewRedisStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
