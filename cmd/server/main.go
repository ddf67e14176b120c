package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/FreePeak/track-commands-ws/internal/config"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/payload"
	"github.com/FreePeak/track-commands-ws/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.ErrorWithStack("Critical error in server execution", logging.Fields{"error": err})
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*logging.Logger, error) {
	outputs := []string{"stdout"}
	if path := cfg.LogPath(); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log directory: %w", err)
			}
		}
		outputs = append(outputs, path)
	}

	return logging.New(logging.Config{
		Level:       logging.ParseLevel(cfg.LogLevel),
		Development: cfg.Development,
		OutputPaths: outputs,
	})
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := payload.NewDirPool(cfg.PayloadDir)
	if cfg.WatchPayloads {
		watcher := payload.NewWatcher(cfg.PayloadDir, logger)
		go func() {
			// Errors are logged by the watcher; the server runs without it.
			_ = watcher.Run(ctx)
		}()
	}

	srv := server.NewWebSocketServer(server.SessionConfig{
		Registry: server.NewConnectionRegistry(logger),
		Sink:     server.NewLogSink(logger),
		Pool:     pool,
		Logger:   logger,
	},
		server.WithPath(cfg.Path),
		server.WithReadLimit(cfg.ReadLimit),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Server manually stopped", logging.Fields{"signal": sig.String()})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown did not complete cleanly", logging.Fields{"error": err})
	}
	return <-errCh
}
