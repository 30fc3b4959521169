package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/server"
	"github.com/hyperjump/bunkatsu/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the HTTP server and directory watcher",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, resolvedConfigPath, logger, _, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || debugFlag),
	)

	ctx, cancel := signalContext(context.Background())
	defer cancel()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	watchSvc := watcher.NewWatcher(c.Indexer, cfg.Watch.Directories,
		watcher.WithLogger(logger),
		watcher.WithExtensions(cfg.Watch.Extensions),
		watcher.WithRecursive(cfg.Watch.RecursiveOrDefault()),
		watcher.WithDocumentType(cfg.Watch.DocumentType),
		watcher.WithDebounce(cfg.Watch.Debounce()),
	)
	if err := watchSvc.Start(ctx); err != nil {
		return err
	}
	defer watchSvc.Stop()
	go watchSvc.SyncExistingFiles(ctx)

	srv := server.NewServer(c.Indexer, c.Storage, c.Refs, c.Expander, c.Families, cfg, logger,
		server.WithCatalog(c.Catalog),
		server.WithMetrics(c.Metrics),
		server.WithWatch(watchSvc, resolvedConfigPath),
	)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}
