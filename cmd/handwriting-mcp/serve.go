package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/server"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdin/stdout (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// History is optional for the MCP tools; a store that cannot be opened
	// only disables it.
	var store storage.Store
	if s, err := openStore(ctx, a.cfg); err != nil {
		a.logger.Warn("History disabled", "error", err)
	} else {
		store = s
		defer store.Close()
		a.logger.Info("History enabled", "store", storeLabel(a.cfg))
	}

	a.logger.Debug("Handwriting MCP server starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.New(server.Options{
		Analyzer:   a.analyzer,
		OCR:        a.engine,
		Thresholds: a.thresholds,
		Store:      store,
	})
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
