package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/hyperjump/bunkatsu/internal/cli"
	"github.com/hyperjump/bunkatsu/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage, reference index and catalog counts",
	Long: `Shows document and chunk counts, the reference index size and the active chunking
settings. By default the running server is queried; use --server "" to open the
storage directly.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if serverURL != "" {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		var st server.StatusResponse
		if err := callJSON(http.MethodGet, apiURL("/status"), nil, &st); err != nil {
			return fmt.Errorf("status failed (is the server running? use --server \"\" to read storage directly): %w", err)
		}
		return cli.WriteStatus(cmd.OutOrStdout(), &st, format)
	}
	cfg, _, logger, format, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	srv := server.NewServer(c.Indexer, c.Storage, c.Refs, c.Expander, c.Families, cfg, logger,
		server.WithCatalog(c.Catalog))
	st, err := srv.Status(ctx)
	if err != nil {
		return err
	}
	return cli.WriteStatus(cmd.OutOrStdout(), st, format)
}
