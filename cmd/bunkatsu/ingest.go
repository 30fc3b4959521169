package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/bunkatsu/internal/cli"
	"github.com/hyperjump/bunkatsu/internal/indexer"
)

var (
	ingestType       string
	ingestExtensions []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-directory>...",
	Short: "Chunk and index documents",
	Long: `Extracts, chunks and indexes files. Directories are walked recursively and
filtered by extension. Explicit files are ingested regardless of extension.

The document type selects the strategy: regulatory (section-aware), generic
(structure-preserving) or auto (regulatory when the text has two or more
reference-code headers).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", indexer.TypeAuto, "document type: regulatory, generic or auto")
	ingestCmd.Flags().StringSliceVar(&ingestExtensions, "ext", nil, "extensions to ingest from directories (default: watch.extensions)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, _, logger, format, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signalContext(context.Background())
	defer cancel()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	exts := ingestExtensions
	if len(exts) == 0 {
		exts = cfg.Watch.Extensions
	}
	reports, err := c.Indexer.IngestPaths(ctx, args, ingestType, exts)
	if err != nil && reports == nil {
		return err
	}
	if writeErr := cli.WriteReports(cmd.OutOrStdout(), reports, format); writeErr != nil {
		return writeErr
	}
	if err != nil {
		return fmt.Errorf("ingest interrupted: %w", err)
	}
	if n := countFailed(reports); n > 0 {
		return fmt.Errorf("%d document(s) failed", n)
	}
	return nil
}

func countFailed(reports []*indexer.Report) int {
	n := 0
	for _, r := range reports {
		if r != nil && r.Outcome == indexer.OutcomeFailed {
			n++
		}
	}
	return n
}
