package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/bunkatsu/internal/fileid"
)

var deleteFiles bool

var deleteCmd = &cobra.Command{
	Use:   "delete <locator>...",
	Short: "Remove sources and their chunks",
	Long: `Removes sources from storage, the reference index and the keyword catalog.
With --file the arguments are file paths as ingested by "bunkatsu ingest".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteFiles, "file", "f", false, "arguments are file paths instead of source locators")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, _, logger, _, err := setup()
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

	for _, arg := range args {
		locator := arg
		if deleteFiles {
			locator = fileid.FileLocator(arg)
		}
		if err := c.Indexer.DeleteSource(ctx, locator); err != nil {
			return fmt.Errorf("delete %s: %w", locator, err)
		}
		cmd.Printf("deleted  %s\n", locator)
	}
	return nil
}
