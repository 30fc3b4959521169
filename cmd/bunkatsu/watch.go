package main

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	watchServerURL string
	watchNoSync    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage directories watched by the running server",
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := callJSON(http.MethodGet, watchURL(""), nil, &out); err != nil {
			return fmt.Errorf("watch list failed: %w", err)
		}
		if len(out.Directories) == 0 {
			cmd.Println("no watched directories")
			return nil
		}
		for _, d := range out.Directories {
			cmd.Println(d)
		}
		return nil
	},
}

var watchAddCmd = &cobra.Command{
	Use:   "add <directory>",
	Short: "Watch a directory and ingest its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		sync := !watchNoSync
		body := map[string]interface{}{"path": abs, "sync": sync}
		if err := callJSON(http.MethodPost, watchURL(""), body, nil); err != nil {
			return fmt.Errorf("watch add failed: %w", err)
		}
		cmd.Printf("watching %s\n", abs)
		return nil
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:     "remove <directory>",
	Aliases: []string{"rm"},
	Short:   "Stop watching a directory",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := callJSON(http.MethodDelete, watchURL("?path="+url.QueryEscape(abs)), nil, nil); err != nil {
			return fmt.Errorf("watch remove failed: %w", err)
		}
		cmd.Printf("stopped watching %s\n", abs)
		return nil
	},
}

func init() {
	watchCmd.PersistentFlags().StringVar(&watchServerURL, "server", defaultServerURL, "server URL")
	watchAddCmd.Flags().BoolVar(&watchNoSync, "no-sync", false, "do not ingest files already in the directory")
	watchCmd.AddCommand(watchListCmd, watchAddCmd, watchRemoveCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchURL(suffix string) string {
	return watchServerURL + "/api/v1/watch/directories" + suffix
}
