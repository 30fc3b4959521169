package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/bunkatsu/internal/cli"
	"github.com/hyperjump/bunkatsu/internal/config"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

const (
	defaultConfigPath = "/usr/local/etc/bunkatsu/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

var (
	configPath   string
	debugFlag    bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "bunkatsu",
	Short: "Adaptive chunking and cross-reference indexing",
	Long: `bunkatsu splits regulatory and generic documents into density-sized chunks,
annotates them with keywords and cross-references, and expands retrieved chunk
sets with neighboring, referenced and referencing chunks.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A missing default config yields the built-in defaults.
// Returns the config and the path that was actually loaded (empty when none was).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config, creates the logger and parses --output.
func setup() (*config.Config, string, *zap.Logger, cli.OutputFormat, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, "", nil, "", err
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		return nil, "", nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, format, nil
}
