package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"litindex/internal/config"
	"litindex/internal/db"
	"litindex/internal/logging"
	"litindex/internal/workspace"
)

var (
	configPath    string
	dbPath        string
	workspaceRoot string
)

var rootCmd = &cobra.Command{
	Use:   "litdup",
	Short: "Find near-duplicate course records in a LitIndex corpus",
	Long: `litdup groups course records by institution, year and field, finds
near-duplicate pairs inside each group with MinHash banding, and scores every
candidate pair from its most salient terms.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: workspace configs/litdup.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&workspaceRoot, "workspace", "", "workspace root (default: ~/LitIndex)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func workspacePaths() (workspace.Paths, error) {
	if workspaceRoot != "" {
		return workspace.PathsAt(workspaceRoot), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return workspace.Paths{}, fmt.Errorf("resolve home: %w", err)
	}
	return workspace.PathsAt(filepath.Join(home, workspace.BaseDirName)), nil
}

// loadConfig resolves --config, then the workspace config, then defaults.
// LITDUP_* variables and --db are applied on top.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	path := configPath
	if path == "" {
		if ws, err := workspacePaths(); err == nil {
			if _, statErr := os.Stat(ws.ConfigFile); statErr == nil {
				path = ws.ConfigFile
			}
		}
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*db.Store, error) {
	return db.OpenStore(cfg.Database.Path,
		db.WithBatchSize(cfg.Sink.BatchSize),
		db.WithWriteMode(cfg.Sink.Mode),
	)
}

func newLogger(cfg config.Config) *logging.Logger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}
