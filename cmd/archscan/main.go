package main

import (
	"fmt"
	"os"
	"path/filepath"

	"archscan/internal/config"
	"archscan/internal/logging"
	"archscan/internal/storage"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "archscan",
		Short:         "Extract architecture facts from source trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the snapshot database (SQLite); overrides storage.path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the config file and applies the persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	return logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

func openStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// projectName is the configured name or the base name of the project root.
func projectName(cfg *config.Config) string {
	if cfg.Project.Name != "" {
		return cfg.Project.Name
	}
	abs, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return filepath.Base(cfg.Project.Root)
	}
	return filepath.Base(abs)
}
