// Package cmd implements the photoface command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photoface/internal/config"
	"github.com/kozaktomas/photoface/internal/database"
	"github.com/kozaktomas/photoface/internal/detector"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "photoface",
	Short: "A local face manager for your photo collection",
	Long: `Photoface scans your photo folders, detects faces using a local
detection service, groups similar faces into persons, and exports
per-person photo albums. Everything stays on your machine.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ~/.photoface/config.yaml)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig resolves the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStore opens the SQLite store from the configured path and overlays
// the settings persisted there onto the config, so values set through
// `photoface settings set` take effect on the next run.
func openStore(cfg *config.Config) (*database.Store, error) {
	store, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	settings, err := store.AllSettings(context.Background())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	cfg.ApplySettings(settings)
	return store, nil
}

// newDetector builds the face detection client from configuration.
func newDetector(cfg *config.Config) detector.Detector {
	return detector.NewClient(cfg.Detector.URL, cfg.Detector.Model, cfg.Detector.EmbDim,
		time.Duration(cfg.Detector.Timeout)*time.Second)
}
