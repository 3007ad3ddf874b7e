package cmd

import (
	"fmt"
	"os"

	"github.com/kamusis/pcapcat/internal/catalog"
	"github.com/kamusis/pcapcat/internal/config"
	"github.com/kamusis/pcapcat/internal/extract"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagConfigPath string

var rootCmd = &cobra.Command{
	Use:          "pcapcat",
	Short:        "pcapcat — catalog packet captures by protocol",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `pcapcat indexes the .pcap/.cap files in a directory by the protocols
tshark finds in them, and serves search and download over HTTP.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", config.DefaultConfigPath, "Path to pcapcat.yaml (or .toml)")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	return cfg, nil
}

// newCatalog wires the tshark extractor and the snapshot store from cfg.
func newCatalog(cfg *config.Config, logger zerolog.Logger) *catalog.Catalog {
	return catalog.New(catalog.Options{
		Dir:         cfg.PcapDir,
		IndexFile:   cfg.IndexFile,
		Extractor:   extract.NewTshark(cfg.TsharkPath, cfg.ExtractTimeout),
		Workers:     cfg.Workers,
		LockTimeout: cfg.LockTimeout,
		Log:         logger,
	})
}
