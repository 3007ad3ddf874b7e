package cmd

import (
	"fmt"
	"os"

	"github.com/kamusis/pcapcat/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config and create the capture directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	cfgPath := flagConfigPath

	// ── 1. Write pcapcat.yaml if missing ──────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Save(cfgPath, config.DefaultConfig()); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("config already exists: %s", cfgPath))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// ── 2. Create the capture directory ───────────────────────────────────────
	if err := os.MkdirAll(cfg.PcapDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", cfg.PcapDir, err)
	}
	printOK("", fmt.Sprintf("capture directory ready: %s", cfg.PcapDir))
	printInfo("", "drop .pcap/.cap files there, then run 'pcapcat index' or 'pcapcat serve'")
	return nil
}
