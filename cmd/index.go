package cmd

import (
	"fmt"

	"github.com/kamusis/pcapcat/internal/observability"
	"github.com/spf13/cobra"
)

var flagIndexExclude []string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rescan the capture directory and replace the index",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringArrayVar(&flagIndexExclude, "exclude", nil, "File name to skip (exact match, repeatable)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := observability.InitLogger(cfg.ServiceName, cfg.LogLevel)
	cat := newCatalog(cfg, logger)

	printInfo("", fmt.Sprintf("scanning %s", cfg.PcapDir))
	res, err := cat.Reindex(contextOrBackground(cmd), flagIndexExclude)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	for _, name := range res.Excluded {
		printSkip(name, "excluded")
	}
	for _, name := range res.Failed {
		printWarn(name, "tshark failed, left out of index")
	}
	printOK("", fmt.Sprintf("indexed %d file(s) into %s", res.Indexed, cfg.IndexFile))
	return nil
}
