package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kamusis/pcapcat/internal/extract"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture-file>",
	Short: "Print the protocols tshark finds in a single capture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

// analysis is the JSON document printed by `pcapcat analyze`.
type analysis struct {
	File      string   `json:"file"`
	Protocols []string `json:"protocols"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found at '%s'", path)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ex := extract.NewTshark(cfg.TsharkPath, cfg.ExtractTimeout)
	return analyzeFile(contextOrBackground(cmd), ex, path, os.Stdout)
}

func analyzeFile(ctx context.Context, ex extract.Extractor, path string, out io.Writer) error {
	protos, err := ex.Extract(ctx, path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(analysis{File: filepath.Base(path), Protocols: protos})
}
