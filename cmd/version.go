package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/kamusis/pcapcat/internal/tools"
	"github.com/spf13/cobra"
)

// Set through -ldflags "-X github.com/kamusis/pcapcat/cmd.version=...".
// version is also reported by GET /health.
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show pcapcat build information and the tshark it will run",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	tshark := "n/a"
	if cfg, err := loadConfig(); err == nil {
		if v, err := tsharkVersion(contextOrBackground(cmd), tools.ExecRunner{}, cfg.TsharkPath); err == nil {
			tshark = v
		} else {
			tshark = fmt.Sprintf("unavailable (%s)", cfg.TsharkPath)
		}
	}
	writeVersion(os.Stdout, tshark)
	return nil
}

func writeVersion(w io.Writer, tshark string) {
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", emptyAsNA(commit))
	fmt.Fprintf(w, "Build Date: %s\n", emptyAsNA(buildDate))
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "TShark:     %s\n", tshark)
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
