package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kamusis/pcapcat/internal/catalog"
	"github.com/kamusis/pcapcat/internal/tools"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that tshark is installed, the config parses, the capture directory
exists and the index snapshot is readable.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("pcapcat doctor")
	fmt.Println()

	// ── Check 1: config parses ────────────────────────────────────────────────
	fmt.Println("[ config ]")
	cfg, loadErr := loadConfig()
	if loadErr != nil {
		failD("%v", loadErr)
		fmt.Println()
		return errors.New("environment checks failed")
	}
	if _, err := os.Stat(flagConfigPath); os.IsNotExist(err) {
		printWarn("", fmt.Sprintf("%s not found, using defaults (run 'pcapcat init' to write one)", flagConfigPath))
	} else {
		printOK("", fmt.Sprintf("valid: %s", flagConfigPath))
	}
	fmt.Println()

	// ── Check 2: tshark installed ─────────────────────────────────────────────
	fmt.Println("[ tshark ]")
	if version, err := tsharkVersion(contextOrBackground(cmd), tools.ExecRunner{}, cfg.TsharkPath); err != nil {
		failD("%v (install Wireshark/tshark or set tshark_path)", err)
	} else {
		printOK("", version)
	}
	fmt.Println()

	// ── Check 3: capture directory ────────────────────────────────────────────
	fmt.Println("[ capture directory ]")
	if n, err := countCaptures(cfg.PcapDir); err != nil {
		failD("%v", err)
	} else if n == 0 {
		printWarn("", fmt.Sprintf("%s has no .pcap/.cap files", cfg.PcapDir))
	} else {
		printOK("", fmt.Sprintf("%s: %d capture file(s)", cfg.PcapDir, n))
	}
	fmt.Println()

	// ── Check 4: index snapshot ───────────────────────────────────────────────
	fmt.Println("[ index ]")
	store := catalog.NewStore(cfg.IndexFile)
	idx, err := store.Load()
	switch {
	case errors.Is(err, catalog.ErrIndexNotFound):
		printWarn("", fmt.Sprintf("%s not built yet (run 'pcapcat index')", cfg.IndexFile))
	case err != nil:
		failD("%v", err)
	default:
		printOK("", fmt.Sprintf("%s: %d record(s)", cfg.IndexFile, idx.Len()))
	}
	if _, err := os.Stat(store.LockPath()); err == nil {
		printInfo("", fmt.Sprintf("lock file present: %s", store.LockPath()))
	}
	fmt.Println()

	if !allOK {
		return errors.New("environment checks failed")
	}
	fmt.Println("  All checks passed.")
	return nil
}

// tsharkVersion returns the first line of `tshark --version`.
func tsharkVersion(ctx context.Context, runner tools.CommandRunner, binary string) (string, error) {
	stdout, stderr, code, err := runner.Run(ctx, binary, "--version")
	if code == 127 {
		return "", fmt.Errorf("%s not runnable: %w", binary, err)
	}
	if err != nil || code != 0 {
		return "", fmt.Errorf("%s --version exited %d: %s", binary, code, strings.TrimSpace(string(stderr)))
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(stdout)), "\n")
	return strings.TrimSpace(line), nil
}

func countCaptures(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", catalog.ErrDirectoryNotFound, dir)
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && catalog.IsCaptureFile(e.Name()) {
			n++
		}
	}
	return n, nil
}
