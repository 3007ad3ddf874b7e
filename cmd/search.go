package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kamusis/pcapcat/internal/catalog"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var flagSearchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <protocol>",
	Short: "List indexed captures containing a protocol (case-insensitive)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&flagSearchJSON, "json", false, "Print matching records as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat := newCatalog(cfg, zerolog.Nop())

	records, err := cat.Search(contextOrBackground(cmd), args[0])
	if err != nil {
		if errors.Is(err, catalog.ErrIndexNotFound) {
			return fmt.Errorf("%w\nRun 'pcapcat index' first.", err)
		}
		return err
	}

	if flagSearchJSON {
		return writeRecordsJSON(os.Stdout, records)
	}
	printSearchResults(os.Stdout, args[0], records)
	return nil
}

func writeRecordsJSON(w io.Writer, records []catalog.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func printSearchResults(out io.Writer, protocol string, records []catalog.Record) {
	fmt.Fprintf(out, "\npcapcat search %q\n\n", protocol)
	fmt.Fprintf(out, "Results (%d found):\n", len(records))
	if len(records) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range records {
		fmt.Fprintf(w, "  %d.\t%s\t%s\n", i+1, r.Filename, humanBytes(r.SizeBytes))
		fmt.Fprintf(w, "  - %s\n", strings.Join(r.Protocols, ", "))
	}
	_ = w.Flush()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
