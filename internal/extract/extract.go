// Package extract reduces the per-frame protocol stacks reported by tshark
// into the protocol set of a capture file.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kamusis/pcapcat/internal/tools"
)

// ErrExtraction is matched by every *ExtractionError.
var ErrExtraction = errors.New("protocol extraction failed")

// ExtractionError reports a failed dissector run for one file.
type ExtractionError struct {
	Path     string
	ExitCode int32
	Stderr   string
	Err      error
}

func (e *ExtractionError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("analyze %s: exit %d: %s", e.Path, e.ExitCode, msg)
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor returns the sorted, deduplicated protocols seen in one capture file.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]string, error)
}

// Tshark runs `tshark -r FILE -T fields -e frame.protocols`.
type Tshark struct {
	Path    string
	Runner  tools.CommandRunner
	Timeout time.Duration
}

var _ Extractor = (*Tshark)(nil)

// NewTshark returns a Tshark extractor using the host exec runner.
// An empty binary path falls back to "tshark" on PATH.
func NewTshark(binary string, timeout time.Duration) *Tshark {
	if binary == "" {
		binary = "tshark"
	}
	return &Tshark{Path: binary, Runner: tools.ExecRunner{}, Timeout: timeout}
}

// Args returns the dissector arguments for file.
func Args(file string) []string {
	return []string{"-r", file, "-T", "fields", "-e", "frame.protocols"}
}

func (t *Tshark) Extract(ctx context.Context, path string) ([]string, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	runner := t.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}

	stdout, stderr, code, err := runner.Run(ctx, t.Path, Args(path)...)
	if err != nil || code != 0 {
		if code == 0 {
			code = 1
		}
		return nil, &ExtractionError{Path: path, ExitCode: code, Stderr: string(stderr), Err: err}
	}
	return ParseProtocols(stdout), nil
}

// ParseProtocols splits every line on ':' and returns the distinct non-empty
// tokens in ascending order. Empty input yields an empty, non-nil slice.
func ParseProtocols(out []byte) []string {
	seen := map[string]struct{}{}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, proto := range strings.Split(line, ":") {
			if proto == "" {
				continue
			}
			seen[proto] = struct{}{}
		}
	}

	protos := make([]string, 0, len(seen))
	for p := range seen {
		protos = append(protos, p)
	}
	sort.Strings(protos)
	return protos
}
