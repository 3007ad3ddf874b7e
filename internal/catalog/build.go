package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kamusis/pcapcat/internal/extract"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// captureSuffixes are matched case-sensitively.
var captureSuffixes = []string{".pcap", ".cap"}

// Builder scans one directory and extracts protocols per capture file.
type Builder struct {
	Dir       string
	Extractor extract.Extractor
	// Workers bounds concurrent extractions. Values below 2 run sequentially.
	Workers int
	Log     zerolog.Logger
}

// IsCaptureFile reports whether name carries a capture suffix.
func IsCaptureFile(name string) bool {
	for _, s := range captureSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Build scans b.Dir and returns a fresh index. Files whose extraction fails
// are logged and left out; only directory errors and cancellation fail the build.
func (b *Builder) Build(ctx context.Context, exclude []string) (*BuildResult, error) {
	if b.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	info, err := os.Stat(b.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, b.Dir)
	}
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryNotFound, b.Dir, err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	b.Log.Info().Str("dir", b.Dir).Strs("exclude", exclude).Msg("scanning capture directory")

	result := &BuildResult{}
	var eligible []string
	for _, e := range entries {
		name := e.Name()
		if _, ok := skip[name]; ok {
			b.Log.Info().Str("file", name).Msg("skipping excluded file")
			result.Excluded = append(result.Excluded, name)
			continue
		}
		if e.IsDir() || !IsCaptureFile(name) {
			continue
		}
		eligible = append(eligible, name)
	}

	slots := make([]*Record, len(eligible))
	if err := b.extractAll(ctx, eligible, slots); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(eligible))
	for i, rec := range slots {
		if rec == nil {
			result.Failed = append(result.Failed, eligible[i])
			continue
		}
		records = append(records, *rec)
	}
	result.Index = &Index{Records: records}
	result.Indexed = len(records)
	return result, nil
}

func (b *Builder) extractAll(ctx context.Context, names []string, slots []*Record) error {
	if b.Workers < 2 {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = b.extractOne(ctx, name)
		}
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = b.extractOne(gctx, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// extractOne returns nil when the file must be left out of the index.
func (b *Builder) extractOne(ctx context.Context, name string) *Record {
	path := filepath.Join(b.Dir, name)
	b.Log.Info().Str("file", path).Msg("processing file")

	protos, err := b.Extractor.Extract(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		b.Log.Warn().Err(err).Str("file", name).Msg("skipping file from index due to processing error")
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		b.Log.Warn().Err(err).Str("file", name).Msg("skipping file from index: cannot stat")
		return nil
	}
	if protos == nil {
		protos = []string{}
	}
	return &Record{
		Filename:  name,
		Path:      path,
		SizeBytes: info.Size(),
		Protocols: protos,
	}
}
