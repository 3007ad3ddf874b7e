package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kamusis/pcapcat/internal/extract"
	"github.com/kamusis/pcapcat/internal/observability"
	"github.com/rs/zerolog"
)

// Options wires a Catalog.
type Options struct {
	Dir         string
	IndexFile   string
	Extractor   extract.Extractor
	Workers     int
	LockTimeout time.Duration
	Log         zerolog.Logger
}

// Catalog ties a Builder to a Store and commits at most one rebuild at a time.
type Catalog struct {
	builder     *Builder
	store       *Store
	lockTimeout time.Duration
	log         zerolog.Logger

	mu sync.Mutex
}

// New returns a Catalog for opts.
func New(opts Options) *Catalog {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 30 * time.Second
	}
	return &Catalog{
		builder: &Builder{
			Dir:       opts.Dir,
			Extractor: opts.Extractor,
			Workers:   opts.Workers,
			Log:       opts.Log,
		},
		store:       NewStore(opts.IndexFile),
		lockTimeout: opts.LockTimeout,
		log:         opts.Log,
	}
}

// Dir returns the capture directory.
func (c *Catalog) Dir() string { return c.builder.Dir }

// Store returns the snapshot store.
func (c *Catalog) Store() *Store { return c.store }

// Reindex rescans the capture directory and replaces the snapshot. On any
// error the previous snapshot stays authoritative.
func (c *Catalog) Reindex(ctx context.Context, exclude []string) (*BuildResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	res, err := c.reindexLocked(ctx, exclude)
	if err != nil {
		observability.RecordIndexBuild(false, 0, 0, time.Since(start))
		c.log.Error().Err(err).Msg("indexing failed")
		return nil, err
	}
	observability.RecordIndexBuild(true, res.Indexed, len(res.Failed), time.Since(start))
	c.log.Info().
		Int("indexed_files", res.Indexed).
		Int("failed_files", len(res.Failed)).
		Str("index", c.store.Path).
		Dur("duration", time.Since(start)).
		Msg("indexing successful")
	return res, nil
}

func (c *Catalog) reindexLocked(ctx context.Context, exclude []string) (*BuildResult, error) {
	unlock, err := c.store.Lock(c.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := c.builder.Build(ctx, exclude)
	if err != nil {
		return nil, err
	}
	if err := c.store.Save(res.Index); err != nil {
		return nil, err
	}
	return res, nil
}

// Search loads the current snapshot and filters it by protocol. It fails with
// ErrIndexNotFound before the first successful build.
func (c *Catalog) Search(_ context.Context, protocol string) ([]Record, error) {
	idx, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return Search(idx, protocol), nil
}

// Bootstrap builds the index with no exclusions if no snapshot exists yet.
// It reports whether a build ran.
func (c *Catalog) Bootstrap(ctx context.Context) (bool, error) {
	if c.store.Exists() {
		c.log.Debug().Str("index", c.store.Path).Msg("index present, skipping bootstrap build")
		return false, nil
	}
	c.log.Info().Str("index", c.store.Path).Msg("no index found, building")
	if _, err := c.Reindex(ctx, nil); err != nil {
		return true, fmt.Errorf("bootstrap index: %w", err)
	}
	return true, nil
}

// Resolve maps a download name onto a regular file inside the capture
// directory. Names that would escape the directory are rejected.
func (c *Catalog) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}
	path := filepath.Join(c.builder.Dir, filename)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrFileNotFound, filename)
	}
	return path, nil
}
