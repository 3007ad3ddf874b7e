package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists index snapshots to a single JSON file.
type Store struct {
	Path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Save replaces the snapshot with idx. The document is written to a temp file
// next to the target and renamed over it, so readers never see a partial file.
func (s *Store) Save(idx *Index) error {
	records := normalizeRecords(idx)
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: cannot create index dir %s: %v", ErrPersistence, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: cannot create temp file in %s: %v", ErrPersistence, dir, err)
	}
	tmpPath := tmp.Name()

	fail := func(step string, err error) error {
		_ = tmp.Close()
		_ = removeStale(tmpPath)
		return fmt.Errorf("%w: %s %s: %v", ErrPersistence, step, s.Path, err)
	}
	if _, err := tmp.Write(b); err != nil {
		return fail("cannot write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("cannot sync", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail("cannot chmod", err)
	}
	if err := tmp.Close(); err != nil {
		_ = removeStale(tmpPath)
		return fmt.Errorf("%w: cannot close %s: %v", ErrPersistence, tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		_ = removeStale(tmpPath)
		return fmt.Errorf("%w: cannot replace %s: %v", ErrPersistence, s.Path, err)
	}
	return nil
}

// normalizeRecords guarantees the document is a list and protocols are never null.
func normalizeRecords(idx *Index) []Record {
	if idx == nil || len(idx.Records) == 0 {
		return []Record{}
	}
	out := make([]Record, len(idx.Records))
	for i, r := range idx.Records {
		if r.Protocols == nil {
			r.Protocols = []string{}
		}
		out[i] = r
	}
	return out
}
