package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Load reads the current snapshot. It returns ErrIndexNotFound when no
// snapshot has been saved yet.
func (s *Store) Load() (*Index, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.Path)
		}
		return nil, fmt.Errorf("cannot read index %s: %w", s.Path, err)
	}
	var records []Record
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("invalid index JSON %s: %w", s.Path, err)
	}
	for i := range records {
		if records[i].Protocols == nil {
			records[i].Protocols = []string{}
		}
	}
	if records == nil {
		records = []Record{}
	}
	return &Index{Records: records}, nil
}

// Exists reports whether a snapshot file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Path)
	return err == nil && info.Mode().IsRegular()
}
