//go:build !windows

package catalog

import (
	"errors"
	"os"
)

// removeStale removes a leftover temp snapshot if possible.
func removeStale(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
