//go:build windows

package catalog

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// removeStale removes a leftover temp snapshot if possible.
//
// On Windows, antivirus/indexers can briefly hold a handle to a freshly
// written file; we retry for a short period and fall back to scheduling
// deletion at next reboot.
func removeStale(path string) error {
	if path == "" {
		return nil
	}

	tryRemove := func() error {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var lastErr error
	for i := 0; i < 10; i++ {
		if lastErr = tryRemove(); lastErr == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return lastErr
	}
	if err := windows.MoveFileEx(p, nil, windows.MOVEFILE_DELAY_UNTIL_REBOOT); err != nil {
		return lastErr
	}
	return nil
}
