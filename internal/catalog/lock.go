package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockPollInterval = 200 * time.Millisecond

// LockPath returns the advisory lock file guarding rebuilds of this store.
func (s *Store) LockPath() string {
	return s.Path + ".lock"
}

// Lock obtains the cross-process rebuild lock, polling until timeout.
// The returned func releases it.
func (s *Store) Lock(timeout time.Duration) (func(), error) {
	lockPath := s.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return func() {}, fmt.Errorf("cannot create lock dir: %w", err)
	}
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("%w (lock: %s)", ErrBuildInProgress, lockPath)
		}
		time.Sleep(lockPollInterval)
	}
}
