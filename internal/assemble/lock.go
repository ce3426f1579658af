package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

// OutputLock serializes builds that target the same output directory
// across processes. The lock file sits beside the directory as
// <dir>.lock so recreating the directory does not drop it.
type OutputLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewOutputLock creates the lock for outputDir.
func NewOutputLock(outputDir string) *OutputLock {
	lockPath := filepath.Clean(outputDir) + ".lock"
	return &OutputLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking. A lock held by another build
// is ERR_207_OUTPUT_LOCKED.
func (l *OutputLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return hberrors.Newf(hberrors.ErrCodeOutputLocked,
			"another build is writing to %s", strings.TrimSuffix(l.path, ".lock")).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other build to finish or choose a different output directory")
	}

	l.locked = true
	return nil
}

// Release unlocks the lock file. The file itself stays in place so that
// every holder locks the same inode. Safe to call when not held.
func (l *OutputLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *OutputLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *OutputLock) IsLocked() bool {
	return l.locked
}
