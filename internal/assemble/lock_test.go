package assemble

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hberrors "github.com/Aman-CERP/hlsbench/internal/errors"
)

func TestOutputLock_AcquireRelease(t *testing.T) {
	// Given: a lock for an output directory that does not exist yet
	out := filepath.Join(t.TempDir(), "nested", "hls-machsuite")
	lock := NewOutputLock(out)
	assert.Equal(t, out+".lock", lock.Path())

	// When: acquiring
	require.NoError(t, lock.Acquire())

	// Then: the lock file exists beside the directory
	assert.True(t, lock.IsLocked())
	_, err := os.Stat(lock.Path())
	require.NoError(t, err)

	// When: releasing
	require.NoError(t, lock.Release())

	// Then: the file is kept for the next holder
	assert.False(t, lock.IsLocked())
	assert.FileExists(t, lock.Path())
}

func TestOutputLock_ReacquireAfterRelease(t *testing.T) {
	// Given: a released lock whose file is still on disk
	out := filepath.Join(t.TempDir(), "corpus")
	first := NewOutputLock(out)
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())
	before, err := os.Stat(first.Path())
	require.NoError(t, err)

	// When: a second build takes the lock
	second := NewOutputLock(out)
	require.NoError(t, second.Acquire())
	defer func() { _ = second.Release() }()

	// Then: it locks the same file and a third builder is refused
	after, err := os.Stat(second.Path())
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
	err = NewOutputLock(out).Acquire()
	assert.Equal(t, hberrors.ErrCodeOutputLocked, hberrors.GetCode(err))
}

func TestOutputLock_SecondHolderRefused(t *testing.T) {
	out := filepath.Join(t.TempDir(), "corpus")
	first := NewOutputLock(out)
	require.NoError(t, first.Acquire())
	defer func() { _ = first.Release() }()

	err := NewOutputLock(out + "/").Acquire()

	require.Error(t, err)
	assert.Equal(t, hberrors.ErrCodeOutputLocked, hberrors.GetCode(err))
	assert.True(t, hberrors.IsFatal(err))
	assert.Contains(t, err.Error(), out)
}

func TestOutputLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewOutputLock(filepath.Join(t.TempDir(), "out"))

	assert.NoError(t, lock.Release())
}
