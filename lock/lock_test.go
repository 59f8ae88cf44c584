package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "doc.lock")
}

func TestAcquireRelease(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)
	assert.True(t, l.Held())

	require.NoError(t, l.Release())
	assert.False(t, l.Held())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireContended(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLockHeld)

	// After release the lock is free again.
	require.NoError(t, l.Release())
	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestReleaseBrokenLock(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)

	// Someone removed the lock file out from under us.
	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, l.Release(), ErrNotHeld)
}

func TestReleaseStolenLock(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)

	// Someone broke the lock and took it for themselves.
	require.NoError(t, os.Remove(path))
	thief, err := Acquire(path)
	require.NoError(t, err)

	assert.False(t, l.Held())
	assert.ErrorIs(t, l.Release(), ErrNotHeld)

	// The thief's lock is intact.
	assert.True(t, thief.Held())
	require.NoError(t, thief.Release())
}
