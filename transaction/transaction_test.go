package transaction

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type thing struct{ name string }

func TestFindMissing(t *testing.T) {
	tx := NewReadOnly()
	_, ok := tx.Find("nope")
	assert.False(t, ok)
}

func TestRegisterCleanAndFind(t *testing.T) {
	tx := NewReadOnly()
	obj := &thing{name: "a"}

	require.NoError(t, tx.RegisterClean("a", obj, false))

	got, ok := tx.Find("a")
	require.True(t, ok)
	assert.Same(t, obj, got)
}

func TestOneInstancePerID(t *testing.T) {
	tx := NewWrite()
	first := &thing{name: "a"}

	require.NoError(t, tx.RegisterClean("a", first, false))

	// Same object again is fine.
	require.NoError(t, tx.RegisterClean("a", first, false))

	// A different object under a live id is not.
	err := tx.RegisterClean("a", &thing{name: "other"}, false)
	assert.ErrorIs(t, err, ErrIDInUse)
}

func TestRegisterDirtyReadOnly(t *testing.T) {
	tx := NewReadOnly()
	err := tx.RegisterDirty("a", &thing{name: "a"})
	assert.ErrorIs(t, err, ErrReadOnly)

	_, ok := tx.Find("a")
	assert.False(t, ok)
}

func TestRegisterDirtyWrite(t *testing.T) {
	tx := NewWrite()
	obj := &thing{name: "a"}

	require.NoError(t, tx.RegisterDirty("a", obj))

	got, ok := tx.Find("a")
	require.True(t, ok)
	assert.Same(t, obj, got)
}

func TestForget(t *testing.T) {
	tx := NewWrite()
	require.NoError(t, tx.RegisterClean("a", &thing{name: "a"}, false))

	tx.Forget("a")
	_, ok := tx.Find("a")
	assert.False(t, ok)
}

// TestEviction: plain clean entries past the cache limit are dropped,
// oldest first.
func TestEviction(t *testing.T) {
	tx := NewReadOnly()
	tx.SetCacheSize(2)

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("w%d", i)
		require.NoError(t, tx.RegisterClean(id, &thing{name: id}, false))
	}

	_, ok := tx.Find("w0")
	assert.False(t, ok, "oldest clean entry should have been evicted")
	_, ok = tx.Find("w1")
	assert.True(t, ok)
	_, ok = tx.Find("w2")
	assert.True(t, ok)
}

func TestPreciousSurvivesEviction(t *testing.T) {
	tx := NewReadOnly()
	tx.SetCacheSize(1)

	require.NoError(t, tx.RegisterClean("keep", &thing{name: "keep"}, true))
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("w%d", i)
		require.NoError(t, tx.RegisterClean(id, &thing{name: id}, false))
	}

	_, ok := tx.Find("keep")
	assert.True(t, ok, "precious entry must not be evicted")
}

func TestDirtySurvivesEviction(t *testing.T) {
	tx := NewWrite()
	tx.SetCacheSize(1)

	require.NoError(t, tx.RegisterDirty("pinned", &thing{name: "pinned"}))
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("w%d", i)
		require.NoError(t, tx.RegisterClean(id, &thing{name: id}, false))
	}

	_, ok := tx.Find("pinned")
	assert.True(t, ok, "dirty entry must not be evicted")
}

func TestFinish(t *testing.T) {
	tx := NewWrite()
	require.NoError(t, tx.RegisterDirty("a", &thing{name: "a"}))
	require.NoError(t, tx.RegisterClean("b", &thing{name: "b"}, true))

	tx.Finish()

	_, ok := tx.Find("a")
	assert.False(t, ok)
	_, ok = tx.Find("b")
	assert.False(t, ok)
}
