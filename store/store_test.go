package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stores returns one of each backend, all rooted in temporary state.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	bs, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]Store{
		"file":   fs,
		"mem":    NewMemStore(),
		"badger": bs,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := s.Exists("greeting")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = s.GetBytes("greeting")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.PutBytes("greeting", []byte("hello\n")))

			ok, err = s.Exists("greeting")
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := s.GetBytes("greeting")
			require.NoError(t, err)
			assert.Equal(t, []byte("hello\n"), got)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.PutBytes("k", []byte("first")))
			require.NoError(t, s.PutBytes("k", []byte("second")))

			got, err := s.GetBytes("k")
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got)
		})
	}
}

func TestMemStoreReturnsCopies(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.PutBytes("k", []byte("abc")))

	got, err := s.GetBytes("k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := s.GetBytes("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.PutBytes("../escape", []byte("x")))
	assert.Error(t, s.PutBytes("", []byte("x")))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.PutBytes("k", []byte("value")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "k", entries[0].Name())
	assert.Equal(t, "k", filepath.Base(entries[0].Name()))
}
