package storage

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := s.Save("STU-1/slip.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "STU-1/slip.csv", name)

	f, err := s.Open(name)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))

	require.NoError(t, s.Delete(name))
	require.NoError(t, s.Delete(name))
	_, err = s.Open(name)
	assert.Error(t, err)
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../outside.csv", "a/../../outside.csv", "/etc/passwd", ""} {
		_, err := s.Save(name, []byte("x"))
		assert.ErrorIs(t, err, ErrOutsideBase, name)
	}
}

func TestLocalStorageCleanup(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("old.pdf", []byte("old"))
	require.NoError(t, err)
	_, err = s.Save("new.pdf", []byte("new"))
	require.NoError(t, err)

	now := time.Now()
	oldPath, err := s.Path("old.pdf")
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(oldPath, now.Add(-2*time.Hour), now.Add(-2*time.Hour)))

	deleted, err := s.CleanupOlderThan(now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.pdf"}, deleted)

	f, err := s.Open("new.pdf")
	require.NoError(t, err)
	require.NoError(t, f.Close())
}
