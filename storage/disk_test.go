package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndRemove(t *testing.T) {
	root := t.TempDir()
	s, err := NewDiskStore(filepath.Join(root, "uploads"), 1024)
	require.NoError(t, err)

	rel, n, err := s.Save("../../etc/Photo.JPG", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.True(t, strings.HasSuffix(rel, ".jpg"))
	assert.NotContains(t, rel, "..")

	data, err := os.ReadFile(filepath.Join(root, "uploads", rel))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, s.Remove(rel))
	_, err = os.Stat(filepath.Join(root, "uploads", rel))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, s.Remove(rel), "removing a missing file is not an error")
}

func TestDiskStore_TooLarge(t *testing.T) {
	root := t.TempDir()
	s, err := NewDiskStore(root, 4)
	require.NoError(t, err)

	_, _, err = s.Save("a.txt", "text/plain", strings.NewReader("12345"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file is cleaned up")

	_, n, err := s.Save("b.txt", "text/plain", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestDiskStore_RemoveRejectsEscapes(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)

	for _, p := range []string{"../secret", "/etc/passwd", "nested/file.txt"} {
		assert.Error(t, s.Remove(p), p)
	}
}
