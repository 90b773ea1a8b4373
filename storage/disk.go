// Package storage keeps uploaded attachment files on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DiskStore writes files under a root directory using random names, so client
// supplied file names never reach the filesystem
type DiskStore struct {
	root     string
	maxBytes int64
}

// ErrTooLarge is returned when an upload exceeds the configured size limit
var ErrTooLarge = errors.New("file exceeds size limit")

// NewDiskStore creates the root directory if needed
func NewDiskStore(root string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &DiskStore{root: root, maxBytes: maxBytes}, nil
}

// Save copies r to a new file and returns its path relative to the root and
// the number of bytes written
func (s *DiskStore) Save(name, mimeType string, r io.Reader) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 10 {
		ext = ""
	}
	rel := uuid.New().String() + ext
	full := filepath.Join(s.root, rel)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	return rel, n, nil
}

// Remove deletes a stored file. A file that is already gone is not an error.
func (s *DiskStore) Remove(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

func (s *DiskStore) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") || strings.ContainsRune(clean, filepath.Separator) {
		return "", fmt.Errorf("invalid storage path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}
