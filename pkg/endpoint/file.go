package endpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the endpoint as the full contents of a file.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the file at path. The file itself is not
// touched until Publish or Remove.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("endpoint file path is empty")
	}
	return &FileStore{path: path}, nil
}

// Publish writes addr to a temporary file in the same directory, syncs it
// and renames it into place, so readers never observe a partial record.
// Publish returns only after the rename and a directory sync.
func (s *FileStore) Publish(ctx context.Context, addr string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp endpoint file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(addr); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write endpoint file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync endpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close endpoint file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod endpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename endpoint file: %w", err)
	}

	// Best effort: not every platform can sync a directory handle.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Lookup reads the file and trims surrounding whitespace.
func (s *FileStore) Lookup(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read endpoint file: %w", err)
	}

	addr := strings.TrimSpace(string(data))
	if addr == "" {
		return "", ErrEmpty
	}
	return addr, nil
}

// Remove deletes the file if present.
func (s *FileStore) Remove(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove endpoint file: %w", err)
	}
	return nil
}

// Location returns the file path.
func (s *FileStore) Location() string {
	return s.path
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
