package history

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage persists the snapshot as a single file, replaced
// atomically via a temp file and rename.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed storage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Read returns the snapshot file contents or ErrNotFound.
func (f *FileStorage) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Write replaces the snapshot file. A crash mid-write leaves either the
// old snapshot or the new one, never a torn file.
func (f *FileStorage) Write(data []byte) error {
	dir := filepath.Dir(f.path)

	tmp, err := os.CreateTemp(dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
