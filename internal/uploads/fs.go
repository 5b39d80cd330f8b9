// Package uploads stores user-uploaded assets (images and attachments
// referenced from blocks) on the local file system.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store manages the uploads directory.
type Store struct {
	root string // absolute path to the uploads directory
}

// Asset is one stored upload.
type Asset struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewStore creates a store rooted at dir, creating it when absent.
func NewStore(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("uploads: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute uploads directory.
func (s *Store) Root() string { return s.root }

// SafePath validates that name is a plain filename (no path separators,
// no traversal) and returns its absolute path under the uploads dir.
func (s *Store) SafePath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("uploads: filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("uploads: invalid filename: %s", name)
	}
	abs := filepath.Join(s.root, cleaned)
	// Double-check the resolved path is under the uploads dir.
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("uploads: path escapes uploads directory")
	}
	return abs, nil
}

// Save atomically writes an upload: tmp file, fsync, rename. Returns
// the stored size.
func (s *Store) Save(name string, r io.Reader) (int64, error) {
	abs, err := s.SafePath(name)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.root, ".ansuz-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("uploads: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("uploads: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("uploads: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("uploads: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return 0, fmt.Errorf("uploads: rename: %w", err)
	}
	success = true
	return written, nil
}

// Delete removes a stored upload.
func (s *Store) Delete(name string) error {
	abs, err := s.SafePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("uploads: delete %s: %w", name, err)
	}
	return nil
}

// List returns metadata for every stored upload, skipping temp files.
func (s *Store) List() ([]Asset, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("uploads: list: %w", err)
	}
	var out []Asset
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Asset{
			Name:      e.Name(),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}
