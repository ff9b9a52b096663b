package docstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is a Store backed by a directory on disk
type FS struct {
	root     string
	dirMode  fs.FileMode
	fileMode fs.FileMode
}

// NewFS returns a store rooted at dir, creating it if needed
func NewFS(dir string) (*FS, error) {
	if dir == "" {
		return nil, errors.New("vault directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vault: %w", err)
	}
	return &FS{root: abs, dirMode: 0o755, fileMode: 0o644}, nil
}

// Root returns the absolute vault directory
func (s *FS) Root() string {
	return s.root
}

func (s *FS) resolve(p string) (string, string, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", err, p)
	}
	return clean, filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *FS) Exists(p string) (*Entry, error) {
	clean, full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Entry{Path: clean, IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (s *FS) Read(p string) ([]byte, error) {
	_, full, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, err
}

// Write replaces the file atomically (temp file in the same directory, then rename)
func (s *FS) Write(p string, data []byte) error {
	_, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp_write_*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(s.fileMode); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, full)
}

// Create writes a new file and fails with ErrAlreadyExists if one is there.
// O_EXCL makes this the single point where concurrent savers are arbitrated.
func (s *FS) Create(p string, data []byte) error {
	_, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), s.dirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *FS) CreateDirectory(p string) error {
	_, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(full, s.dirMode)
}
