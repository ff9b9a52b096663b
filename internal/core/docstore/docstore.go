// Package docstore is the hierarchical document store notes and state are kept in.
// Paths are vault-relative and slash-separated.
package docstore

import (
	"errors"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid document path")
)

// Entry describes an existing file or directory
type Entry struct {
	Path    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Store is the contract the allocator and the pair state store depend on
type Store interface {
	// Exists returns nil, nil when nothing is at path
	Exists(path string) (*Entry, error)
	// Read fails with ErrNotFound when path is absent
	Read(path string) ([]byte, error)
	// Write creates or overwrites path
	Write(path string, data []byte) error
	// Create fails with ErrAlreadyExists when path is taken
	Create(path string, data []byte) error
	CreateDirectory(path string) error
}

// CleanPath normalizes a vault-relative path and rejects paths that escape the root
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
