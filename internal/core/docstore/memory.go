package docstore

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Store, used for dry runs and tests
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// FailWith, when set, is returned by Write and Create
	FailWith error
	// BeforeCreate runs before Create checks for an existing entry, outside the lock
	BeforeCreate func(path string)
}

func NewMemory() *Memory {
	return &Memory{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (m *Memory) Exists(p string) (*Entry, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, ok := m.files[clean]; ok {
		return &Entry{Path: clean, Size: int64(len(data))}, nil
	}
	if m.dirs[clean] {
		return &Entry{Path: clean, IsDir: true}, nil
	}
	return nil, nil
}

func (m *Memory) Read(p string) ([]byte, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[clean]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(p string, data []byte) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mkdirs(path.Dir(clean))
	m.files[clean] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Create(p string, data []byte) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate(clean)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.files[clean]; ok || m.dirs[clean] {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	m.mkdirs(path.Dir(clean))
	m.files[clean] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) CreateDirectory(p string) error {
	clean, err := CleanPath(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirs(clean)
	return nil
}

// Files lists every file path in sorted order
func (m *Memory) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// mkdirs records dir and its parents; caller holds mu
func (m *Memory) mkdirs(dir string) {
	for dir != "." && dir != "/" && dir != "" {
		m.dirs[dir] = true
		i := strings.LastIndex(dir, "/")
		if i < 0 {
			return
		}
		dir = dir[:i]
	}
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*FS)(nil)
)
