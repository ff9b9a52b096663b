package allocator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neilberkman/threadkeep/internal/core/docstore"
	"github.com/neilberkman/threadkeep/internal/core/logger"
)

const (
	// DefaultMaxAttempts bounds the collision loop
	DefaultMaxAttempts = 1000
	noteExtension      = ".md"

	// MaxBaseBytes caps the title part of a file name, leaving room for
	// " (n).md" under the usual 255-byte name limit
	MaxBaseBytes = 200
)

// ErrTooManyCollisions is returned when every numbered candidate up to the bound is taken
var ErrTooManyCollisions = errors.New("too many name collisions")

var forbidden = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-", "?", "-",
	`"`, "-", "<", "-", ">", "-", "|", "-",
)

// Allocator picks a free note path in the document store
type Allocator struct {
	docs        docstore.Store
	maxAttempts int
	log         *logger.Logger
}

// New returns an allocator; maxAttempts <= 0 means DefaultMaxAttempts
func New(docs docstore.Store, maxAttempts int, log *logger.Logger) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Allocator{docs: docs, maxAttempts: maxAttempts, log: log}
}

// Sanitize replaces each character that is not allowed in a file name with '-'
func Sanitize(title string) string {
	return forbidden.Replace(title)
}

// truncateBase cuts s to at most MaxBaseBytes without splitting a rune
func truncateBase(s string) string {
	if len(s) <= MaxBaseBytes {
		return s
	}
	cut := MaxBaseBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Allocate returns the first free path for title inside dir: "title.md",
// then "title (1).md", "title (2).md" and so on. Paths in exclude are treated
// as taken. The directory is created when missing. Only a name is reserved;
// the caller still has to create the document. Long titles are cut to
// MaxBaseBytes.
func (a *Allocator) Allocate(title, dir string, exclude ...string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir != "" {
		cleaned, err := docstore.CleanPath(dir)
		if err != nil {
			return "", fmt.Errorf("folder %q: %w", dir, err)
		}
		dir = cleaned
		entry, err := a.docs.Exists(dir)
		if err != nil {
			return "", fmt.Errorf("check folder %q: %w", dir, err)
		}
		if entry == nil {
			if err := a.docs.CreateDirectory(dir); err != nil {
				return "", fmt.Errorf("create folder %q: %w", dir, err)
			}
			a.log.Debug("created folder", "folder", dir)
		}
	}

	original := truncateBase(Sanitize(title)) + noteExtension
	if dir != "" {
		original = dir + "/" + original
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		skip[p] = struct{}{}
	}

	candidate := original
	for n := 1; ; n++ {
		taken, err := a.taken(candidate, skip)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if n > a.maxAttempts {
			return "", fmt.Errorf("%w: %q after %d attempts", ErrTooManyCollisions, original, a.maxAttempts)
		}
		candidate = Candidate(original, n)
	}
}

func (a *Allocator) taken(p string, skip map[string]struct{}) (bool, error) {
	if _, ok := skip[p]; ok {
		return true, nil
	}
	entry, err := a.docs.Exists(p)
	if err != nil {
		return false, fmt.Errorf("check %q: %w", p, err)
	}
	return entry != nil, nil
}
