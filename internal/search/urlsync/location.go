package urlsync

import (
	"strings"
	"sync"
)

// Navigator is the location bar the controller keeps in sync.
type Navigator interface {
	Path() string
	// Replace changes the current entry without adding history.
	Replace(path string)
}

// Location is an in-memory Navigator with a history stack.
type Location struct {
	mu      sync.Mutex
	entries []string
}

func NewLocation(path string) *Location {
	return &Location{entries: []string{path}}
}

func (l *Location) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[len(l.entries)-1]
}

func (l *Location) Replace(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[len(l.entries)-1] = path
}

// Push adds a new history entry.
func (l *Location) Push(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, path)
}

// History returns the entries, oldest first.
func (l *Location) History() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// BuildPath returns base, or base/token when token is set.
func BuildPath(base, token string) string {
	base = CleanBase(base)
	switch {
	case token == "":
		return base
	case base == "/":
		return "/" + token
	}
	return base + "/" + token
}

// ParseToken extracts the token from a path of the form base[/token].
// ok is false when path is not under base.
func ParseToken(base, path string) (token string, ok bool) {
	base = CleanBase(base)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	if path == base {
		return "", true
	}
	prefix := base + "/"
	if base == "/" {
		prefix = "/"
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	rest := path[len(prefix):]
	if strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// CleanBase gives base a leading slash and no trailing slash.
func CleanBase(base string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}
