// Package wordlist loads named lists of strings from disk and caches them.
// Lists shipped with the binary back any name missing from disk.
package wordlist

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when neither disk nor the built-in lists have the wordlist.
var ErrNotFound = errors.New("wordlist not found")

//go:embed lists/*.txt
var builtin embed.FS

// Set is an immutable collection of entries. The zero value is empty.
type Set struct {
	entries []string
}

// NewSet builds a set from entries, dropping blanks and duplicates.
func NewSet(entries ...string) Set {
	unique := make(map[string]struct{}, len(entries))
	cleaned := make([]string, 0, len(entries))
	for _, e := range entries {
		if e == "" {
			continue
		}
		if _, ok := unique[e]; ok {
			continue
		}
		unique[e] = struct{}{}
		cleaned = append(cleaned, e)
	}
	sort.Strings(cleaned)
	return Set{entries: cleaned}
}

// Len returns the number of entries.
func (s Set) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries in sorted order.
func (s Set) Entries() []string {
	return append([]string(nil), s.entries...)
}

// Match reports the first entry contained in text. Matching is case sensitive.
func (s Set) Match(text string) (string, bool) {
	for _, e := range s.entries {
		if strings.Contains(text, e) {
			return e, true
		}
	}
	return "", false
}

// Parse reads one entry per line. Blank lines and lines starting with '#' are ignored.
func Parse(r io.Reader) (Set, error) {
	var entries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := sc.Err(); err != nil {
		return Set{}, fmt.Errorf("read wordlist: %w", err)
	}
	return NewSet(entries...), nil
}

// Loader resolves wordlists by name relative to a directory.
type Loader struct {
	dir   string
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]Set
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]Set)}
}

// Get returns the named wordlist, reading it from disk on first use.
func (l *Loader) Get(name string) (Set, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Set{}, errors.New("wordlist name is empty")
	}

	l.mu.RLock()
	set, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return set, nil
	}

	v, err, _ := l.group.Do(name, func() (any, error) {
		set, err := l.load(name)
		if err != nil {
			return Set{}, err
		}
		l.mu.Lock()
		l.cache[name] = set
		l.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return Set{}, err
	}
	return v.(Set), nil
}

// Put registers an in-memory wordlist under name, replacing any cached copy.
func (l *Loader) Put(name string, set Set) {
	l.mu.Lock()
	l.cache[name] = set
	l.mu.Unlock()
}

func (l *Loader) load(name string) (Set, error) {
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return Set{}, fmt.Errorf("wordlist %q: invalid name", name)
	}
	names := []string{name}
	if filepath.Ext(name) == "" {
		names = append(names, name+".txt")
	}
	for _, n := range names {
		set, err := readSet(os.DirFS(dirOrCwd(l.dir)), filepath.ToSlash(n))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Set{}, fmt.Errorf("wordlist %q: %w", name, err)
		}
		return set, nil
	}
	for _, n := range names {
		set, err := readSet(builtin, path.Join("lists", filepath.ToSlash(n)))
		if err == nil {
			return set, nil
		}
	}
	return Set{}, fmt.Errorf("wordlist %q: %w", name, ErrNotFound)
}

// Builtin returns the names of the lists compiled into the binary.
func Builtin() []string {
	entries, _ := fs.ReadDir(builtin, "lists")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func readSet(fsys fs.FS, name string) (Set, error) {
	fh, err := fsys.Open(name)
	if err != nil {
		return Set{}, err
	}
	defer fh.Close()
	return Parse(fh)
}

func dirOrCwd(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
