// Package tracker remembers which records each source file produced.
//
// The tracker is the authority for withdrawals: when a file changes or
// disappears, the records to delete are exactly the ids recorded here for
// that path, regardless of what the downstream store currently holds.
package tracker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrIDConflict is returned by Set when an id is already owned by another path.
var ErrIDConflict = errors.New("record id already tracked for another path")

// Tracker maps file paths to the ids (and fingerprints) of the records they
// produced. Every id belongs to at most one path.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]map[string]string // path -> id -> fingerprint
	owners  map[string]string            // id -> path

	locksMu sync.Mutex
	locks   map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		entries: make(map[string]map[string]string),
		owners:  make(map[string]string),
		locks:   make(map[string]*pathLock),
	}
}

// Get returns a copy of the entry for path, or nil when untracked.
func (t *Tracker) Get(path string) map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[path]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(entry))
	for id, digest := range entry {
		out[id] = digest
	}
	return out
}

// Has reports whether path has an entry.
func (t *Tracker) Has(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[path]
	return ok
}

// Set replaces the entry for path. An empty entry removes the path.
// No change is made if any id is already owned by a different path.
func (t *Tracker) Set(path string, entry map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range entry {
		if owner, ok := t.owners[id]; ok && owner != path {
			return fmt.Errorf("%w: %s is owned by %s", ErrIDConflict, id, owner)
		}
	}

	t.deleteLocked(path)
	if len(entry) == 0 {
		return nil
	}

	stored := make(map[string]string, len(entry))
	for id, digest := range entry {
		stored[id] = digest
		t.owners[id] = path
	}
	t.entries[path] = stored
	return nil
}

// Delete removes the entry for path.
func (t *Tracker) Delete(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleteLocked(path)
}

func (t *Tracker) deleteLocked(path string) {
	for id := range t.entries[path] {
		delete(t.owners, id)
	}
	delete(t.entries, path)
}

// Owner returns the path that produced id.
func (t *Tracker) Owner(id string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok := t.owners[id]
	return path, ok
}

// Paths returns every tracked path, sorted.
func (t *Tracker) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.entries))
	for path := range t.entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// IDs returns the set of every tracked id.
func (t *Tracker) IDs() map[string]struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make(map[string]struct{}, len(t.owners))
	for id := range t.owners {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of tracked records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.owners)
}

// Lock acquires the exclusive lock for path and returns its release func.
// Passes over the same path are serialized; different paths never block
// each other.
func (t *Tracker) Lock(path string) (unlock func()) {
	t.locksMu.Lock()
	l, ok := t.locks[path]
	if !ok {
		l = &pathLock{}
		t.locks[path] = l
	}
	l.refs++
	t.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			t.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(t.locks, path)
			}
			t.locksMu.Unlock()
		})
	}
}
