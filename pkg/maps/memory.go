package maps

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryLibrary is an in-memory map index.
// Suitable for tests and for the headless CLI when no index file is set.
type MemoryLibrary struct {
	mu   sync.RWMutex
	maps map[string]Map
}

// NewMemoryLibrary creates a library holding the given maps.
func NewMemoryLibrary(initial ...Map) *MemoryLibrary {
	l := &MemoryLibrary{maps: make(map[string]Map, len(initial))}
	for _, m := range initial {
		l.maps[normalizeHash(m.Hash)] = m
	}
	return l
}

// Lookup returns the map with the given hash.
func (l *MemoryLibrary) Lookup(_ context.Context, hash string) (Map, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.maps[normalizeHash(hash)]
	return m, ok, nil
}

// Add records m, replacing any map with the same hash.
func (l *MemoryLibrary) Add(_ context.Context, m Map) error {
	m.Hash = normalizeHash(m.Hash)
	l.mu.Lock()
	l.maps[m.Hash] = m
	l.mu.Unlock()
	return nil
}

// Remove deletes the map with the given hash.
func (l *MemoryLibrary) Remove(_ context.Context, hash string) error {
	l.mu.Lock()
	delete(l.maps, normalizeHash(hash))
	l.mu.Unlock()
	return nil
}

// List returns every map ordered by hash.
func (l *MemoryLibrary) List(_ context.Context) ([]Map, error) {
	l.mu.RLock()
	out := make([]Map, 0, len(l.maps))
	for _, m := range l.maps {
		out = append(out, m)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Hash < out[j].Hash })
	return out, nil
}

// Len returns the number of maps.
func (l *MemoryLibrary) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.maps)
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}
