package maps

import (
	"context"
	"errors"
	"sync"
)

// Map is a locally available beatmap.
type Map struct {
	// Hash is the lowercase hex MD5 of the map file.
	Hash string

	// Path is the file location on disk.
	Path string

	// Mode is the play mode the map is written for (e.g., "std").
	Mode string

	// Title is a display name.
	Title string

	// DurationMS is the playable length in milliseconds (0 = unknown).
	DurationMS float64
}

// Source tells a downloader where a missing map can be fetched from.
type Source struct {
	Hash   string
	Mode   string
	Source string
	Hint   string
}

// Library resolves maps by hash. Implementations must be safe for
// concurrent use.
type Library interface {
	// Lookup returns the map with the given hash. A missing map is reported
	// as (Map{}, false, nil); err is reserved for backend failures.
	Lookup(ctx context.Context, hash string) (Map, bool, error)
}

// Index is a Library that can also record maps.
type Index interface {
	Library
	Add(ctx context.Context, m Map) error
}

// Downloader fetches a missing map into a library.
type Downloader interface {
	Download(ctx context.Context, src Source) (Map, error)
}

// Errors.
var (
	ErrLibraryClosed    = errors.New("maps: library is closed")
	ErrNoDownloader     = errors.New("maps: no downloader for mode")
	ErrHashMismatch     = errors.New("maps: downloaded file does not match hash")
	ErrDownloadTooLarge = errors.New("maps: download exceeds size limit")
)

// Registry holds one Downloader per play mode. The zero value is ready to
// use.
type Registry struct {
	mu          sync.RWMutex
	downloaders map[string]Downloader
	fallback    Downloader
}

// Register installs d for mode. An empty mode registers the fallback used
// for modes without their own downloader.
func (r *Registry) Register(mode string, d Downloader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == "" {
		r.fallback = d
		return
	}
	if r.downloaders == nil {
		r.downloaders = make(map[string]Downloader)
	}
	r.downloaders[mode] = d
}

// For returns the downloader for mode.
func (r *Registry) For(mode string) (Downloader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.downloaders[mode]; ok {
		return d, true
	}
	return r.fallback, r.fallback != nil
}

// Download routes src to the downloader registered for its mode.
func (r *Registry) Download(ctx context.Context, src Source) (Map, error) {
	d, ok := r.For(src.Mode)
	if !ok {
		return Map{}, ErrNoDownloader
	}
	return d.Download(ctx, src)
}
