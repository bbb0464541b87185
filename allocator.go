package memtier

import (
	"mem_tier/central"
	"mem_tier/pagecache"
	"mem_tier/threadcache"
)

// Allocator is the process-wide singleton spec.md's Design Notes
// describe ("best modeled as an allocator handle passed explicitly,
// with an ambient default for the façade"): it owns the page layer
// and the central cache, both safe for concurrent use from any number
// of goroutines, and mints thread caches on request.
type Allocator struct {
	pages   pagecache.PageSource
	central *central.Cache
}

// New returns an Allocator backed by an anonymous-mmap page layer.
func New() *Allocator {
	pages := pagecache.New()
	return &Allocator{pages: pages, central: central.New(pages)}
}

// NewWithPageSource returns an Allocator backed by an arbitrary
// pagecache.PageSource, letting tests substitute a heap-backed fake
// to drive OOM-propagation scenarios without touching real mappings.
func NewWithPageSource(pages pagecache.PageSource) *Allocator {
	return &Allocator{pages: pages, central: central.New(pages)}
}

// NewThreadCache returns a fresh per-goroutine Cache that refills from
// and flushes to a's central cache. The caller owns the returned
// *threadcache.Cache and must not share it across goroutines.
func (a *Allocator) NewThreadCache() *threadcache.Cache {
	return threadcache.New(a.central)
}

// Central exposes the underlying central cache, mainly for tests and
// diagnostics that want class-level Stats without threading them
// through the façade.
func (a *Allocator) Central() *central.Cache { return a.central }
