// Package spantable is the grow-only collection of SpanTrackers owned
// by the central cache (spec.md §4.3). Each tracker's scalar fields
// are individually atomic so concurrent readers see coherent values
// without holding the owning size-class lock.
package spantable

import (
	"sync"
	"sync/atomic"
)

// Tracker is per-span metadata. All fields are accessed through the
// atomic package; the struct itself is never mutated by value.
type Tracker struct {
	spanAddr   atomic.Uintptr
	numPages   atomic.Uint32
	blockCount atomic.Uint32
	freeCount  atomic.Uint32
	retired    atomic.Bool
}

// SpanAddr returns the span's base address.
func (t *Tracker) SpanAddr() uintptr { return t.spanAddr.Load() }

// NumPages returns the span's size in pages.
func (t *Tracker) NumPages() uint32 { return t.numPages.Load() }

// BlockCount returns the total number of blocks carved from the span.
func (t *Tracker) BlockCount() uint32 { return t.blockCount.Load() }

// FreeCount returns the number of this span's blocks on the central
// cache's free list as counted by the last delayed-return pass that
// found any of them there (or the count given at registration);
// returns and fetches since then are not reflected.
func (t *Tracker) FreeCount() uint32 { return t.freeCount.Load() }

// SetFree atomically sets FreeCount to v. Used by the delayed-return
// pass, which recomputes each tracker's free count from a fresh walk
// of the current free list rather than accumulating across passes —
// accumulating would double-count blocks that stayed on the list
// (unreleased) across more than one pass.
func (t *Tracker) SetFree(v uint32) {
	t.freeCount.Store(v)
}

// Retired reports whether the tracker's span has already been
// returned to the page layer.
func (t *Tracker) Retired() bool { return t.retired.Load() }

// Retire marks the tracker as no longer matchable by Lookup. The
// struct itself is kept, not freed, so a caller already holding this
// pointer never dereferences invalid Go memory.
func (t *Tracker) Retire() { t.retired.Store(true) }

// Contains reports whether addr falls within [spanAddr, spanAddr +
// numPages*pageSize).
func (t *Tracker) Contains(addr uintptr, pageSize uint32) bool {
	base := t.spanAddr.Load()
	end := base + uintptr(t.numPages.Load())*uintptr(pageSize)
	return addr >= base && addr < end
}

// Store is the grow-only tracker collection. Appends are serialized
// under mu; reads walk an atomically-published snapshot slice and
// need no lock.
type Store struct {
	mu       sync.Mutex // guards appends only; readers never take it
	snapshot atomic.Pointer[[]*Tracker]
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	empty := make([]*Tracker, 0, 64)
	s.snapshot.Store(&empty)
	return s
}

// Register creates a new Tracker for a freshly carved span and
// appends it to the store. Returns the tracker.
func (s *Store) Register(spanAddr uintptr, numPages, blockCount, freeCount uint32) *Tracker {
	t := &Tracker{}
	t.spanAddr.Store(spanAddr)
	t.numPages.Store(numPages)
	t.blockCount.Store(blockCount)
	t.freeCount.Store(freeCount)

	s.mu.Lock()
	old := *s.snapshot.Load()
	next := make([]*Tracker, len(old), len(old)+1)
	copy(next, old)
	next = append(next, t)
	s.snapshot.Store(&next)
	s.mu.Unlock()
	return t
}

// Lookup returns the (non-retired) tracker whose span contains addr,
// or nil. Linear in the number of live-or-retired trackers, per
// spec.md §4.2.5's contract; safe under concurrent Register calls
// because the slice a Lookup walks is a stable snapshot.
func (s *Store) Lookup(addr uintptr, pageSize uint32) *Tracker {
	trackers := *s.snapshot.Load()
	for _, t := range trackers {
		if t.Retired() {
			continue
		}
		if t.Contains(addr, pageSize) {
			return t
		}
	}
	return nil
}

// Len returns the number of trackers ever registered, retired or not.
func (s *Store) Len() int {
	return len(*s.snapshot.Load())
}

// LiveCount returns the number of non-retired trackers.
func (s *Store) LiveCount() int {
	trackers := *s.snapshot.Load()
	n := 0
	for _, t := range trackers {
		if !t.Retired() {
			n++
		}
	}
	return n
}
