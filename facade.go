package memtier

import (
	"mem_tier/sizeclass"
	"mem_tier/threadcache"
)

// globalAllocator is the process-wide ambient Allocator the package-level
// Allocate/Deallocate convenience functions use when a caller does
// not want to thread an explicit *Allocator/*threadcache.Cache
// through their code. Constructed lazily isn't needed here since Go
// runs package-level initializers before main; spec.md's Design Notes
// call this out as unconstrained by the core's own design.
var globalAllocator = New()

// Allocate rounds size up to the alignment grid and serves it from c,
// the caller's thread cache. It returns ok=false when size is zero or
// exceeds sizeclass.MaxBytes (the façade's job, per spec.md §1, is to route
// such requests to the system allocator instead — this package does
// not do that routing itself) or when the tiered allocator is out of
// memory.
func Allocate(c *threadcache.Cache, size uint32) (uintptr, bool) {
	return c.Allocate(size)
}

// Deallocate returns a block previously obtained from Allocate(c, size)
// to c. size must be the exact value passed to the matching Allocate
// call. A nil/zero ptr is silently ignored.
func Deallocate(c *threadcache.Cache, ptr uintptr, size uint32) {
	c.Deallocate(ptr, size)
}

// DefaultThreadCache mints a new thread cache against the package's
// ambient default Allocator, for callers happy to share one process-
// wide page layer and central cache without constructing their own
// *Allocator.
func DefaultThreadCache() *threadcache.Cache {
	return globalAllocator.NewThreadCache()
}

// Fits reports whether size is small enough for the tiered allocator
// to handle at all; callers responsible for the large-object path
// (spec.md §1's "delegated directly to the page layer or the system
// allocator") should check this before calling Allocate.
func Fits(size uint32) bool {
	return sizeclass.Fits(size)
}
