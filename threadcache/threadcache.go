// Package threadcache is the front-line allocator each thread (or, in
// this Go rendering, each goroutine that owns one explicit handle)
// consults first (spec.md §4.1). It requires no synchronization of its
// own: a *Cache must never be used from more than one goroutine at a
// time.
package threadcache

import (
	"mem_tier/allocerr"
	"mem_tier/central"
	"mem_tier/internal/blocklist"
	"mem_tier/sizeclass"
)

// RefillBatch is how many FetchRange calls a miss issues at most,
// each under its own central-cache lock acquisition, to build up a
// short local reserve instead of refilling one block at a time.
// Resolves spec.md's Design Note "Open question: returned-chain
// length on fetch" (see SPEC_FULL.md §4.1): the prototype's
// FetchRange hands back one detached block per call, so a deeper
// local cache is built here by calling it repeatedly rather than by
// changing its contract.
const RefillBatch = 4

// TargetCachedBytes bounds how many bytes of free blocks one class's
// local list is allowed to hold before a deallocate flushes it back
// to the central cache. Smaller blocks can afford a longer list for
// the same byte budget; larger blocks flush sooner, per spec.md
// §4.1's "larger blocks return sooner".
const TargetCachedBytes = 32 * 1024

type classList struct {
	head uintptr
	size uint32
}

// Cache is one thread's/goroutine's set of per-class free lists. The
// zero value is not ready to use; construct with New.
type Cache struct {
	central *central.Cache
	classes [sizeclass.NumClasses]classList
}

// New returns a Cache that refills from and flushes to c.
func New(c *central.Cache) *Cache {
	return &Cache{central: c}
}

// HighWaterMark returns the free-list length, in blocks, above which
// a class's list is flushed to the central cache. Larger blocks get a
// lower mark so free_list_size*block_size stays bounded by an
// O(refill-batch-size) constant, per spec.md §4.1's invariant.
func HighWaterMark(blockSize uint32) uint32 {
	if blockSize == 0 {
		return RefillBatch
	}
	mark := uint32(TargetCachedBytes / blockSize)
	if mark < RefillBatch {
		return RefillBatch
	}
	return mark
}

// Allocate rounds size up to the alignment grid, resolves its class,
// and serves it from the local free list or refills from the central
// cache on underflow. ok is false only on OOM (size within range but
// the central cache and page layer both failed) or when size is zero
// or exceeds sizeclass.MaxBytes, which this cache never handles.
func (c *Cache) Allocate(size uint32) (addr uintptr, ok bool) {
	if !sizeclass.Fits(size) {
		return 0, false
	}
	index := sizeclass.ClassIndex(size)
	cl := &c.classes[index]

	if cl.head != 0 {
		addr = cl.head
		cl.head = blocklist.Next(addr)
		blocklist.SetNext(addr, 0)
		cl.size--
		return addr, true
	}

	return c.refill(index)
}

// refill issues up to RefillBatch FetchRange calls, keeping the first
// block for the caller and pushing the rest onto the local list.
func (c *Cache) refill(index uint32) (uintptr, bool) {
	cl := &c.classes[index]

	first, ok := c.central.FetchRange(index)
	if !ok {
		return 0, false
	}
	for i := 1; i < RefillBatch; i++ {
		blk, ok := c.central.FetchRange(index)
		if !ok {
			break
		}
		blocklist.SetNext(blk, cl.head)
		cl.head = blk
		cl.size++
	}
	return first, true
}

// Deallocate pushes the block back onto the local free list for its
// class and, once the list crosses the high-water mark, flushes it
// back to the central cache in one call.
func (c *Cache) Deallocate(addr uintptr, size uint32) {
	if addr == 0 {
		return
	}
	if !sizeclass.Fits(size) {
		allocerr.Raise("Deallocate", 0, "size out of managed range reached thread cache")
	}
	index := sizeclass.ClassIndex(size)
	cl := &c.classes[index]

	blocklist.SetNext(addr, cl.head)
	cl.head = addr
	cl.size++

	blockSize := sizeclass.BlockSize(index)
	if cl.size > HighWaterMark(blockSize) {
		c.flush(index)
	}
}

// flush detaches the entire local list for index and hands it to the
// central cache in one ReturnRange call.
func (c *Cache) flush(index uint32) {
	cl := &c.classes[index]
	if cl.head == 0 {
		return
	}
	head := cl.head
	count := cl.size
	cl.head = 0
	cl.size = 0

	totalBytes := uint64(count) * uint64(sizeclass.BlockSize(index))
	c.central.ReturnRange(head, totalBytes, index)
}

// Flush flushes every non-empty class's local list back to the
// central cache. Intended for callers that want to release a thread
// cache's holdings before the owning thread/goroutine exits, per
// spec.md §5's "implementations should flush the thread cache back to
// the Central Cache" recommendation.
func (c *Cache) Flush() {
	for i := range c.classes {
		if c.classes[i].size > 0 {
			c.flush(uint32(i))
		}
	}
}

// Size returns the number of blocks currently cached locally for
// size class index. Exposed for tests asserting bulk-flush behavior.
func (c *Cache) Size(index uint32) uint32 {
	return c.classes[index].size
}
