// Package central implements the process-wide, size-classed shared
// reservoir of free blocks (spec.md §4.2): it mediates between thread
// caches and the page layer, carving spans into blocks on miss and
// reclaiming fully-idle spans through a delayed, batched pass.
package central

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"mem_tier/allocerr"
	"mem_tier/internal/blocklist"
	"mem_tier/pagecache"
	"mem_tier/sizeclass"
	"mem_tier/spantable"
)

// Tuning knobs, spec.md §6.
const (
	// SpanPages is how many pages a span request asks for when the
	// block size is small enough that one common-size span amortizes
	// carving cost across many blocks.
	SpanPages = 8

	// MaxDelayCount is the return-count trigger for a delayed-return
	// pass on a size class.
	MaxDelayCount = 64

	// DelayInterval is the time trigger for a delayed-return pass.
	DelayInterval = time.Second
)

type classState struct {
	lock ttasLock

	head       uintptr // guarded by lock
	delayCount uint32  // guarded by lock
	lastReturn time.Time

	stats classStats
}

// Cache is the central cache: one classState per size class, plus the
// shared span-tracker store all classes register into.
type Cache struct {
	pages   pagecache.PageSource
	store   *spantable.Store
	log     zerolog.Logger
	classes [sizeclass.NumClasses]classState
}

// New returns a Cache backed by pages. now defaults every class's
// lastReturn to the current time so the very first ReturnRange call
// doesn't spuriously trip the time-based trigger.
func New(pages pagecache.PageSource) *Cache {
	c := &Cache{
		pages: pages,
		store: spantable.New(),
		// Span retirement is logged at Debug; pinning the logger's own
		// level at Info means routine reclamation doesn't spam stderr
		// during normal operation or test runs.
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Str("component", "central").Logger(),
	}
	now := time.Now()
	for i := range c.classes {
		c.classes[i].lastReturn = now
	}
	return c
}

// FetchRange returns a single free block of the given class, refilling
// from the page layer on miss. Returns ok=false on OOM or for an
// out-of-range index. Precondition:
// index < sizeclass.NumClasses; an out-of-range index simply misses,
// matching the source's own bounds check.
func (c *Cache) FetchRange(index uint32) (addr uintptr, ok bool) {
	if index >= sizeclass.NumClasses {
		return 0, false
	}
	cs := &c.classes[index]
	cs.lock.Lock(&cs.stats.contention)
	defer cs.lock.Unlock()

	if cs.head != 0 {
		head := cs.head
		next := blocklist.Next(head)
		blocklist.SetNext(head, 0)
		cs.head = next

		// free_count is deliberately not touched here: it is only ever
		// reconciled by performDelayedReturn's full-list walk (§4.2.3),
		// which recomputes it from scratch every pass (see Tracker.SetFree).
		// Decrementing it on every fetch would make it go stale the
		// moment a block fetched here is later returned and re-fetched
		// before the next pass runs — free_count undercounting between
		// passes is expected per spec.md §4.2.2, not an error condition.
		return head, true
	}

	spanAddr, numPages, ok := c.requestSpan(index)
	if !ok {
		return 0, false
	}

	blockSize := uint64(sizeclass.BlockSize(index))
	spanBytes := uint64(numPages) * pagecache.PageSize
	blockCount := spanBytes / blockSize
	if blockCount == 0 {
		allocerr.Raise("FetchRange", index, "span too small for one block")
	}

	// carve: block 0 is detached and handed to the caller directly;
	// blocks 1..blockCount-1 are linked head-to-tail, tail -> nil, and
	// published as the class's new free list.
	if blockCount > 1 {
		for i := uint64(1); i < blockCount-1; i++ {
			cur := spanAddr + uintptr(i*blockSize)
			next := spanAddr + uintptr((i+1)*blockSize)
			blocklist.SetNext(cur, next)
		}
		last := spanAddr + uintptr((blockCount-1)*blockSize)
		blocklist.SetNext(last, 0)
		cs.head = spanAddr + uintptr(blockSize)
	}

	c.store.Register(spanAddr, numPages, uint32(blockCount), uint32(blockCount-1))
	return spanAddr, true
}

// ReturnRange accepts a non-empty intrusive chain of blockCount blocks
// (blockCount derived from totalBytes) belonging to class index and
// pushes it onto the central free list, running a delayed-return pass
// if the count or time trigger has been reached.
func (c *Cache) ReturnRange(head uintptr, totalBytes uint64, index uint32) {
	if head == 0 || index >= sizeclass.NumClasses {
		return
	}
	blockSize := uint64(sizeclass.BlockSize(index))
	wantCount := totalBytes / blockSize
	if wantCount == 0 {
		return
	}
	tail, walked := blocklist.Tail(head, int(wantCount))
	if uint64(walked) != wantCount {
		allocerr.Raise("ReturnRange", index, "chain shorter than declared block count")
	}

	cs := &c.classes[index]
	cs.lock.Lock(&cs.stats.contention)
	defer cs.lock.Unlock()

	blocklist.SetNext(tail, cs.head)
	cs.head = head

	cs.delayCount++
	now := time.Now()
	if cs.delayCount >= MaxDelayCount || now.Sub(cs.lastReturn) >= DelayInterval {
		cs.stats.delayTriggers.Add(1)
		c.performDelayedReturn(index, now)
	}
}

// performDelayedReturn is §4.2.3. Caller must hold classes[index].lock.
func (c *Cache) performDelayedReturn(index uint32, now time.Time) {
	cs := &c.classes[index]
	cs.delayCount = 0
	cs.lastReturn = now

	tally := make(map[*spantable.Tracker]uint32)
	for cur := cs.head; cur != 0; cur = blocklist.Next(cur) {
		tracker := c.store.Lookup(cur, pagecache.PageSize)
		if tracker == nil {
			allocerr.Raise("performDelayedReturn", index, "block with no owning span")
		}
		tally[tracker]++
	}

	// free_count is set, not accumulated: the tally above is a fresh
	// count of how many of the tracker's blocks are in the list right
	// now, which already reflects every return and fetch for this span
	// since the previous pass. Adding the tally on top of a previous
	// pass's count would double-count blocks that stayed on the list
	// across more than one pass. A tracker with none of its blocks on
	// the list is not in the tally and keeps its previous free_count.
	var releasing []*spantable.Tracker
	for tracker, n := range tally {
		if n > tracker.BlockCount() {
			allocerr.Raise("performDelayedReturn", index, "free_count exceeds block_count")
		}
		tracker.SetFree(n)
		if n == tracker.BlockCount() {
			releasing = append(releasing, tracker)
		}
	}
	if len(releasing) == 0 {
		return
	}

	remove := func(addr uintptr) bool {
		for _, tr := range releasing {
			if tr.Contains(addr, pagecache.PageSize) {
				return true
			}
		}
		return false
	}
	cs.head = filterChain(cs.head, remove)

	for _, tracker := range releasing {
		spanAddr, numPages := tracker.SpanAddr(), tracker.NumPages()
		tracker.Retire()
		c.pages.DeallocateSpan(spanAddr, numPages)
		cs.stats.spansRetired.Add(1)
		c.log.Debug().
			Uint32("class", index).
			Uint64("span_addr", uint64(spanAddr)).
			Uint32("num_pages", numPages).
			Msg("span released to page layer")
	}
}

// filterChain removes every block for which remove returns true,
// advancing current on every iteration and prev only when the current
// node is retained (spec.md's Design Notes call out the opposite as a
// prototype bug).
func filterChain(head uintptr, remove func(uintptr) bool) uintptr {
	var newHead, prev uintptr
	for cur := head; cur != 0; {
		next := blocklist.Next(cur)
		if remove(cur) {
			if prev != 0 {
				blocklist.SetNext(prev, next)
			}
		} else {
			if prev == 0 {
				newHead = cur
			}
			prev = cur
		}
		cur = next
	}
	return newHead
}

// requestSpan is §4.2.4's page-layer sizing rule.
func (c *Cache) requestSpan(index uint32) (addr uintptr, numPages uint32, ok bool) {
	blockSize := uint64(sizeclass.BlockSize(index))
	if blockSize <= uint64(SpanPages)*pagecache.PageSize {
		numPages = SpanPages
	} else {
		numPages = uint32((blockSize + pagecache.PageSize - 1) / pagecache.PageSize)
	}
	addr, ok = c.pages.AllocateSpan(numPages)
	return addr, numPages, ok
}

// SpanTable exposes the underlying span-tracker store, mainly for
// tests that want to assert on live-span counts directly.
func (c *Cache) SpanTable() *spantable.Store { return c.store }

// TriggerDelayedReturn forces an immediate delayed-return pass on
// class index, independent of the count/time triggers in
// ReturnRange. Exposed so a test can reproduce spec.md §8 scenario 3
// ("trigger delayed return by exceeding MaxDelayCount or sleeping
// past DelayInterval") deterministically, rather than depending on
// wall-clock sleeps or a return count that happens to land on a
// trigger boundary.
func (c *Cache) TriggerDelayedReturn(index uint32) {
	if index >= sizeclass.NumClasses {
		return
	}
	cs := &c.classes[index]
	cs.lock.Lock(&cs.stats.contention)
	defer cs.lock.Unlock()
	c.performDelayedReturn(index, time.Now())
}
