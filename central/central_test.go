package central

import (
	"testing"
	"unsafe"

	"mem_tier/internal/blocklist"
	"mem_tier/pagecache"
	"mem_tier/sizeclass"
)

func TestFetchRangeCarvesFreshSpanOnMiss(t *testing.T) {
	pages := pagecache.New()
	c := New(pages)
	index := sizeclass.ClassIndex(24)

	addr, ok := c.FetchRange(index)
	if !ok || addr == 0 {
		t.Fatalf("FetchRange failed: addr=%d ok=%v", addr, ok)
	}
	if c.SpanTable().Len() != 1 {
		t.Fatalf("expected one tracker registered, got %d", c.SpanTable().Len())
	}
}

func TestFetchRangeServesFromExistingFreeList(t *testing.T) {
	pages := pagecache.New()
	c := New(pages)
	index := sizeclass.ClassIndex(24)

	first, _ := c.FetchRange(index)
	second, ok := c.FetchRange(index)
	if !ok {
		t.Fatal("second FetchRange should succeed from the carved remainder")
	}
	if second == first {
		t.Fatal("FetchRange must not return the same block twice while only one is outstanding")
	}
}

func TestReturnRangeAndFetchRoundTrip(t *testing.T) {
	pages := pagecache.New()
	c := New(pages)
	index := sizeclass.ClassIndex(24)
	blockSize := uint64(sizeclass.BlockSize(index))

	addr, _ := c.FetchRange(index)
	c.ReturnRange(addr, blockSize, index)

	back, ok := c.FetchRange(index)
	if !ok || back != addr {
		t.Fatalf("expected to refetch the just-returned block, got %x ok=%v", back, ok)
	}
}

func TestDelayedReturnRetiresFullyFreeSpan(t *testing.T) {
	pages := pagecache.New()
	c := New(pages)
	index := sizeclass.ClassIndex(24)
	blockSize := sizeclass.BlockSize(index)

	spanBytes := uint64(SpanPages) * pagecache.PageSize
	blockCount := int(spanBytes / uint64(blockSize))

	addrs := make([]uintptr, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		addr, ok := c.FetchRange(index)
		if !ok {
			t.Fatalf("FetchRange failed at i=%d", i)
		}
		addrs = append(addrs, addr)
	}
	if pages.LiveSpans() != 1 {
		t.Fatalf("expected exactly one span allocated, got %d", pages.LiveSpans())
	}

	cs := &c.classes[index]
	cs.lock.Lock(&cs.stats.contention)
	cs.delayCount = MaxDelayCount - 1
	cs.lock.Unlock()

	// Returning this many blocks will itself trip MaxDelayCount more
	// than once before the last block is back; each intermediate pass
	// must reconcile without over- or under-counting, or a later pass
	// will panic on a free_count that exceeds block_count. blockCount
	// need not land on a MaxDelayCount boundary, so force one final
	// pass explicitly once every block is back, matching spec.md §8
	// scenario 3's "trigger delayed return ... free the last block and
	// trigger another return".
	for _, addr := range addrs {
		c.ReturnRange(addr, uint64(blockSize), index)
	}
	c.TriggerDelayedReturn(index)

	if pages.LiveSpans() != 0 {
		t.Fatalf("expected span to be retired after all blocks returned, LiveSpans=%d", pages.LiveSpans())
	}
	if got := c.Stats(index).SpansRetired; got != 1 {
		t.Fatalf("SpansRetired = %d, want 1", got)
	}
}

func TestFetchRangeOOMPropagates(t *testing.T) {
	c := New(&failingPages{})
	index := sizeclass.ClassIndex(64)
	if _, ok := c.FetchRange(index); ok {
		t.Fatal("FetchRange should fail when the page layer is out of memory")
	}
	if c.SpanTable().Len() != 0 {
		t.Fatal("no tracker should be registered on OOM")
	}
}

func TestFetchRangeOutOfRangeIndexMisses(t *testing.T) {
	c := New(pagecache.New())
	if _, ok := c.FetchRange(sizeclass.NumClasses); ok {
		t.Fatal("FetchRange on an out-of-range index should fail, not panic")
	}
}

func TestDelayedReturnSpliceAdvancesOnRetain(t *testing.T) {
	// Build a three-block chain where the middle block is retained
	// (remove returns false) and the outer two are removed. The fixed
	// filter (spec.md Design Notes: "current advances every
	// iteration") must not skip the trailing block.
	backing := make([]byte, 3*8)
	a := blockAddr(backing, 0)
	b := blockAddr(backing, 8)
	cAddr := blockAddr(backing, 16)

	blocklist.SetNext(a, b)
	blocklist.SetNext(b, cAddr)
	blocklist.SetNext(cAddr, 0)

	removed := map[uintptr]bool{a: true, cAddr: true}
	newHead := filterChain(a, func(addr uintptr) bool { return removed[addr] })

	if newHead != b {
		t.Fatalf("expected retained block %x to become head, got %x", b, newHead)
	}
	if blocklist.Next(b) != 0 {
		t.Fatalf("retained block's next should be nil after splicing out both neighbors, got %x", blocklist.Next(b))
	}
}

func blockAddr(backing []byte, off int) uintptr {
	return uintptr(unsafe.Pointer(&backing[off]))
}

type failingPages struct{}

func (*failingPages) AllocateSpan(uint32) (uintptr, bool) { return 0, false }
func (*failingPages) DeallocateSpan(uintptr, uint32)      {}
