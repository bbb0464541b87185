package threadcache

import (
	"testing"

	"mem_tier/central"
	"mem_tier/pagecache"
	"mem_tier/sizeclass"
)

func TestAllocateDeallocateRoundTrip(t *testing.T) {
	cc := central.New(pagecache.New())
	tc := New(cc)

	addr, ok := tc.Allocate(24)
	if !ok || addr == 0 {
		t.Fatalf("Allocate failed: addr=%d ok=%v", addr, ok)
	}
	if addr%sizeclass.Alignment != 0 {
		t.Fatalf("addr %x not aligned", addr)
	}
	tc.Deallocate(addr, 24)

	addr2, ok := tc.Allocate(24)
	if !ok {
		t.Fatal("second Allocate failed")
	}
	if addr2 != addr {
		t.Fatalf("expected immediate reuse of freed block: got %x, want %x", addr2, addr)
	}
}

func TestDeallocateFlushesAboveHighWaterMark(t *testing.T) {
	cc := central.New(pagecache.New())
	tc := New(cc)
	index := sizeclass.ClassIndex(24)
	mark := HighWaterMark(sizeclass.BlockSize(index))

	addrs := make([]uintptr, 0, mark+8)
	for i := uint32(0); i < mark+8; i++ {
		addr, ok := tc.Allocate(24)
		if !ok {
			t.Fatalf("Allocate failed at i=%d", i)
		}
		addrs = append(addrs, addr)
	}
	for _, addr := range addrs {
		tc.Deallocate(addr, 24)
	}
	if tc.Size(index) > mark {
		t.Fatalf("thread cache size %d exceeds high-water mark %d after flush", tc.Size(index), mark)
	}
}

func TestAllocateOOMPropagates(t *testing.T) {
	tc := New(central.New(&failingPages{}))
	if _, ok := tc.Allocate(64); ok {
		t.Fatal("Allocate should fail when page layer is out of memory")
	}
}

func TestAllocateOversizeRejected(t *testing.T) {
	tc := New(central.New(pagecache.New()))
	if _, ok := tc.Allocate(sizeclass.MaxBytes + 1); ok {
		t.Fatal("Allocate should reject requests above MaxBytes")
	}
}

func TestFlushReturnsAllClasses(t *testing.T) {
	cc := central.New(pagecache.New())
	tc := New(cc)
	a, _ := tc.Allocate(24)
	b, _ := tc.Allocate(128)
	tc.Deallocate(a, 24)
	tc.Deallocate(b, 128)

	tc.Flush()
	if tc.Size(sizeclass.ClassIndex(24)) != 0 {
		t.Fatal("Flush should empty class 24's local list")
	}
	if tc.Size(sizeclass.ClassIndex(128)) != 0 {
		t.Fatal("Flush should empty class 128's local list")
	}
}

type failingPages struct{}

func (*failingPages) AllocateSpan(uint32) (uintptr, bool)  { return 0, false }
func (*failingPages) DeallocateSpan(uintptr, uint32)       {}
