package pagecache

import "testing"

func TestAllocateDeallocateSpan(t *testing.T) {
	pc := New()
	addr, ok := pc.AllocateSpan(8)
	if !ok || addr == 0 {
		t.Fatalf("AllocateSpan failed: addr=%d ok=%v", addr, ok)
	}
	if pc.LiveSpans() != 1 {
		t.Fatalf("LiveSpans = %d, want 1", pc.LiveSpans())
	}
	pc.DeallocateSpan(addr, 8)
	if pc.LiveSpans() != 0 {
		t.Fatalf("LiveSpans after dealloc = %d, want 0", pc.LiveSpans())
	}
}

func TestAllocateSpanZeroPages(t *testing.T) {
	pc := New()
	if _, ok := pc.AllocateSpan(0); ok {
		t.Fatal("AllocateSpan(0) should fail")
	}
}

func TestDeallocateUnknownSpanIsNoop(t *testing.T) {
	pc := New()
	pc.DeallocateSpan(0xdead, 8) // must not panic
}

func TestMultipleSpansAreDisjoint(t *testing.T) {
	pc := New()
	const n = 16
	addrs := make(map[uintptr]bool, n)
	for i := 0; i < n; i++ {
		addr, ok := pc.AllocateSpan(1)
		if !ok {
			t.Fatalf("AllocateSpan failed at i=%d", i)
		}
		if addrs[addr] {
			t.Fatalf("duplicate span address %x", addr)
		}
		addrs[addr] = true
	}
	if pc.LiveSpans() != n {
		t.Fatalf("LiveSpans = %d, want %d", pc.LiveSpans(), n)
	}
}
