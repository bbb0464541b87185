// Package pagecache is the page layer: it owns raw, multi-page memory
// regions ("spans") obtained from the OS and hands them to the central
// cache to be carved into blocks.
package pagecache

import (
	"sync"

	"mem_tier/internal/mmap"
)

// PageSize is the page granularity spans are measured in.
const PageSize = 4096

// PageSource is the interface the central cache depends on. It is
// deliberately narrow so tests can substitute a heap-backed fake to
// drive OOM-propagation scenarios without touching real memory maps.
type PageSource interface {
	AllocateSpan(numPages uint32) (addr uintptr, ok bool)
	DeallocateSpan(addr uintptr, numPages uint32)
}

// PageCache is the default PageSource, backed by anonymous OS mappings.
type PageCache struct {
	mu    sync.Mutex
	spans map[uintptr][]byte // addr -> backing slice, needed to Unmap
}

// New returns a ready-to-use PageCache.
func New() *PageCache {
	return &PageCache{spans: make(map[uintptr][]byte)}
}

// AllocateSpan maps numPages*PageSize bytes of fresh, zeroed memory and
// returns its base address. Returns ok=false on OOM (mmap failure),
// per spec: the page layer surfaces failure by returning null/false,
// never an error value.
func (p *PageCache) AllocateSpan(numPages uint32) (uintptr, bool) {
	size := int(numPages) * PageSize
	if size <= 0 {
		return 0, false
	}
	data, err := mmap.MapAnon(size)
	if err != nil {
		return 0, false
	}
	addr := spanAddr(data)
	p.mu.Lock()
	p.spans[addr] = data
	p.mu.Unlock()
	return addr, true
}

// DeallocateSpan releases a span previously returned by AllocateSpan.
// numPages must match the value passed to AllocateSpan.
func (p *PageCache) DeallocateSpan(addr uintptr, numPages uint32) {
	p.mu.Lock()
	data, ok := p.spans[addr]
	if ok {
		delete(p.spans, addr)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = mmap.Unmap(data)
}

// LiveSpans returns the number of spans currently held by the page
// cache, for tests asserting span-release properties.
func (p *PageCache) LiveSpans() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.spans)
}
