package central

import "sync/atomic"

// classStats are diagnostics-only counters; nothing in the allocator's
// control flow reads them back.
type classStats struct {
	contention    atomic.Uint64
	delayTriggers atomic.Uint64
	spansRetired  atomic.Uint64
}

// Stats is a snapshot of one class's diagnostic counters.
type Stats struct {
	ContentionCount uint64
	DelayTriggers   uint64
	SpansRetired    uint64
}

// Stats returns a snapshot of class index's counters.
func (c *Cache) Stats(index uint32) Stats {
	s := &c.classes[index].stats
	return Stats{
		ContentionCount: s.contention.Load(),
		DelayTriggers:   s.delayTriggers.Load(),
		SpansRetired:    s.spansRetired.Load(),
	}
}
