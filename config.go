// Package memtier is the process-wide façade: it wires the page
// layer and central cache into a ready-to-use allocator (plus an
// ambient default one that DefaultThreadCache mints thread caches
// from) and exposes the Allocate/Deallocate convenience functions
// spec.md §6 calls out as an external collaborator, not part of the
// specified core.
package memtier

import (
	"time"

	"mem_tier/central"
	"mem_tier/sizeclass"
	"mem_tier/threadcache"
)

// Config collects every tuning knob spec.md §6 enumerates in one
// place. It has no env-var or flag binding: spec.md §6 is explicit
// that this system carries no persisted or externally-sourced
// configuration.
type Config struct {
	// Alignment is the minimum block-size granularity (A).
	Alignment uint32
	// MaxBytes is the upper bound of requests the tiered allocator
	// handles; larger requests must bypass it.
	MaxBytes uint32
	// SpanPages is the default span size, in pages, for classes whose
	// block size is small enough to amortize carving across many
	// blocks from one span.
	SpanPages uint32
	// MaxDelayCount is the return-count trigger for a delayed-return
	// pass on a size class.
	MaxDelayCount uint32
	// DelayInterval is the time trigger for a delayed-return pass.
	DelayInterval time.Duration
	// RefillBatch bounds how many central-cache fetches one thread
	// cache miss issues to build a local reserve.
	RefillBatch uint32
	// TargetCachedBytes bounds how many bytes of free blocks a thread
	// cache's class list holds before flushing.
	TargetCachedBytes uint32
}

// DefaultConfig returns the suggested defaults from spec.md §6's
// table. The sizeclass, central, and threadcache packages themselves
// are compiled against these same constants; DefaultConfig exists so
// callers (and tests) have something to introspect and compare
// against without reaching into three different packages.
func DefaultConfig() Config {
	return Config{
		Alignment:         sizeclass.Alignment,
		MaxBytes:          sizeclass.MaxBytes,
		SpanPages:         central.SpanPages,
		MaxDelayCount:     central.MaxDelayCount,
		DelayInterval:     central.DelayInterval,
		RefillBatch:       threadcache.RefillBatch,
		TargetCachedBytes: threadcache.TargetCachedBytes,
	}
}
