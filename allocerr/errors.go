// Package allocerr holds the sentinel errors and panic type shared
// across the allocator's tiers.
package allocerr

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory names the condition where the page layer cannot
	// satisfy a span request. No function in this module returns it:
	// the allocation path reports OOM as ok=false. The condition is
	// permanent for the current call; callers must not retry
	// automatically.
	ErrOutOfMemory = errors.New("mem_tier: out of memory")

	// ErrInvalidReturn names a Deallocate call with a size outside the
	// managed range. No function in this module returns it:
	// threadcache.Cache.Deallocate panics with an *InvariantPanic for
	// such a size, and silently ignores a nil/zero pointer.
	ErrInvalidReturn = errors.New("mem_tier: invalid return")
)

// InvariantPanic is raised when the allocator detects a broken
// bookkeeping invariant (free_count > block_count, a free-list block
// with no owning span, a returned chain shorter than its declared
// block count, an out-of-range size reaching a thread cache's
// Deallocate). These are programming bugs, not
// runtime conditions callers can recover from.
type InvariantPanic struct {
	Op    string
	Class uint32
	Msg   string
}

func (p *InvariantPanic) Error() string {
	return fmt.Sprintf("mem_tier: internal invariant violation in %s (class %d): %s", p.Op, p.Class, p.Msg)
}

// Raise panics with an *InvariantPanic. Callers must ensure any lock
// held for the failing operation is released on the panic path, as
// the central cache's deferred Unlock calls do.
func Raise(op string, class uint32, msg string) {
	panic(&InvariantPanic{Op: op, Class: class, Msg: msg})
}
