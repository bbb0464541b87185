package central

import (
	"sync/atomic"

	"mem_tier/spinlock"
)

// ttasLock wraps a spinlock.Spinlock and attributes every failed
// test-and-set attempt to a diagnostic counter, so scenario 2 of
// spec.md §8 ("never contend on the same lock") is directly
// observable rather than merely assumed.
type ttasLock struct {
	sp spinlock.Spinlock
}

// Lock acquires the lock, incrementing contention once per call that
// did not succeed on the first test-and-set.
func (l *ttasLock) Lock(contention *atomic.Uint64) {
	if l.sp.TryLock() {
		return
	}
	contention.Add(1)
	l.sp.Lock()
}

// Unlock releases the lock.
func (l *ttasLock) Unlock() {
	l.sp.Unlock()
}
