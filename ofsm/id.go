package ofsm

import "sync"

// IDAllocator hands out monotonically increasing 32-bit identifiers,
// skipping zero on wraparound. It backs both the flow-id space and the
// locally-originated transaction-id space, each with its own starting
// value and instance.
//
// The cooperative single-thread scheduling model means no locking is
// strictly required, but the mutex keeps the type safe to share across
// the rare goroutine boundary (e.g. a test driving the manager from
// multiple goroutines) without becoming a correctness requirement of
// the core itself.
type IDAllocator struct {
	mu   sync.Mutex
	next uint32
}

// NewIDAllocator returns an allocator whose first call to Next returns
// start. If start is zero, it is advanced to one, since zero is
// reserved as the "invalid" identifier.
func NewIDAllocator(start uint32) *IDAllocator {
	if start == 0 {
		start = 1
	}
	return &IDAllocator{next: start}
}

// Next returns the next identifier in the sequence, skipping zero if
// the counter wraps around.
func (a *IDAllocator) Next() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.next
	a.next++
	if a.next == 0 {
		a.next = 1
	}
	return id
}
