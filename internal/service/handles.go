package service

import (
	"sync"

	"github.com/ox-runtime/ox/internal/proto"
)

// HandleAllocator hands out monotonically increasing, never-recycled
// handles from 1 upward, per spec.md §3's "Allocated monotonically by the
// service from 1 upward; 0 reserved for null" and §8.2's uniqueness
// invariant. Protected by its own mutex per spec.md §5.
type HandleAllocator struct {
	mu   sync.Mutex
	next uint64
}

// NewHandleAllocator returns an allocator whose first Allocate call
// returns handle 1.
func NewHandleAllocator() *HandleAllocator {
	return &HandleAllocator{next: 1}
}

// Allocate returns the next handle value. kind is accepted for symmetry
// with the wire protocol's AllocateHandleRequest but does not affect the
// numeric value: handles are a single monotonic space regardless of kind,
// per spec.md §3 ("Opaque 64-bit integers tagged by kind").
func (a *HandleAllocator) Allocate(kind proto.HandleKind) proto.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.next
	a.next++
	return proto.Handle(h)
}
