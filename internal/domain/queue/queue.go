// Package queue holds the bounded, insertion-ordered buffer of recently
// processed events. It is the sole source for the recent-events surface
// and for health sizing, and is independent of the persistence sink.
package queue

import (
	"sync"

	"github.com/healis/realtime-service/internal/domain/model"
)

// DefaultCapacity bounds the audit buffer when the config leaves it unset.
const DefaultCapacity = 1000

// Entry is one processed event plus its delivery outcome.
type Entry struct {
	Event      model.Eventer
	Processed  bool
	Targets    int   // resolved target connections
	Delivered  int   // mailbox handoffs that succeeded
	DeadlineAt int64 // unix ms; set only on the critical path
}

// Ring is a fixed-capacity FIFO of entries. When full, Push evicts the
// oldest entry first; eviction is capacity policy, never an error.
type Ring struct {
	mu   sync.RWMutex
	buf  []*Entry
	head int // index of the oldest entry
	size int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]*Entry, capacity)}
}

// Push appends an entry, evicting the oldest when at capacity.
func (r *Ring) Push(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == len(r.buf) {
		// FIFO eviction: overwrite the oldest slot and advance.
		r.buf[r.head] = e
		r.head = (r.head + 1) % len(r.buf)
		return
	}
	r.buf[(r.head+r.size)%len(r.buf)] = e
	r.size++
}

// Recent returns the last n entries in insertion order (oldest of the n
// first), or fewer if the ring holds fewer. Read-only and repeatable.
func (r *Ring) Recent(n int) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || r.size == 0 {
		return nil
	}
	if n > r.size {
		n = r.size
	}
	out := make([]*Entry, 0, n)
	start := r.size - n
	for i := start; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring) Cap() int {
	return len(r.buf)
}

// AtCapacity reports whether the next Push would evict.
func (r *Ring) AtCapacity() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size == len(r.buf)
}
