package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/healis/realtime-service/internal/domain/model"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/DISPATCH)
// This allows mocking and decoupling from the concrete implementation
type Connector interface {
	GetID() uuid.UUID
	GetIdentity() model.Identity
	Send(frame *model.OutboundFrame, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan *model.OutboundFrame
	Dropped() uint64
	Close() // Terminate connection and release resources
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id        uuid.UUID
	identity  model.Identity
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc
	sendCh    chan *model.OutboundFrame
	closeOnce sync.Once // [PROTECTION]

	// [TEARDOWN_GATE] Send holds mu.RLock for the whole delivery attempt;
	// Close takes mu.Lock, so the channel is closed only while no sender
	// is inside the select. Fan-out goroutines can legitimately hold the
	// reference past Close: closed turns their late Sends into clean
	// failures instead of a send on a closed channel.
	mu     sync.RWMutex
	closed bool

	// [ATOMIC_FIELDS] Optimized for lock-free accounting
	lastActivityAt int64
	droppedCount   uint64
}

// NewConnector builds a connection handle bound to the verified identity.
// Handles are never recycled: a broadcast goroutine may still hold one
// after Close, so the memory is released by the GC once the last sender
// lets go.
func NewConnector(ctx context.Context, identity model.Identity, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)

	return &connect{
		id:             uuid.New(),
		identity:       identity,
		createdAt:      time.Now(),
		ctx:            childCtx,
		cancelFn:       cancel,
		sendCh:         make(chan *model.OutboundFrame, bufferSize),
		lastActivityAt: time.Now().UnixNano(),
	}
}

func (c *connect) GetID() uuid.UUID            { return c.id }
func (c *connect) GetIdentity() model.Identity { return c.identity }
func (c *connect) Dropped() uint64             { return atomic.LoadUint64(&c.droppedCount) }

// Send attempts to push a frame into the mailbox. A full mailbox triggers
// the eviction strategy rather than blocking the caller: one slow consumer
// must never hold up the rest of a fan-out.
func (c *connect) Send(frame *model.OutboundFrame, timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// 1. [LIFECYCLE_GATE] Abort immediately once teardown has run.
	if c.closed {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	select {
	// Close cancels this context before it waits for the write lock, so a
	// pending Send unblocks here rather than stalling the teardown.
	case <-c.ctx.Done():
		return false

	// 2. [PRIMARY_DELIVERY] Wait up to 'timeout' for mailbox space, which
	// smooths out transient network jitter without stalling the broadcaster.
	case c.sendCh <- frame:
		atomic.StoreInt64(&c.lastActivityAt, time.Now().UnixNano())
		return true

	// 3. [BACKPRESSURE_THRESHOLD] Buffer stayed saturated for the whole window:
	// a persistent slow consumer. Shed load by priority.
	case <-ctx.Done():
		return c.handleBackpressure(frame)
	}
}

// handleBackpressure manages full mailboxes by dropping low-priority
// frames. Runs under the Send read lock, so the channel cannot be closed
// underneath it.
func (c *connect) handleBackpressure(frame *model.OutboundFrame) bool {
	// A low-priority frame is dropped outright to preserve buffer space
	// for critical alerts.
	if frame.Priority <= model.PriorityLow {
		atomic.AddUint64(&c.droppedCount, 1)
		return false
	}

	// Try to evict one queued frame of lower priority to make room.
	select {
	case old := <-c.sendCh:
		if old.Priority < frame.Priority {
			select {
			case c.sendCh <- frame:
				return true
			default:
			}
		} else {
			// The evicted frame outranked us; put it back (best effort).
			select {
			case c.sendCh <- old:
			default:
			}
		}
	default:
	}

	atomic.AddUint64(&c.droppedCount, 1)
	return false
}

func (c *connect) Recv() <-chan *model.OutboundFrame { return c.sendCh }

// Close terminates the connection and releases its mailbox.
func (c *connect) Close() {
	// [IDEMPOTENCY_SHIELD]
	// Teardown runs exactly once even when invoked concurrently by the
	// registry (shutdown), the dispatcher (eviction), and the ws handler
	// (defer).
	c.closeOnce.Do(func() {
		// 1. [SIGNAL_ABORT] Cancel the context first: any Send blocked in
		// its select exits and releases the read lock this teardown is
		// about to wait on.
		c.cancelFn()

		// 2. [UPSTREAM_NOTIFY] With every in-flight sender drained out,
		// closing the channel signals the transport write pump (via range
		// end) to exit its loop gracefully. The field itself is never
		// reassigned, so Recv stays race-free.
		c.mu.Lock()
		c.closed = true
		close(c.sendCh)
		c.mu.Unlock()
	})
}
