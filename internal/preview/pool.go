package preview

import "sync"

// BufferPool is a bounded FIFO-recycling collection of ImageBuffers.
//
// Recycling discipline, oldest entry first:
//
//  1. Empty queue: allocate fresh zero-filled.
//  2. Oldest entry has mismatched dimensions: discard it, allocate fresh.
//  3. Queue at or above capacity with a matching oldest: pop and reuse it
//     (contents stale, the caller must overwrite every sample it relies on).
//  4. Queue below capacity with a matching oldest: allocate fresh anyway.
//
// Rule 4 is the capacity gate: recycling is only attempted once enough
// buffers are in circulation that the oldest is statistically idle. The gate
// is a heuristic, not a guarantee — a popped buffer may still be the one the
// display is showing. Tearing safety comes from the slot lock, never from
// this gate.
//
// Thread-safety: all methods safe for concurrent use.
type BufferPool struct {
	mu       sync.Mutex
	capacity int
	queue    []*ImageBuffer

	// counters, guarded by mu
	allocated uint64
	reused    uint64
	discarded uint64
	released  uint64
	dropped   uint64
}

// NewBufferPool creates a pool with the given recycle-queue capacity.
// Zero or negative capacity falls back to DefaultPoolCapacity.
func NewBufferPool(capacity int) *BufferPool {
	if capacity < 1 {
		capacity = DefaultPoolCapacity
	}
	return &BufferPool{capacity: capacity}
}

// Acquire returns a buffer with exactly the requested dimensions, either
// recycled from the queue head or freshly allocated zero-filled. Never
// returns nil.
func (p *BufferPool) Acquire(width, height int) *ImageBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) > 0 {
		oldest := p.queue[0]
		switch {
		case oldest.width != width || oldest.height != height:
			// A dimension change means this entry can never serve again.
			p.popHead()
			p.discarded++
		case len(p.queue) >= p.capacity:
			p.popHead()
			p.reused++
			return oldest
		}
	}

	p.allocated++
	return NewImageBuffer(width, height, 0)
}

// Release appends buf to the tail of the recycle queue. Never an error.
//
// Between this append and the next Acquire pop the queue may hold
// capacity+1 entries; the overshoot is how "which buffer is oldest"
// rotates. A release arriving while the queue is already over capacity is
// discarded instead of queued, keeping the pool best-effort-bounded. In the
// one-release-per-acquire protocol that discard never fires.
func (p *BufferPool) Release(buf *ImageBuffer) {
	if buf == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) > p.capacity {
		p.dropped++
		return
	}
	p.queue = append(p.queue, buf)
	p.released++
}

// Len reports the current recycle-queue length.
func (p *BufferPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Capacity reports the configured recycle-queue bound.
func (p *BufferPool) Capacity() int { return p.capacity }

// Stats returns a counters snapshot.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Capacity:  p.capacity,
		Queued:    len(p.queue),
		Allocated: p.allocated,
		Reused:    p.reused,
		Discarded: p.discarded,
		Released:  p.released,
		Dropped:   p.dropped,
	}
}

// popHead removes the oldest entry. Caller holds p.mu.
func (p *BufferPool) popHead() {
	p.queue[0] = nil // drop the array reference so a discarded buffer can be collected
	p.queue = p.queue[1:]
}
