package preview

import (
	"image"
	"sync"
)

// SharedFrameSlot is the producer→consumer handoff point holding the most
// recently published buffer.
//
// One mutex guards both the current pointer and the BYTES of the buffer it
// points to. The pool recycles a released buffer while the display may still
// be showing it, so the producer's copy-in and the consumer's read-out must
// be mutually exclusive; guarding only the pointer would still allow a torn
// frame.
//
// Publishing and redraw notification are deliberately separate: the slot
// stores data, the RedrawNotifier signals consumers (see notifier.go).
type SharedFrameSlot struct {
	mu      sync.Mutex
	current *ImageBuffer
	seq     uint64
}

// Publish runs the producer's write step: under the slot lock it bulk-copies
// src into buf, applies f in place, then makes buf the current buffer.
//
// The transform runs inside the same lock hold as the copy. With a
// capacity-1 pool a recycled buffer can still BE the visible current buffer,
// so mutating it outside the lock could tear a concurrent read; one lock
// hold covers every capacity.
//
// Returns ErrSizeMismatch (slot unchanged) when src does not fit buf.
func (s *SharedFrameSlot) Publish(buf *ImageBuffer, src []byte, f Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := buf.CopyFrom(src); err != nil {
		return err
	}
	if f != nil {
		buf.Transform(f)
	}
	s.current = buf
	s.seq++
	return nil
}

// Snapshot returns a displayable copy of the current buffer, taken under
// the slot lock. Reports false until the first publish.
func (s *SharedFrameSlot) Snapshot() (*image.Gray, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}
	return s.current.ToDisplayable(), true
}

// View runs fn against the current buffer's raw samples under the slot
// lock, avoiding the Snapshot copy. fn must not retain the slice past its
// return. Reports false (fn not called) until the first publish.
func (s *SharedFrameSlot) View(fn func(width, height int, samples []byte)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	fn(s.current.width, s.current.height, s.current.samples)
	return true
}

// Seq reports how many publishes the slot has absorbed.
func (s *SharedFrameSlot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
