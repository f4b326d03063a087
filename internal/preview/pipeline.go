// Package preview implements the frame-buffer recycling core behind the
// public framepreview API.
//
// This package is internal — clients use the parent package, which
// re-exports the types and constructs the Pipeline.
package preview

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyStarted is returned by Start after a successful Start.
	ErrAlreadyStarted = errors.New("framepreview: pipeline already started")

	// ErrNilSource is returned by Start when no frame channel is supplied.
	ErrNilSource = errors.New("framepreview: nil frame source")
)

// Pipeline owns the buffer pool, the shared frame slot and the redraw
// notifier, and runs the per-frame producer step against them.
//
// Goroutine topology:
//   - 1 fixed: ingestLoop (spawned by Start, stopped by Stop or source close)
//   - N external: display consumers (not managed here, they own their loops)
//
// The synchronous per-frame step Ingest is also callable directly, without
// Start, for sources that invoke the producer once per frame themselves.
//
// Thread-safety: all methods safe for concurrent use.
type Pipeline struct {
	pool      *BufferPool
	slot      *SharedFrameSlot
	notifier  *RedrawNotifier
	transform Transform

	framesIn      atomic.Uint64
	framesSkipped atomic.Uint64
	sizeDefects   atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startedMu sync.Mutex
	started   bool
	stopped   bool
}

// NewPipeline creates a pipeline from cfg. The zero Config gives the
// default pool capacity and the Invert transform.
func NewPipeline(cfg Config) *Pipeline {
	transform := cfg.Transform
	if transform == nil {
		transform = Invert
	}
	return &Pipeline{
		pool:      NewBufferPool(cfg.PoolCapacity),
		slot:      &SharedFrameSlot{},
		notifier:  NewRedrawNotifier(),
		transform: transform,
	}
}

// Ingest runs the per-frame producer step, invoked once per arriving frame:
//
//  1. Nil/empty frame data: skip silently (frame drop, counted).
//  2. Acquire a buffer of the frame's dimensions from the pool.
//  3. Under the slot lock: bulk-copy the raster in, apply the transform,
//     make the buffer current.
//  4. Fire the coalesced redraw signal (non-blocking).
//  5. Release the same buffer object back to the recycle queue — a future
//     Acquire may hand it out again while the display could still be
//     reading it, which is exactly why step 3 locks the buffer bytes.
//
// A frame whose data length does not match Width×Height is a corrupt
// envelope: counted, slot untouched, ErrSizeMismatch returned. Never blocks
// on the consumer beyond the brief slot lock.
func (p *Pipeline) Ingest(frame Frame) error {
	if len(frame.Data) == 0 {
		p.framesSkipped.Add(1)
		return nil
	}
	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Data) != frame.Width*frame.Height {
		p.sizeDefects.Add(1)
		return ErrSizeMismatch
	}
	p.framesIn.Add(1)

	buf := p.pool.Acquire(frame.Width, frame.Height)
	if err := p.slot.Publish(buf, frame.Data, p.transform); err != nil {
		// Unreachable while Acquire honors its dimension contract;
		// self-correct with an exact-size buffer rather than drop the frame.
		p.sizeDefects.Add(1)
		buf = NewImageBuffer(frame.Width, frame.Height, 0)
		if err := p.slot.Publish(buf, frame.Data, p.transform); err != nil {
			return err
		}
	}

	p.notifier.Signal()
	p.pool.Release(buf)
	return nil
}

// Start spawns the ingest loop consuming frames until ctx is cancelled,
// Stop is called, or the source channel closes. Returns ErrAlreadyStarted
// on any call after the first successful one, and on any call after Stop.
func (p *Pipeline) Start(ctx context.Context, frames <-chan Frame) error {
	p.startedMu.Lock()
	defer p.startedMu.Unlock()

	if p.started || p.stopped {
		return ErrAlreadyStarted
	}
	if frames == nil {
		return ErrNilSource
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	p.wg.Add(1)
	go p.ingestLoop(frames)

	slog.Info("framepreview: ingest loop started",
		"pool_capacity", p.pool.Capacity(),
	)
	return nil
}

// Stop cancels the ingest loop if one is running, waits for it to exit, and
// closes the redraw notifier so display consumers observe shutdown. It works
// the same for pipelines driven by direct Ingest calls, where no loop ever
// ran. Idempotent and terminal: Start is rejected afterwards, while Snapshot
// and View keep serving the last published frame.
func (p *Pipeline) Stop() error {
	p.startedMu.Lock()
	if p.stopped {
		p.startedMu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.startedMu.Unlock()

	if started {
		p.cancel()
		p.wg.Wait()
	}
	p.notifier.Close()

	slog.Info("framepreview: pipeline stopped",
		"frames_in", p.framesIn.Load(),
		"frames_skipped", p.framesSkipped.Load(),
	)
	return nil
}

// Snapshot returns a displayable copy of the current frame, or false before
// the first publish. The copy is taken under the slot lock.
func (p *Pipeline) Snapshot() (*image.Gray, bool) { return p.slot.Snapshot() }

// View runs fn against the current frame's raw samples under the slot lock.
// fn must not retain the slice. Reports false before the first publish.
func (p *Pipeline) View(fn func(width, height int, samples []byte)) bool {
	return p.slot.View(fn)
}

// Subscribe registers a display consumer and returns its coalesced redraw
// channel. The channel closes when the consumer unsubscribes or the
// pipeline stops.
func (p *Pipeline) Subscribe(id string) (<-chan struct{}, error) {
	return p.notifier.Subscribe(id)
}

// Unsubscribe removes a display consumer.
func (p *Pipeline) Unsubscribe(id string) error {
	return p.notifier.Unsubscribe(id)
}

func (p *Pipeline) ingestLoop(frames <-chan Frame) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			slog.Debug("framepreview: ingest loop cancelled")
			return

		case frame, ok := <-frames:
			if !ok {
				slog.Info("framepreview: frame source closed",
					"frames_in", p.framesIn.Load(),
				)
				return
			}
			if err := p.Ingest(frame); err != nil {
				slog.Error("framepreview: frame rejected",
					"error", err,
					"seq", frame.Seq,
					"width", frame.Width,
					"height", frame.Height,
					"data_len", len(frame.Data),
					"trace_id", frame.TraceID,
				)
			}
		}
	}
}
