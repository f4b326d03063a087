// Package framepreview implements a recycling frame-buffer pipeline for
// real-time video preview.
//
// # Philosophy
//
// "Drop frames, never queue. Latency > Completeness."
//
// A live preview shows NOW. A frame that arrives while the previous one is
// still being processed is not backlog to work through, it is the new
// truth. framepreview applies that philosophy to memory as well as time:
// buffers are recycled through a bounded FIFO pool instead of reallocated
// per frame, and redraw notifications coalesce so a slow display never
// accumulates a queue of stale signals.
//
// # Design Principles
//
//  1. Bounded pool: at most capacity buffers queued, capacity+1 in flight
//  2. Recycle, don't allocate: steady state reuses the same rasters (zero
//     allocations once the pool is warm)
//  3. One lock, whole raster: the slot lock covers producer copy-in AND
//     consumer read-out, so a reader can never observe a half-written frame
//  4. Coalesced signals: each subscriber holds at most one pending redraw;
//     extra publishes fold into it (latest frame wins)
//  5. Operational stats: allocation, reuse, discard, and coalescing
//     counters (health monitoring, not benchmarking)
//
// # Architecture
//
// The pipeline sits between a capture source and display sinks:
//
//	capture source → Pipeline → Display sinks (MJPEG, viewer, ...)
//	   (30fps)      BufferPool      Redraw channels
//	                SharedFrameSlot  Coalescing Policy
//
// Per frame, the producer step is:
//
//	acquire (reuse or allocate) → lock slot → copy + transform + publish
//	→ unlock → signal subscribers → release previous buffer to pool
//
// The pool hands back the oldest queued buffer when it is full and the
// dimensions still match; a resolution change discards stale buffers and
// allocates fresh ones, so mixed-size rasters never circulate.
//
// # Basic Usage
//
// Producer side (capture):
//
//	p := framepreview.New(framepreview.Config{})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	if err := p.Start(ctx, source.Frames()); err != nil {
//	    log.Fatalf("pipeline failed: %v", err)
//	}
//	defer p.Stop()
//
// Consumer side (display sink):
//
//	redraw, _ := p.Subscribe("display")
//	defer p.Unsubscribe("display")
//
//	for range redraw { // channel closes on Stop/Unsubscribe
//	    img, ok := p.Snapshot()
//	    if !ok {
//	        continue
//	    }
//	    draw(img)
//	}
//
// Sinks that want to skip the Snapshot copy can read in place:
//
//	p.View(func(w, h int, samples []byte) {
//	    encode(w, h, samples) // must not retain samples
//	})
//
// # Monitoring
//
// Check operational health with Stats():
//
//	stats := p.Stats()
//
//	// Steady state reuses buffers; growth in Allocated means churn
//	if stats.Pool.Allocated > uint64(stats.Pool.Capacity)+1 {
//	    log.Warn("pool churning", "allocated", stats.Pool.Allocated)
//	}
//
//	// Coalescing is healthy; it means the display skipped stale frames
//	for id, sub := range stats.Notifier.Subscribers {
//	    log.Info("sink", "id", id,
//	        "delivered", sub.Delivered, "coalesced", sub.Coalesced)
//	}
//
// # Drop And Coalesce Semantics
//
// Skipped work is EXPECTED and HEALTHY here:
//
//   - Coalesced signals: a 30fps source driving a 10fps sink folds ~20
//     signals/sec into pending ones. The sink always renders the latest
//     frame, never a backlog.
//   - Discarded buffers: a resolution change discards queued rasters of
//     the old size once each, then the pool re-stabilizes.
//   - Skipped frames: empty capture payloads are counted and dropped
//     without touching the slot.
//
// None of these are errors. They indicate latest-wins semantics working.
//
// # Locking Contract
//
// Frame bytes are copied into pool-owned buffers, and the same buffer
// memory is reused across frames. The slot lock therefore protects the
// BYTES, not just the pointer:
//
//   - Publisher: copy, transform, and pointer swap happen under one hold
//   - Snapshot/View: read entirely under the same lock
//   - View's fn MUST NOT retain the samples slice after returning
//
// Snapshot returns an *image.Gray that owns its pixels; callers may keep
// it across frames.
//
// # Thread Safety
//
// All Pipeline methods are safe for concurrent use:
//
//   - Ingest(): safe for concurrent calls (typically 1 producer)
//   - Snapshot()/View(): safe for concurrent calls (N sinks)
//   - Subscribe()/Unsubscribe()/Stats(): safe for concurrent calls
//
// A subscriber's redraw channel: receive from a single sink goroutine.
//
// # Lifecycle
//
//  1. New(): create pipeline (zero Config is valid)
//  2. Start(ctx, frames): spawn ingest loop, or call Ingest() directly
//  3. Subscribe()/Snapshot(): normal operation
//  4. Stop(): cancel loop, wait for exit, close all redraw channels
//
// After Stop():
//   - Subscribe() returns ErrNotifierClosed
//   - Closed redraw channels tell sinks to exit their loops
//   - Snapshot()/View() still serve the last published frame
//
// # Module Context
//
//   - Bounded context: buffer recycling and preview fan-out only (not
//     capture, not encoding, not rendering)
//   - Dependencies: stdlib only (sources and sinks bring their own)
//   - Clients: capture sources (producer), sink + display code (consumers)
package framepreview
