// Package framepreview implements a recycling frame-buffer pipeline
// between a video capture source and a display consumer.
//
// Philosophy: "Drop frames, never queue. Latency > Completeness."
//
// Design:
//   - Bounded FIFO buffer pool (recycle instead of reallocate)
//   - One slot lock covering producer copy-in AND consumer read-out
//   - Coalesced fire-and-forget redraw signals (latest frame wins)
//   - Pluggable pure per-sample transform (invert by default)
package framepreview

import (
	"context"
	"image"

	"github.com/e7canasta/orion-frame-preview/internal/preview"
)

// Frame is re-exported from the internal package to avoid import cycles.
// See internal/preview/types.go for field documentation.
type Frame = preview.Frame

// Config is re-exported from the internal package.
// The zero value gives DefaultPoolCapacity and the Invert transform.
type Config = preview.Config

// Transform is a pure per-sample pixel function applied during ingest.
type Transform = preview.Transform

// ImageBuffer is re-exported so display sinks and tests can work with the
// raster type directly. See internal/preview/buffer.go.
type ImageBuffer = preview.ImageBuffer

// BufferPool is re-exported for callers embedding the recycling allocator
// without the full pipeline. See internal/preview/pool.go.
type BufferPool = preview.BufferPool

// Stats aliases for monitoring snapshots.
type (
	Stats           = preview.PipelineStats
	PoolStats       = preview.PoolStats
	NotifierStats   = preview.NotifierStats
	SubscriberStats = preview.SubscriberStats
)

// DefaultPoolCapacity is the recycle-queue bound used when Config leaves
// PoolCapacity unset.
const DefaultPoolCapacity = preview.DefaultPoolCapacity

// Sentinel errors, re-exported from the internal package.
var (
	ErrSizeMismatch       = preview.ErrSizeMismatch
	ErrAlreadyStarted     = preview.ErrAlreadyStarted
	ErrNilSource          = preview.ErrNilSource
	ErrSubscriberExists   = preview.ErrSubscriberExists
	ErrSubscriberNotFound = preview.ErrSubscriberNotFound
	ErrNotifierClosed     = preview.ErrNotifierClosed
)

// Pipeline is the public contract of the frame preview core.
//
// Lifecycle: New() → Start()/Ingest() → Snapshot()/View() → Stop().
// All methods are safe for concurrent use.
//
// Implementation is in internal/preview (hidden from clients).
type Pipeline interface {
	// Start spawns the ingest loop consuming frames from the given channel
	// until ctx is cancelled, Stop is called, or the channel closes.
	//
	// Single-shot: any call after the first successful one (or after Stop)
	// returns ErrAlreadyStarted. Sources that invoke the producer step
	// themselves can skip Start and call Ingest directly.
	Start(ctx context.Context, frames <-chan Frame) error

	// Stop cancels the ingest loop if one is running, waits for it to
	// exit, and closes every subscriber's redraw channel. Idempotent and
	// terminal; Snapshot/View keep serving the last published frame.
	Stop() error

	// Ingest runs the per-frame producer step synchronously:
	// acquire → locked copy+transform+publish → signal → release.
	//
	// Semantics:
	//   - Empty frame data: silent drop (counted), nil error
	//   - Data length ≠ Width×Height: ErrSizeMismatch, slot untouched
	//   - Never blocks on the consumer beyond the brief slot lock
	Ingest(frame Frame) error

	// Snapshot returns a displayable copy of the current frame taken under
	// the slot lock, or false before the first publish. The copy owns its
	// pixels; the caller may keep it indefinitely.
	Snapshot() (*image.Gray, bool)

	// View runs fn against the current frame's raw samples under the slot
	// lock, avoiding the Snapshot copy. fn must not retain the slice.
	// Reports false (fn not called) before the first publish.
	View(fn func(width, height int, samples []byte)) bool

	// Subscribe registers a display consumer and returns its coalesced
	// redraw channel: one pending signal at most, extra publishes fold
	// into it. The channel closes on Unsubscribe or Stop — a closed read
	// means the consumer should exit its redraw loop.
	Subscribe(id string) (<-chan struct{}, error)

	// Unsubscribe removes a display consumer and closes its channel.
	Unsubscribe(id string) error

	// Stats returns an operational snapshot (non-blocking).
	Stats() Stats
}

// New creates a Pipeline from cfg. The zero Config is valid.
//
// Lifecycle:
//  1. p := framepreview.New(framepreview.Config{})
//  2. p.Start(ctx, source.Frames())   // or p.Ingest(frame) per frame
//  3. redraw, _ := p.Subscribe("display")
//     for range redraw { img, _ := p.Snapshot(); draw(img) }
//  4. p.Stop()
func New(cfg Config) Pipeline {
	return preview.NewPipeline(cfg)
}

// NewBuffer allocates a width×height raster with every sample set to fill.
// Exposed for sinks and tests that construct rasters directly.
func NewBuffer(width, height int, fill byte) *ImageBuffer {
	return preview.NewImageBuffer(width, height, fill)
}

// NewPool creates a standalone recycling buffer pool.
func NewPool(capacity int) *BufferPool {
	return preview.NewBufferPool(capacity)
}

// Invert flips every bit of a sample: f(x) = x XOR 0xFF. The default
// pipeline transform; applying it twice restores the original.
func Invert(x byte) byte { return preview.Invert(x) }

// Identity returns the sample unchanged (a plain-copy pipeline).
func Identity(x byte) byte { return preview.Identity(x) }

// Chain composes transforms into one, applied left to right.
func Chain(fs ...Transform) Transform { return preview.Chain(fs...) }
