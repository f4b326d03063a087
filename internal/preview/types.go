package preview

import "time"

// DefaultPoolCapacity bounds the recycle queue when Config leaves
// PoolCapacity unset. Three buffers cover the steady-state rotation:
// one being written, one visible to the display, one in reserve.
const DefaultPoolCapacity = 3

// Frame is the capture envelope delivered by a source: one raster image
// plus its metadata.
//
// Data is handed over by the source and copied out of during ingest; the
// pipeline never retains it past the Ingest call.
type Frame struct {
	// Seq is the source-assigned sequence number (monotonic per source).
	Seq uint64

	// Timestamp is when the frame was captured (source clock).
	Timestamp time.Time

	// Width of the raster in pixels
	Width int

	// Height of the raster in pixels
	Height int

	// Data holds Width×Height single-byte samples, row-major,
	// 8-bit luminance-equivalent.
	Data []byte

	// SourceStream identifies the producing source ("synthetic", "rtsp-lq", ...)
	SourceStream string

	// TraceID is a unique identifier for correlating a frame across the pipeline
	TraceID string
}

// Config parametrizes a Pipeline.
type Config struct {
	// PoolCapacity bounds the buffer recycle queue.
	// Zero or negative falls back to DefaultPoolCapacity.
	PoolCapacity int

	// Transform is the per-sample function applied during ingest.
	// Nil falls back to Invert. Pass Identity for a plain copy.
	Transform Transform
}
