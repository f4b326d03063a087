// Package capture provides video frame sources for the preview pipeline.
//
// A Source produces framepreview.Frame values on a channel at a target
// rate. Sends are non-blocking: when the consumer lags, frames are dropped
// at the source (latest-wins, never queue). Two implementations ship here:
// Synthetic (pattern generator, no hardware) and, under capture/rtsp, an
// RTSP camera source built on GStreamer.
package capture

import (
	"context"

	framepreview "github.com/e7canasta/orion-frame-preview"
)

// Source provides a stream of video frames.
type Source interface {
	// Start begins producing frames.
	Start(ctx context.Context) error
	// Frames returns the channel of produced frames. It is closed by Stop.
	Frames() <-chan framepreview.Frame
	// Stop stops the source and closes the frames channel.
	Stop() error
	// Stats returns source statistics.
	Stats() Stats
}

// Stats is an operational snapshot of a running source.
type Stats struct {
	// FrameCount is the total number of frames produced.
	FrameCount uint64 `json:"frame_count"`
	// Dropped counts frames discarded because the consumer lagged.
	Dropped uint64 `json:"dropped"`
	// Errors counts decode or transport failures.
	Errors uint64 `json:"errors"`
	// Reconnects counts transport reconnection attempts.
	Reconnects uint64 `json:"reconnects"`
	// FPSTarget is the configured frame rate.
	FPSTarget int `json:"fps_target"`
	// FPSReal is the measured frame rate since Start.
	FPSReal float64 `json:"fps_real"`
	// SourceStream identifies the stream this source produces.
	SourceStream string `json:"source_stream"`
	// Resolution is "WxH" of produced frames.
	Resolution string `json:"resolution"`
	// IsConnected reports whether the source is currently producing.
	IsConnected bool `json:"is_connected"`
}
