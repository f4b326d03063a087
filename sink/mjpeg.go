// Package sink provides display consumers for the preview pipeline.
//
// Sinks subscribe to the pipeline's coalesced redraw channel and pull the
// latest frame on each signal, so a slow client skips frames instead of
// accumulating them.
package sink

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// FrameSource is the slice of the pipeline a sink needs: redraw
// subscription plus latest-frame access. framepreview.Pipeline satisfies
// it.
type FrameSource interface {
	Subscribe(id string) (<-chan struct{}, error)
	Unsubscribe(id string) error
	Snapshot() (*image.Gray, bool)
}

// MJPEGConfig tunes the HTTP streamer.
type MJPEGConfig struct {
	// Quality is the JPEG quality (1-100). Default 80.
	Quality int
	// KeepAlive re-sends the current frame when no publish happened for
	// this long, so proxies don't drop the connection. Default 5s.
	KeepAlive time.Duration
}

// MJPEGStats is an operational snapshot of the streamer.
type MJPEGStats struct {
	ActiveClients int64  `json:"active_clients"`
	FramesSent    uint64 `json:"frames_sent"`
	EncodeErrors  uint64 `json:"encode_errors"`
}

// MJPEG streams the pipeline's latest frame as multipart/x-mixed-replace
// JPEG parts, viewable directly in a browser. It implements http.Handler;
// each connected client gets its own subscriber and goroutine.
type MJPEG struct {
	source    FrameSource
	quality   int
	keepAlive time.Duration

	activeClients atomic.Int64
	framesSent    atomic.Uint64
	encodeErrors  atomic.Uint64
}

// NewMJPEG creates an MJPEG streamer over source.
func NewMJPEG(source FrameSource, cfg MJPEGConfig) *MJPEG {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 80
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 5 * time.Second
	}
	return &MJPEG{
		source:    source,
		quality:   cfg.Quality,
		keepAlive: cfg.KeepAlive,
	}
}

// Stats returns streamer statistics.
func (m *MJPEG) Stats() MJPEGStats {
	return MJPEGStats{
		ActiveClients: m.activeClients.Load(),
		FramesSent:    m.framesSent.Load(),
		EncodeErrors:  m.encodeErrors.Load(),
	}
}

// ServeHTTP streams frames to one client until it disconnects or the
// pipeline stops (redraw channel closed).
func (m *MJPEG) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := "mjpeg-" + uuid.New().String()

	redraw, err := m.source.Subscribe(clientID)
	if err != nil {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer m.source.Unsubscribe(clientID)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")
	w.WriteHeader(http.StatusOK)

	m.activeClients.Add(1)
	defer m.activeClients.Add(-1)

	slog.Info("mjpeg client connected", "client", clientID, "remote", r.RemoteAddr)
	defer slog.Info("mjpeg client disconnected", "client", clientID, "remote", r.RemoteAddr)

	var buf bytes.Buffer

	// First paint: whatever is currently published, without waiting for
	// the next signal.
	if err := m.sendFrame(mw, &buf); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(m.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case _, open := <-redraw:
			if !open {
				return
			}
			if err := m.sendFrame(mw, &buf); err != nil {
				return
			}
			flusher.Flush()
			keepAlive.Reset(m.keepAlive)

		case <-keepAlive.C:
			if err := m.sendFrame(mw, &buf); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// sendFrame snapshots, encodes, and writes one multipart JPEG part.
// A pipeline with no published frame yet is not an error; the part is
// simply skipped.
func (m *MJPEG) sendFrame(mw *multipart.Writer, buf *bytes.Buffer) error {
	img, ok := m.source.Snapshot()
	if !ok {
		return nil
	}

	buf.Reset()
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: m.quality}); err != nil {
		m.encodeErrors.Add(1)
		return fmt.Errorf("encode frame: %w", err)
	}

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":   {"image/jpeg"},
		"Content-Length": {strconv.Itoa(buf.Len())},
	})
	if err != nil {
		return err
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		return err
	}

	m.framesSent.Add(1)
	return nil
}
