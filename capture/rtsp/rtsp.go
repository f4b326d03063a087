// Package rtsp implements a GStreamer-backed RTSP camera source producing
// GRAY8 frames for the preview pipeline.
//
// The decode chain runs inside GStreamer; Go only copies mapped sample
// bytes into Frame values. Connection failures reconnect with exponential
// backoff up to a retry cap.
package rtsp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	framepreview "github.com/e7canasta/orion-frame-preview"
	"github.com/e7canasta/orion-frame-preview/capture"
)

// Config describes an RTSP camera source.
type Config struct {
	// URL is the rtsp:// endpoint. Required.
	URL string
	// Width and Height of the produced GRAY8 frames. Required.
	Width  int
	Height int
	// FPS is the target frame rate; videorate drops down to it. Default 15.
	FPS int
	// LatencyMS is the jitter buffer depth. Default 200.
	LatencyMS int
	// Source labels produced frames (Frame.SourceStream). Default "rtsp".
	Source string

	// MaxRetries bounds reconnection attempts. Default 5.
	MaxRetries int
	// RetryDelay is the initial backoff. Default 1s, doubling to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Source streams frames from an RTSP camera. It implements capture.Source.
type Source struct {
	cfg Config

	framesCh chan framepreview.Frame

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq           atomic.Uint64
	frameCount    atomic.Uint64
	framesDropped atomic.Uint64
	errorCount    atomic.Uint64
	reconnects    atomic.Uint64
	connected     atomic.Bool
	started       time.Time

	currentRetries int
}

var _ capture.Source = (*Source)(nil)

// New validates cfg and creates an RTSP source.
func New(cfg Config) (*Source, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rtsp: url is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("rtsp: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 15
	}
	if cfg.LatencyMS <= 0 {
		cfg.LatencyMS = 200
	}
	if cfg.Source == "" {
		cfg.Source = "rtsp"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = 30 * time.Second
	}

	return &Source{
		cfg:      cfg,
		framesCh: make(chan framepreview.Frame, 10),
	}, nil
}

// Start initializes GStreamer and runs the pipeline in a goroutine.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("rtsp: source already started")
	}

	gst.Init(nil)

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = time.Now()

	s.wg.Add(1)
	go s.run()

	slog.Info("rtsp source starting",
		"url", s.cfg.URL,
		"resolution", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		"target_fps", s.cfg.FPS,
	)

	return nil
}

// Frames returns the channel of decoded frames. Closed when the run loop
// exits (Stop, context cancel, or retries exhausted).
func (s *Source) Frames() <-chan framepreview.Frame {
	return s.framesCh
}

// Stop cancels the pipeline and waits for the run loop, bounded by a
// timeout in case GStreamer teardown wedges.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	slog.Info("rtsp source stopping")
	s.cancel()
	s.cancel = nil

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("rtsp source stopped",
			"frames_received", s.frameCount.Load(),
			"reconnects", s.reconnects.Load(),
			"uptime", time.Since(s.started),
		)
	case <-time.After(3 * time.Second):
		slog.Warn("rtsp source stop timeout, pipeline may still be tearing down")
	}

	return nil
}

// Stats returns source statistics.
func (s *Source) Stats() capture.Stats {
	frameCount := s.frameCount.Load()

	var fpsReal float64
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started.IsZero() {
		if uptime := time.Since(started).Seconds(); uptime > 0 {
			fpsReal = float64(frameCount) / uptime
		}
	}

	return capture.Stats{
		FrameCount:   frameCount,
		Dropped:      s.framesDropped.Load(),
		Errors:       s.errorCount.Load(),
		Reconnects:   s.reconnects.Load(),
		FPSTarget:    s.cfg.FPS,
		FPSReal:      fpsReal,
		SourceStream: s.cfg.Source,
		Resolution:   fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height),
		IsConnected:  s.connected.Load(),
	}
}

// run owns the connect/stream/reconnect cycle until the context ends or
// retries are exhausted.
func (s *Source) run() {
	defer s.wg.Done()
	defer close(s.framesCh)
	defer s.connected.Store(false)

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.connectAndStream(); err != nil {
			slog.Error("rtsp pipeline error", "error", err)
		}
		s.connected.Store(false)

		select {
		case <-s.ctx.Done():
			return
		default:
		}

		s.currentRetries++
		s.reconnects.Add(1)

		if s.currentRetries > s.cfg.MaxRetries {
			slog.Error("rtsp max retries exceeded, stopping source",
				"retries", s.currentRetries,
				"max_retries", s.cfg.MaxRetries,
			)
			return
		}

		delay := s.backoff(s.currentRetries)
		slog.Warn("reconnecting to rtsp stream",
			"retry", s.currentRetries,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
	}
}

// backoff doubles the base delay per attempt, capped at MaxRetryDelay.
func (s *Source) backoff(attempt int) time.Duration {
	delay := s.cfg.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > s.cfg.MaxRetryDelay {
		delay = s.cfg.MaxRetryDelay
	}
	return delay
}

// connectAndStream builds a pipeline, plays it, and pumps bus messages
// until EOS, error, or cancellation.
func (s *Source) connectAndStream() error {
	pipeline, err := buildPipeline(pipelineConfig{
		url:       s.cfg.URL,
		width:     s.cfg.Width,
		height:    s.cfg.Height,
		fps:       s.cfg.FPS,
		latencyMS: s.cfg.LatencyMS,
	}, s.onNewSample)
	if err != nil {
		return err
	}
	defer pipeline.SetState(gst.StateNull)

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("set pipeline playing: %w", err)
	}

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-s.ctx.Done():
			return nil
		default:
		}

		// Short poll keeps shutdown responsive.
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			slog.Info("rtsp end of stream")
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			s.errorCount.Add(1)
			slog.Error("rtsp pipeline error",
				"category", classifyGstError(gerr).String(),
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return fmt.Errorf("pipeline error: %w", gerr)

		case gst.MessageStateChanged:
			if msg.Source() == pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePlaying {
					s.currentRetries = 0
					s.connected.Store(true)
					slog.Info("rtsp stream connected")
				}
			}
		}
	}
}

// onNewSample copies a decoded GRAY8 sample into a Frame and forwards it
// without blocking; a lagging consumer loses frames.
func (s *Source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowError
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	defer buffer.Unmap()

	if len(data) == 0 {
		return gst.FlowOK
	}

	// A stride-padded or truncated raster would corrupt the preview;
	// count it and skip rather than forward bad geometry.
	if len(data) != s.cfg.Width*s.cfg.Height {
		s.errorCount.Add(1)
		slog.Debug("skipping sample with unexpected size",
			"got", len(data),
			"want", s.cfg.Width*s.cfg.Height,
		)
		return gst.FlowOK
	}

	frameData := make([]byte, len(data))
	copy(frameData, data)

	frame := framepreview.Frame{
		Seq:          s.seq.Add(1),
		Timestamp:    time.Now(),
		Width:        s.cfg.Width,
		Height:       s.cfg.Height,
		Data:         frameData,
		SourceStream: s.cfg.Source,
		TraceID:      uuid.New().String(),
	}

	select {
	case s.framesCh <- frame:
		s.frameCount.Add(1)
	default:
		s.framesDropped.Add(1)
		slog.Debug("dropping frame, channel full",
			"seq", frame.Seq,
			"trace_id", frame.TraceID)
	}

	return gst.FlowOK
}
