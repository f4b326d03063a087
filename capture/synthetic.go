package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	framepreview "github.com/e7canasta/orion-frame-preview"
)

// SyntheticConfig configures a pattern-generator source.
type SyntheticConfig struct {
	Width  int
	Height int
	FPS    int
	// Source labels the produced frames (Frame.SourceStream).
	Source string
	// Pattern fills each frame; nil selects FillGradient.
	Pattern Pattern
}

// Synthetic generates GRAY8 test-pattern frames at a fixed rate without any
// camera hardware. It implements Source.
type Synthetic struct {
	width   int
	height  int
	fps     int
	source  string
	pattern Pattern

	framesCh chan framepreview.Frame
	stopCh   chan struct{}
	wg       sync.WaitGroup

	seq           atomic.Uint64
	framesEmitted atomic.Uint64
	framesDropped atomic.Uint64

	mu        sync.Mutex
	isRunning bool
	startTime time.Time
}

// NewSynthetic creates a synthetic source. Zero or negative config fields
// fall back to 640x480 @ 15fps with the gradient pattern.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 15
	}
	if cfg.Source == "" {
		cfg.Source = "synthetic"
	}
	if cfg.Pattern == nil {
		cfg.Pattern = FillGradient
	}
	return &Synthetic{
		width:    cfg.Width,
		height:   cfg.Height,
		fps:      cfg.FPS,
		source:   cfg.Source,
		pattern:  cfg.Pattern,
		framesCh: make(chan framepreview.Frame, 10),
		stopCh:   make(chan struct{}),
	}
}

// Start begins generating frames.
func (s *Synthetic) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("synthetic source already running")
	}
	s.isRunning = true
	s.startTime = time.Now()
	s.mu.Unlock()

	slog.Info("synthetic source starting",
		"width", s.width,
		"height", s.height,
		"fps", s.fps,
		"source", s.source,
	)

	s.wg.Add(1)
	go s.generateFrames(ctx)

	return nil
}

// Frames returns the frames channel.
func (s *Synthetic) Frames() <-chan framepreview.Frame {
	return s.framesCh
}

// Stop stops the source and closes the frames channel. Idempotent.
func (s *Synthetic) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	slog.Info("synthetic source stopping")

	close(s.stopCh)
	s.wg.Wait()
	close(s.framesCh)

	slog.Info("synthetic source stopped",
		"frames_emitted", s.framesEmitted.Load(),
		"frames_dropped", s.framesDropped.Load(),
	)

	return nil
}

// Stats returns source statistics.
func (s *Synthetic) Stats() Stats {
	s.mu.Lock()
	running := s.isRunning
	started := s.startTime
	s.mu.Unlock()

	emitted := s.framesEmitted.Load()
	var fpsReal float64
	if running && emitted > 0 {
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			fpsReal = float64(emitted) / elapsed
		}
	}

	return Stats{
		FrameCount:   emitted,
		Dropped:      s.framesDropped.Load(),
		FPSTarget:    s.fps,
		FPSReal:      fpsReal,
		SourceStream: s.source,
		Resolution:   fmt.Sprintf("%dx%d", s.width, s.height),
		IsConnected:  running,
	}
}

// generateFrames emits pattern frames at the target FPS until stopped.
func (s *Synthetic) generateFrames(ctx context.Context) {
	defer s.wg.Done()

	frameDuration := time.Second / time.Duration(s.fps)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	slog.Debug("synthetic generator started", "frame_duration", frameDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			frame := s.createFrame()
			// Non-blocking send: a lagging consumer loses frames,
			// it never stalls the generator.
			select {
			case s.framesCh <- frame:
				s.framesEmitted.Add(1)
			default:
				s.framesDropped.Add(1)
				slog.Debug("dropping frame, channel full",
					"seq", frame.Seq,
					"trace_id", frame.TraceID)
			}
		}
	}
}

// createFrame renders the next pattern frame.
func (s *Synthetic) createFrame() framepreview.Frame {
	seq := s.seq.Add(1)

	data := make([]byte, s.width*s.height)
	s.pattern(data, s.width, s.height, seq)

	return framepreview.Frame{
		Seq:          seq,
		Timestamp:    time.Now(),
		Width:        s.width,
		Height:       s.height,
		Data:         data,
		SourceStream: s.source,
		TraceID:      uuid.New().String(),
	}
}
