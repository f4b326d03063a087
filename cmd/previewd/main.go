// previewd runs the frame preview service: a capture source feeding the
// recycling pipeline, served over HTTP as an MJPEG stream with health and
// stats endpoints, optionally publishing stats to MQTT.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	framepreview "github.com/e7canasta/orion-frame-preview"
	"github.com/e7canasta/orion-frame-preview/capture"
	"github.com/e7canasta/orion-frame-preview/capture/rtsp"
	"github.com/e7canasta/orion-frame-preview/internal/config"
	"github.com/e7canasta/orion-frame-preview/internal/health"
	"github.com/e7canasta/orion-frame-preview/internal/telemetry"
	"github.com/e7canasta/orion-frame-preview/sink"
)

const statsLogInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to configuration file (empty: built-in synthetic config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Logging, *debug)

	slog.Info("starting previewd",
		"instance_id", cfg.InstanceID,
		"config", *configPath,
		"source", cfg.Source.Type,
		"debug", *debug,
	)

	if err := run(cfg); err != nil {
		slog.Error("previewd failed", "error", err)
		os.Exit(1)
	}

	slog.Info("previewd stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupLogger(cfg config.LoggingConfig, debug bool) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildSource(cfg *config.Config) (capture.Source, error) {
	switch cfg.Source.Type {
	case "synthetic":
		pattern, ok := capture.PatternByName(cfg.Source.Pattern)
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q", cfg.Source.Pattern)
		}
		return capture.NewSynthetic(capture.SyntheticConfig{
			Width:   cfg.Source.Width,
			Height:  cfg.Source.Height,
			FPS:     cfg.Source.FPS,
			Source:  "synthetic",
			Pattern: pattern,
		}), nil

	case "rtsp":
		return rtsp.New(rtsp.Config{
			URL:       cfg.Source.RTSP.URL,
			Width:     cfg.Source.Width,
			Height:    cfg.Source.Height,
			FPS:       cfg.Source.FPS,
			LatencyMS: cfg.Source.RTSP.LatencyMS,
			Source:    "rtsp",
		})

	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
}

func buildTransform(name string) framepreview.Transform {
	if name == "identity" {
		return framepreview.Identity
	}
	return framepreview.Invert
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := buildSource(cfg)
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}

	pipeline := framepreview.New(framepreview.Config{
		PoolCapacity: cfg.Preview.PoolCapacity,
		Transform:    buildTransform(cfg.Preview.Transform),
	})

	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("start source: %w", err)
	}
	if err := pipeline.Start(ctx, source.Frames()); err != nil {
		source.Stop()
		return fmt.Errorf("start pipeline: %w", err)
	}

	// Telemetry is optional; a broker that is down at boot is not fatal,
	// paho keeps retrying in the background.
	var emitter *telemetry.Emitter
	if cfg.Telemetry.Enabled {
		emitter = telemetry.NewEmitter(cfg.Telemetry)
		if err := emitter.Connect(ctx); err != nil {
			slog.Warn("telemetry broker unavailable, continuing without it", "error", err)
		}
	}

	streamer := sink.NewMJPEG(pipeline, sink.MJPEGConfig{Quality: cfg.Preview.JPEGQuality})

	probes := health.Probes{
		SourceConnected: func() bool { return source.Stats().IsConnected },
		PipelineStats:   pipeline.Stats,
	}
	if emitter != nil {
		probes.TelemetryConnected = emitter.IsConnected
	}
	healthHandler := health.New(probes)

	mux := http.NewServeMux()
	mux.Handle("/stream", streamer)
	mux.HandleFunc("/health", healthHandler.Liveness)
	mux.HandleFunc("/readiness", healthHandler.Readiness)
	mux.HandleFunc("/stats", statsHandler(cfg.InstanceID, pipeline, source, streamer, emitter))

	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}

	slog.Info("http server listening",
		"addr", cfg.HTTP.Addr,
		"endpoints", []string{"/stream", "/health", "/readiness", "/stats"},
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Ordered teardown once a signal lands or a component fails: stop the
	// producer, drain the pipeline (closing redraw channels unblocks the
	// streaming handlers), then shut the listener down.
	g.Go(func() error {
		<-gctx.Done()

		shutdownTimeout := time.Duration(cfg.ShutdownTimeoutS) * time.Second
		slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

		source.Stop()
		pipeline.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if emitter != nil {
		interval := time.Duration(cfg.Telemetry.IntervalS) * time.Second
		g.Go(func() error {
			telemetryLoop(gctx, cfg.InstanceID, interval, emitter, pipeline, source, streamer)
			return nil
		})
	}

	g.Go(func() error {
		statsLoop(gctx, pipeline, source, streamer)
		return nil
	})

	err = g.Wait()

	if emitter != nil {
		emitter.Disconnect()
	}

	return err
}

// statsPayload is the JSON shape served on /stats and published to MQTT.
type statsPayload struct {
	InstanceID string             `json:"instance_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Pipeline   framepreview.Stats `json:"pipeline"`
	Source     capture.Stats      `json:"source"`
	Streamer   sink.MJPEGStats    `json:"streamer"`
	Telemetry  *telemetry.Stats   `json:"telemetry,omitempty"`
}

func collectStats(instanceID string, pipeline framepreview.Pipeline, source capture.Source, streamer *sink.MJPEG, emitter *telemetry.Emitter) statsPayload {
	payload := statsPayload{
		InstanceID: instanceID,
		Timestamp:  time.Now().UTC(),
		Pipeline:   pipeline.Stats(),
		Source:     source.Stats(),
		Streamer:   streamer.Stats(),
	}
	if emitter != nil {
		stats := emitter.Stats()
		payload.Telemetry = &stats
	}
	return payload
}

func statsHandler(instanceID string, pipeline framepreview.Pipeline, source capture.Source, streamer *sink.MJPEG, emitter *telemetry.Emitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(collectStats(instanceID, pipeline, source, streamer, emitter))
	}
}

// telemetryLoop publishes a stats snapshot every interval until ctx ends.
func telemetryLoop(ctx context.Context, instanceID string, interval time.Duration, emitter *telemetry.Emitter, pipeline framepreview.Pipeline, source capture.Source, streamer *sink.MJPEG) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			payload, err := json.Marshal(collectStats(instanceID, pipeline, source, streamer, nil))
			if err != nil {
				slog.Error("failed to marshal stats", "error", err)
				continue
			}
			if err := emitter.Publish(payload); err != nil {
				slog.Warn("stats publish failed", "error", err)
			}
		}
	}
}

// statsLoop logs operational counters periodically.
func statsLoop(ctx context.Context, pipeline framepreview.Pipeline, source capture.Source, streamer *sink.MJPEG) {
	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ps := pipeline.Stats()
			ss := source.Stats()
			ms := streamer.Stats()
			slog.Info("pipeline stats",
				"frames_in", ps.FramesIn,
				"published_seq", ps.PublishedSeq,
				"pool_allocated", ps.Pool.Allocated,
				"pool_reused", ps.Pool.Reused,
				"pool_discarded", ps.Pool.Discarded,
				"source_fps", fmt.Sprintf("%.1f", ss.FPSReal),
				"source_dropped", ss.Dropped,
				"clients", ms.ActiveClients,
				"frames_sent", ms.FramesSent,
			)
		}
	}
}
