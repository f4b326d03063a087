// Package health serves liveness and readiness endpoints for previewd.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	framepreview "github.com/e7canasta/orion-frame-preview"
)

// Probes supplies the live signals the readiness check inspects. Nil
// functions are treated as "not applicable" rather than failing.
type Probes struct {
	// SourceConnected reports whether the frame source is producing.
	SourceConnected func() bool
	// TelemetryConnected reports broker state; nil when telemetry is off.
	TelemetryConnected func() bool
	// PipelineStats returns the pipeline snapshot.
	PipelineStats func() framepreview.Stats
}

// Status is the readiness payload.
type Status struct {
	Status             string `json:"status"` // healthy, degraded, unhealthy
	UptimeSeconds      int64  `json:"uptime_seconds"`
	SourceConnected    bool   `json:"source_connected"`
	TelemetryConnected *bool  `json:"telemetry_connected,omitempty"`
	FramesIn           uint64 `json:"frames_in"`
	PublishedSeq       uint64 `json:"published_seq"`
	Subscribers        int    `json:"subscribers"`
}

// Handler exposes Liveness and Readiness HTTP handlers.
type Handler struct {
	started time.Time
	probes  Probes
}

// New creates a health handler; uptime counts from this call.
func New(probes Probes) *Handler {
	return &Handler{
		started: time.Now(),
		probes:  probes,
	}
}

// Check evaluates the probes into a Status.
//
// healthy:   source producing, telemetry (if configured) connected
// degraded:  frames have flowed but a dependency is currently down
// unhealthy: source down and nothing ever published
func (h *Handler) Check() Status {
	status := Status{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}

	if h.probes.SourceConnected != nil {
		status.SourceConnected = h.probes.SourceConnected()
	}
	if h.probes.TelemetryConnected != nil {
		connected := h.probes.TelemetryConnected()
		status.TelemetryConnected = &connected
	}
	if h.probes.PipelineStats != nil {
		stats := h.probes.PipelineStats()
		status.FramesIn = stats.FramesIn
		status.PublishedSeq = stats.PublishedSeq
		status.Subscribers = len(stats.Notifier.Subscribers)
	}

	if !status.SourceConnected {
		if status.PublishedSeq == 0 {
			status.Status = "unhealthy"
		} else {
			status.Status = "degraded"
		}
	} else if status.TelemetryConnected != nil && !*status.TelemetryConnected {
		status.Status = "degraded"
	}

	return status
}

// Liveness handles /health: 200 whenever the process can respond.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(h.started).Seconds()),
	})
}

// Readiness handles /readiness: 503 while unhealthy, 200 otherwise
// (degraded still serves).
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := h.Check()

	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}
