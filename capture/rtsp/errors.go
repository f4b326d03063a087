package rtsp

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer bus errors for logging and stats.
type ErrorCategory int

const (
	// ErrCategoryNetwork covers connection, timeout, and DNS failures.
	// Reconnecting usually helps.
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec covers decode and caps-negotiation failures.
	// Reconnecting rarely helps.
	ErrCategoryCodec
	// ErrCategoryAuth covers credential failures.
	ErrCategoryAuth
	// ErrCategoryUnknown covers everything else.
	ErrCategoryUnknown
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// classifyGstError categorizes a GStreamer bus error.
// go-gst's GError exposes no domain, so this matches message text.
func classifyGstError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

func classifyMessage(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg) + " " + strings.ToLower(debugStr)

	// Most specific first: auth, then codec, then network.
	for _, kw := range []string{"unauthorized", "401", "403", "forbidden", "authentication", "credentials"} {
		if strings.Contains(combined, kw) {
			return ErrCategoryAuth
		}
	}
	for _, kw := range []string{"codec", "decode", "caps", "negotiat", "h264", "no decoder", "missing plugin"} {
		if strings.Contains(combined, kw) {
			return ErrCategoryCodec
		}
	}
	for _, kw := range []string{"connection", "timeout", "unreachable", "network", "resolve", "socket", "could not connect"} {
		if strings.Contains(combined, kw) {
			return ErrCategoryNetwork
		}
	}
	return ErrCategoryUnknown
}
