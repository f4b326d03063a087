package rtsp

import "testing"

func TestClassifyMessage(t *testing.T) {
	cases := []struct {
		name  string
		err   string
		debug string
		want  ErrorCategory
	}{
		{"connection refused", "Could not connect to server", "tcp connect failed", ErrCategoryNetwork},
		{"timeout", "Operation timeout", "", ErrCategoryNetwork},
		{"dns", "could not resolve host", "", ErrCategoryNetwork},
		{"unauthorized", "Unauthorized (401)", "", ErrCategoryAuth},
		{"forbidden beats codec", "403 Forbidden while negotiating", "", ErrCategoryAuth},
		{"missing decoder", "no decoder available", "missing plugin avdec_h264", ErrCategoryCodec},
		{"caps", "streaming stopped", "caps negotiation failed", ErrCategoryCodec},
		{"unclassified", "internal data stream error", "", ErrCategoryUnknown},
		{"empty", "", "", ErrCategoryUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyMessage(tc.err, tc.debug); got != tc.want {
				t.Errorf("classifyMessage(%q, %q) = %v, want %v", tc.err, tc.debug, got, tc.want)
			}
		})
	}
}

func TestErrorCategoryString(t *testing.T) {
	if ErrCategoryNetwork.String() != "network" || ErrCategoryUnknown.String() != "unknown" {
		t.Error("ErrorCategory.String() mismatch")
	}
	if ErrorCategory(42).String() != "unknown" {
		t.Error("out-of-range category should stringify as unknown")
	}
}
