package rtsp

import "testing"

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Width: 640, Height: 480}); err == nil {
		t.Error("New() accepted empty URL")
	}
	if _, err := New(Config{URL: "rtsp://cam", Width: 0, Height: 480}); err == nil {
		t.Error("New() accepted zero width")
	}

	s, err := New(Config{URL: "rtsp://cam", Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	stats := s.Stats()
	if stats.FPSTarget != 15 {
		t.Errorf("default FPSTarget = %d, want 15", stats.FPSTarget)
	}
	if stats.Resolution != "320x240" {
		t.Errorf("Resolution = %q, want 320x240", stats.Resolution)
	}
	if stats.SourceStream != "rtsp" {
		t.Errorf("default SourceStream = %q, want rtsp", stats.SourceStream)
	}
}

func TestBackoffSchedule(t *testing.T) {
	s, err := New(Config{URL: "rtsp://cam.local/stream", Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	want := []string{"1s", "2s", "4s", "8s", "16s"}
	for i, w := range want {
		if got := s.backoff(i + 1).String(); got != w {
			t.Errorf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	// Capped at 30s regardless of attempt count.
	if got := s.backoff(10); got.String() != "30s" {
		t.Errorf("backoff(10) = %s, want 30s", got)
	}
}

func TestGrayCaps(t *testing.T) {
	got := grayCaps(640, 480, 15)
	want := "video/x-raw,format=GRAY8,width=640,height=480,framerate=15/1"
	if got != want {
		t.Errorf("grayCaps = %q, want %q", got, want)
	}
}
