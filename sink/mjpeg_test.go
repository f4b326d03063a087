package sink

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeSource struct {
	ch     chan struct{}
	img    *image.Gray
	subErr error
}

func (f *fakeSource) Subscribe(id string) (<-chan struct{}, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.ch, nil
}

func (f *fakeSource) Unsubscribe(id string) error { return nil }

func (f *fakeSource) Snapshot() (*image.Gray, bool) {
	if f.img == nil {
		return nil, false
	}
	return f.img, true
}

func uniformGray(w, h int, v byte) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestMJPEGStreamsParts(t *testing.T) {
	src := &fakeSource{
		ch:  make(chan struct{}, 1),
		img: uniformGray(32, 24, 0x80),
	}
	streamer := NewMJPEG(src, MJPEGConfig{Quality: 70})

	server := httptest.NewServer(streamer)
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		t.Fatalf("bad content type %q: %v", resp.Header.Get("Content-Type"), err)
	}

	mr := multipart.NewReader(resp.Body, params["boundary"])

	// Part 1 arrives immediately (first paint); part 2 after a redraw signal.
	src.ch <- struct{}{}

	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("NextPart(%d) failed: %v", i, err)
		}
		if ct := part.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Fatalf("part %d Content-Type = %q, want image/jpeg", i, ct)
		}
		img, err := jpeg.Decode(part)
		part.Close()
		if err != nil {
			t.Fatalf("part %d did not decode: %v", i, err)
		}
		if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
			t.Fatalf("part %d size %v, want 32x24", i, img.Bounds())
		}
	}

	// Closing the redraw channel (pipeline stopped) must end the stream.
	close(src.ch)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := mr.NextPart(); err != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stream did not end after redraw channel closed")
		}
	}

	if sent := streamer.Stats().FramesSent; sent < 2 {
		t.Errorf("FramesSent = %d, want >= 2", sent)
	}
}

func TestMJPEGUnavailableWhenSubscribeFails(t *testing.T) {
	src := &fakeSource{subErr: errors.New("closed")}
	streamer := NewMJPEG(src, MJPEGConfig{})

	rec := httptest.NewRecorder()
	streamer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMJPEGKeepAliveResendsFrame(t *testing.T) {
	src := &fakeSource{
		ch:  make(chan struct{}),
		img: uniformGray(8, 8, 0x10),
	}
	streamer := NewMJPEG(src, MJPEGConfig{KeepAlive: 50 * time.Millisecond})

	server := httptest.NewServer(streamer)
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("bad content type: %v", err)
	}
	mr := multipart.NewReader(resp.Body, params["boundary"])

	// No redraw signals at all: first paint plus at least one keepalive.
	for i := 0; i < 2; i++ {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("NextPart(%d) failed: %v", i, err)
		}
		if _, err := io.Copy(io.Discard, part); err != nil {
			t.Fatalf("read part %d: %v", i, err)
		}
		part.Close()
	}
}

func TestMJPEGNoFrameYet(t *testing.T) {
	src := &fakeSource{ch: make(chan struct{})}
	streamer := NewMJPEG(src, MJPEGConfig{})

	server := httptest.NewServer(streamer)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatalf("bad content type: %v", err)
	}

	// Stream stays open but sends nothing until a frame exists; the read
	// times out with zero parts rather than with a malformed one.
	mr := multipart.NewReader(resp.Body, params["boundary"])
	if _, err := mr.NextPart(); err == nil {
		t.Error("unexpected part before any published frame")
	}
}
