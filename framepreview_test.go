package framepreview_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	framepreview "github.com/e7canasta/orion-frame-preview"
)

func grayFrame(seq uint64, w, h int, fill byte) framepreview.Frame {
	data := make([]byte, w*h)
	for i := range data {
		data[i] = fill
	}
	return framepreview.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		Data:      data,
	}
}

// --- Test 1: End-To-End Publish/Redraw/Snapshot ---

// TestEndToEndPreview validates the full producer→consumer path through the
// public API.
//
// Contract:
//   - Ingest copies and transforms the frame into a pool buffer
//   - Each publish signals subscribed sinks exactly once (no pending signal)
//   - Snapshot returns the transformed pixels of the latest publish
//
// Scenario:
//  1. Subscribe a display sink
//  2. Ingest a uniform 0x20 frame
//  3. Wait for the redraw signal
//  4. Snapshot and assert every pixel is 0xDF (inverted 0x20)
func TestEndToEndPreview(t *testing.T) {
	p := framepreview.New(framepreview.Config{})
	defer p.Stop()

	redraw, err := p.Subscribe("display")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	if err := p.Ingest(grayFrame(1, 64, 48, 0x20)); err != nil {
		t.Fatalf("Ingest() failed: %v", err)
	}

	select {
	case <-redraw:
	case <-time.After(time.Second):
		t.Fatal("no redraw signal after Ingest()")
	}

	img, ok := p.Snapshot()
	if !ok {
		t.Fatal("Snapshot() reported no frame after publish")
	}
	if img.Rect.Dx() != 64 || img.Rect.Dy() != 48 {
		t.Fatalf("Snapshot() size = %dx%d, want 64x48", img.Rect.Dx(), img.Rect.Dy())
	}
	for i, px := range img.Pix {
		if px != 0xDF {
			t.Fatalf("pixel %d = %#02x, want inverted %#02x", i, px, byte(0xDF))
		}
	}

	t.Logf("✅ Ingest → redraw → Snapshot round trip (64x48, inverted)")
}

// --- Test 2: Start Consumes A Source Channel ---

// TestStartConsumesChannel validates the channel-driven lifecycle.
//
// Contract:
//   - Start() spawns the ingest loop; a second Start() returns ErrAlreadyStarted
//   - Frames sent to the channel become visible via Snapshot
//   - Stop() is idempotent and closes subscriber channels
//
// Scenario:
//  1. Start with a buffered source channel
//  2. Send two frames, poll Stats until both are counted
//  3. Assert second Start fails, then Stop twice
//  4. Assert the redraw channel is closed
func TestStartConsumesChannel(t *testing.T) {
	p := framepreview.New(framepreview.Config{PoolCapacity: 2})

	redraw, err := p.Subscribe("display")
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	frames := make(chan framepreview.Frame, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx, frames); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := p.Start(ctx, frames); !errors.Is(err, framepreview.ErrAlreadyStarted) {
		t.Fatalf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	frames <- grayFrame(1, 32, 32, 0x01)
	frames <- grayFrame(2, 32, 32, 0x02)

	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().FramesIn < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("ingest loop stalled: stats=%+v", p.Stats())
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() failed: %v", err)
	}

	// Drain pending signal; channel must end up closed.
	for {
		if _, open := <-redraw; !open {
			break
		}
	}

	t.Logf("✅ Start/Stop lifecycle with %d frames ingested", p.Stats().FramesIn)
}

// --- Test 3: Buffer Recycling Through The Public API ---

// TestSteadyStateRecycling validates that a warm pipeline stops allocating.
//
// Contract:
//   - Steady state at fixed dimensions allocates at most capacity+1 buffers
//   - Further publishes reuse pooled rasters
//
// Scenario:
//  1. Ingest 40 same-size frames
//  2. Assert Allocated ≤ capacity+1 and Reused covers the rest
func TestSteadyStateRecycling(t *testing.T) {
	const capacity = 3
	p := framepreview.New(framepreview.Config{PoolCapacity: capacity})
	defer p.Stop()

	for i := 0; i < 40; i++ {
		if err := p.Ingest(grayFrame(uint64(i+1), 80, 60, byte(i))); err != nil {
			t.Fatalf("Ingest(%d) failed: %v", i, err)
		}
	}

	stats := p.Stats()
	if stats.Pool.Allocated > capacity+1 {
		t.Errorf("Allocated = %d, want ≤ %d", stats.Pool.Allocated, capacity+1)
	}
	if stats.Pool.Allocated+stats.Pool.Reused != 40 {
		t.Errorf("Allocated+Reused = %d, want 40", stats.Pool.Allocated+stats.Pool.Reused)
	}

	t.Logf("✅ 40 publishes: %d allocated, %d reused", stats.Pool.Allocated, stats.Pool.Reused)
}

// --- Test 4: Concurrent Producer And Sinks ---

// TestConcurrentProducerAndSinks validates thread safety under load.
//
// Contract:
//   - Ingest, Snapshot, View, and Stats are safe to call concurrently
//   - Every observed frame is uniform (no torn reads through the public API)
//
// Scenario:
//  1. One producer goroutine ingests 500 uniform frames
//  2. Two sink goroutines snapshot/view on each redraw signal
//  3. Assert no torn frame was ever observed
func TestConcurrentProducerAndSinks(t *testing.T) {
	p := framepreview.New(framepreview.Config{PoolCapacity: 2})
	defer p.Stop()

	const frames = 500
	var wg sync.WaitGroup
	errCh := make(chan error, 4)
	ready := make(chan struct{}, 2)

	sink := func(id string, read func() error) {
		defer wg.Done()
		redraw, err := p.Subscribe(id)
		ready <- struct{}{}
		if err != nil {
			errCh <- err
			return
		}
		defer p.Unsubscribe(id)
		for {
			select {
			case _, open := <-redraw:
				if !open {
					return
				}
				if err := read(); err != nil {
					errCh <- err
					return
				}
			case <-time.After(2 * time.Second):
				return
			}
		}
	}

	wg.Add(1)
	go sink("snapshotter", func() error {
		img, ok := p.Snapshot()
		if !ok {
			return nil
		}
		first := img.Pix[0]
		for i, px := range img.Pix {
			if px != first {
				return fmt.Errorf("torn snapshot at pixel %d", i)
			}
		}
		return nil
	})

	wg.Add(1)
	go sink("viewer", func() error {
		var tornErr error
		p.View(func(w, h int, samples []byte) {
			first := samples[0]
			for _, px := range samples {
				if px != first {
					tornErr = errors.New("torn view")
					return
				}
			}
		})
		return tornErr
	})

	<-ready
	<-ready
	for i := 0; i < frames; i++ {
		if err := p.Ingest(grayFrame(uint64(i+1), 64, 64, byte(i%251))); err != nil {
			t.Fatalf("Ingest(%d) failed: %v", i, err)
		}
	}
	p.Stop()
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatalf("sink observed defect: %v", err)
	default:
	}

	t.Logf("✅ %d publishes against 2 concurrent sinks, no torn reads", frames)
}

// --- Test 5: Corrupt Envelope Rejection ---

// TestCorruptEnvelopeRejected validates defensive handling of bad metadata.
//
// Contract:
//   - Data length ≠ Width×Height returns ErrSizeMismatch
//   - The previously published frame stays intact
func TestCorruptEnvelopeRejected(t *testing.T) {
	p := framepreview.New(framepreview.Config{Transform: framepreview.Identity})
	defer p.Stop()

	if err := p.Ingest(grayFrame(1, 16, 16, 0xAA)); err != nil {
		t.Fatalf("Ingest() failed: %v", err)
	}

	bad := grayFrame(2, 16, 16, 0x00)
	bad.Data = bad.Data[:100] // lies about its size
	if err := p.Ingest(bad); !errors.Is(err, framepreview.ErrSizeMismatch) {
		t.Fatalf("Ingest(corrupt) = %v, want ErrSizeMismatch", err)
	}

	img, ok := p.Snapshot()
	if !ok || img.Pix[0] != 0xAA {
		t.Fatalf("slot disturbed by rejected frame: ok=%v", ok)
	}
	if got := p.Stats().SizeDefects; got != 1 {
		t.Errorf("SizeDefects = %d, want 1", got)
	}

	t.Logf("✅ Corrupt envelope rejected, previous frame preserved")
}

// --- Test 6: Transform Composition ---

// TestChainTransform validates Chain through the public constructor.
//
// Scenario: invert twice = identity, composed left to right.
func TestChainTransform(t *testing.T) {
	p := framepreview.New(framepreview.Config{
		Transform: framepreview.Chain(framepreview.Invert, framepreview.Invert),
	})
	defer p.Stop()

	if err := p.Ingest(grayFrame(1, 8, 8, 0x5C)); err != nil {
		t.Fatalf("Ingest() failed: %v", err)
	}
	img, ok := p.Snapshot()
	if !ok {
		t.Fatal("Snapshot() reported no frame")
	}
	if img.Pix[0] != 0x5C {
		t.Errorf("double invert = %#02x, want %#02x", img.Pix[0], byte(0x5C))
	}

	t.Logf("✅ Chain(Invert, Invert) is identity")
}
