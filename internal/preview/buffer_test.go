package preview

import (
	"bytes"
	"errors"
	"testing"
)

// TestNewImageBufferFill verifies dimensions and fill value.
func TestNewImageBufferFill(t *testing.T) {
	buf := NewImageBuffer(4, 3, 0x7F)

	if buf.Width() != 4 || buf.Height() != 3 {
		t.Errorf("Expected 4x3, got %dx%d", buf.Width(), buf.Height())
	}
	if buf.Size() != 12 {
		t.Errorf("Expected 12 samples, got %d", buf.Size())
	}
	for i, s := range buf.RawBytes() {
		if s != 0x7F {
			t.Fatalf("Sample %d = 0x%02X, expected 0x7F", i, s)
		}
	}
}

// TestNewImageBufferZeroFill verifies the zero-fill fast path.
func TestNewImageBufferZeroFill(t *testing.T) {
	buf := NewImageBuffer(8, 8, 0)
	for i, s := range buf.RawBytes() {
		if s != 0 {
			t.Fatalf("Sample %d = 0x%02X, expected 0x00", i, s)
		}
	}
}

// TestNewImageBufferPanicsOnBadDimensions verifies constructor misuse panics.
func TestNewImageBufferPanicsOnBadDimensions(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic for 0x5 buffer")
		}
	}()
	NewImageBuffer(0, 5, 0)
}

// TestCopyFromSizeMismatch verifies the contract violation path leaves the
// buffer untouched.
func TestCopyFromSizeMismatch(t *testing.T) {
	buf := NewImageBuffer(4, 4, 0xAA)

	err := buf.CopyFrom(make([]byte, 15))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("Expected ErrSizeMismatch, got %v", err)
	}
	for i, s := range buf.RawBytes() {
		if s != 0xAA {
			t.Fatalf("Sample %d modified after failed copy: 0x%02X", i, s)
		}
	}
}

// TestCopyFromExactSize verifies a matching source copies through.
func TestCopyFromExactSize(t *testing.T) {
	buf := NewImageBuffer(4, 2, 0)
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	if err := buf.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom failed: %v", err)
	}
	if !bytes.Equal(buf.RawBytes(), src) {
		t.Errorf("Buffer contents %v, expected %v", buf.RawBytes(), src)
	}

	// RawBytes aliases the storage the copy wrote into.
	src[0] = 99
	if buf.RawBytes()[0] == 99 {
		t.Error("CopyFrom aliased the source instead of copying")
	}
}

// TestTransformInPlace verifies Transform touches every sample exactly once.
func TestTransformInPlace(t *testing.T) {
	buf := NewImageBuffer(3, 3, 0x0F)
	buf.Transform(func(x byte) byte { return x + 1 })

	for i, s := range buf.RawBytes() {
		if s != 0x10 {
			t.Fatalf("Sample %d = 0x%02X, expected 0x10", i, s)
		}
	}
}

// TestToDisplayableOwnsPixels verifies the snapshot does not share storage
// with the live buffer.
func TestToDisplayableOwnsPixels(t *testing.T) {
	buf := NewImageBuffer(4, 4, 0x11)
	img := buf.ToDisplayable()

	if got := img.Bounds().Dx(); got != 4 {
		t.Fatalf("Snapshot width = %d, expected 4", got)
	}
	if img.Pix[0] != 0x11 {
		t.Fatalf("Snapshot pixel 0 = 0x%02X, expected 0x11", img.Pix[0])
	}

	// Mutating the buffer afterwards must not leak into the snapshot.
	buf.RawBytes()[0] = 0xFF
	if img.Pix[0] != 0x11 {
		t.Error("Snapshot shares storage with the buffer")
	}

	// And the conversion itself must not mutate the buffer.
	if buf.RawBytes()[1] != 0x11 {
		t.Error("ToDisplayable mutated the buffer")
	}
}
