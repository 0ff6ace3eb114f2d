package screen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/quizzard/quizzard/internal/layout"
)

func TestRegionArgs(t *testing.T) {
	tests := []struct {
		rect layout.Rect
		want string
	}{
		{layout.Rect{X: 0, Y: 0, W: 800, H: 600}, "0,0,800,600"},
		{layout.Rect{X: 100.4, Y: 99.6, W: 640.5, H: 480.2}, "100,100,641,480"},
	}
	for _, tt := range tests {
		if got := regionArgs(tt.rect); got != tt.want {
			t.Errorf("regionArgs(%+v) = %q, want %q", tt.rect, got, tt.want)
		}
	}
}

type fakeBackend struct {
	calls int
}

func (f *fakeBackend) captureRegion(_ context.Context, _ layout.Rect) ([]byte, error) {
	f.calls++
	return []byte("image"), nil
}

func (f *fakeBackend) cleanup() {}

func TestBaseCapturerRejectsDegenerateRect(t *testing.T) {
	fb := &fakeBackend{}
	c := newBase(fb, "")

	if _, err := c.CaptureRegion(context.Background(), layout.Rect{W: 0, H: 100}); err == nil {
		t.Error("zero-width rect should be rejected")
	}
	if fb.calls != 0 {
		t.Error("backend should not be invoked for a degenerate rect")
	}

	if _, err := c.CaptureRegion(context.Background(), layout.Rect{W: 100, H: 100}); err != nil {
		t.Errorf("valid rect failed: %v", err)
	}
	if fb.calls != 1 {
		t.Errorf("backend calls = %d, want 1", fb.calls)
	}
}

func TestBaseCapturerCloseRemovesTempDir(t *testing.T) {
	dir, err := os.MkdirTemp("", "quizzard-screen-test-*")
	if err != nil {
		t.Fatal(err)
	}
	c := newBase(&fakeBackend{}, dir)
	c.Close()

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("temp directory should be removed after Close")
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gradientImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	return img
}

func uniformImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{Y: 40})
		}
	}
	return img
}

func TestDifferDetectsChange(t *testing.T) {
	d := NewDiffer(0)
	gradient := encodePNG(t, gradientImage())
	uniform := encodePNG(t, uniformImage())

	if !d.Changed(gradient) {
		t.Error("first capture must count as changed")
	}
	if d.Changed(gradient) {
		t.Error("identical capture should not count as changed")
	}
	if !d.Changed(uniform) {
		t.Error("different content should count as changed")
	}
	if d.Changed(uniform) {
		t.Error("baseline should advance to the latest changed capture")
	}
}

func TestDifferReset(t *testing.T) {
	d := NewDiffer(0)
	gradient := encodePNG(t, gradientImage())

	d.Changed(gradient)
	d.Reset()
	if !d.Changed(gradient) {
		t.Error("after Reset the next capture must count as changed")
	}
}

func TestDifferUndecodableInput(t *testing.T) {
	d := NewDiffer(0)
	if !d.Changed([]byte("not an image")) {
		t.Error("undecodable input must count as changed")
	}
}
