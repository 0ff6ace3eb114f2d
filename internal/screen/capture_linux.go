//go:build linux

package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/quizzard/quizzard/internal/layout"
)

type linuxBackend struct{ tempDir string }

func (l *linuxBackend) captureRegion(ctx context.Context, rect layout.Rect) ([]byte, error) {
	tmpFile := filepath.Join(l.tempDir, "region.png")
	// scrot captures the region directly; gnome-screenshot has no
	// non-interactive region mode, so capture the screen and crop.
	if _, err := exec.LookPath("scrot"); err == nil {
		cmd := exec.CommandContext(ctx, "scrot", "-o", "-a", regionArgs(rect), tmpFile)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("scrot: %w (stderr: %s)", err, stderr.String())
		}
		return readAndRemove(tmpFile)
	}
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		cmd := exec.CommandContext(ctx, "gnome-screenshot", "-f", tmpFile)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("gnome-screenshot: %w (stderr: %s)", err, stderr.String())
		}
		data, err := readAndRemove(tmpFile)
		if err != nil {
			return nil, err
		}
		return cropPNG(data, rect)
	}
	return nil, fmt.Errorf("no screenshot tool found (install scrot or gnome-screenshot)")
}

func (l *linuxBackend) cleanup() {}

func readAndRemove(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	os.Remove(path)
	return data, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func cropPNG(data []byte, rect layout.Rect) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("screenshot format %T does not support cropping", img)
	}
	bounds := image.Rect(
		int(rect.X+0.5), int(rect.Y+0.5),
		int(rect.X+rect.W+0.5), int(rect.Y+rect.H+0.5),
	).Intersect(img.Bounds())
	if bounds.Empty() {
		return nil, fmt.Errorf("capture rect %+v outside screen bounds %v", rect, img.Bounds())
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(bounds)); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}

// New creates a platform-specific region capturer
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "quizzard-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&linuxBackend{tempDir: tmpDir}, tmpDir)
}
