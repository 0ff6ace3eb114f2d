//go:build darwin

package screen

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/quizzard/quizzard/internal/layout"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) captureRegion(ctx context.Context, rect layout.Rect) ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "region.png")
	// -x: no sound, -R: capture rectangle in screen points
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-R", regionArgs(rect), tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("screencapture: %w (stderr: %s)", err, stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	os.Remove(tmpFile)
	return data, nil
}

func (d *darwinBackend) cleanup() {}

// New creates a platform-specific region capturer
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "quizzard-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&darwinBackend{tempDir: tmpDir}, tmpDir)
}
