//go:build windows

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

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) captureRegion(ctx context.Context, rect layout.Rect) ([]byte, error) {
	tmpFile := filepath.Join(w.tempDir, "region.png")
	script := fmt.Sprintf(`Add-Type -AssemblyName System.Drawing
$bmp = New-Object System.Drawing.Bitmap %d, %d
$g = [System.Drawing.Graphics]::FromImage($bmp)
$g.CopyFromScreen(%d, %d, 0, 0, $bmp.Size)
$bmp.Save('%s', [System.Drawing.Imaging.ImageFormat]::Png)
$g.Dispose(); $bmp.Dispose()`,
		int(rect.W+0.5), int(rect.H+0.5), int(rect.X+0.5), int(rect.Y+0.5), tmpFile)

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("powershell capture: %w (stderr: %s)", err, stderr.String())
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	os.Remove(tmpFile)
	return data, nil
}

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific region capturer
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "quizzard-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
