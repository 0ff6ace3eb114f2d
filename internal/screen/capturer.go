// Package screen provides platform-agnostic capture of screen regions.
package screen

import (
	"context"
	"fmt"
	"os"

	"github.com/quizzard/quizzard/internal/layout"
)

// Capturer grabs absolute screen rectangles as PNG bytes.
type Capturer interface {
	CaptureRegion(ctx context.Context, rect layout.Rect) ([]byte, error)
	Close()
}

// backend implements platform-specific raw region capture
type backend interface {
	captureRegion(ctx context.Context, rect layout.Rect) ([]byte, error)
	cleanup()
}

type baseCapturer struct {
	backend
	tempDir string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) CaptureRegion(ctx context.Context, rect layout.Rect) ([]byte, error) {
	if rect.W <= 0 || rect.H <= 0 {
		return nil, fmt.Errorf("degenerate capture rect %+v", rect)
	}
	return c.backend.captureRegion(ctx, rect)
}

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

// regionArgs renders a rect as the x,y,w,h argument shared by the capture
// tools on every platform.
func regionArgs(rect layout.Rect) string {
	return fmt.Sprintf("%d,%d,%d,%d",
		int(rect.X+0.5), int(rect.Y+0.5), int(rect.W+0.5), int(rect.H+0.5))
}
