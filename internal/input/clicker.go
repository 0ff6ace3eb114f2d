// Package input dispatches synthetic mouse clicks through platform tools.
package input

import (
	"context"

	"github.com/quizzard/quizzard/internal/layout"
)

// Clicker performs a single left click at an absolute screen coordinate.
type Clicker interface {
	Click(ctx context.Context, p layout.Point) error
}

// pixelCoords rounds a screen point to whole pixels.
func pixelCoords(p layout.Point) (int, int) {
	return int(p.X + 0.5), int(p.Y + 0.5)
}
