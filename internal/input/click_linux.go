//go:build linux

package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/quizzard/quizzard/internal/layout"
)

type linuxClicker struct{}

// New creates a platform-specific clicker
func New() Clicker {
	return &linuxClicker{}
}

func (l *linuxClicker) Click(ctx context.Context, p layout.Point) error {
	x, y := pixelCoords(p)
	cmd := exec.CommandContext(ctx, "xdotool",
		"mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("xdotool: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
