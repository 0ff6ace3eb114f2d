//go:build darwin

package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/quizzard/quizzard/internal/layout"
)

type darwinClicker struct{}

// New creates a platform-specific clicker
func New() Clicker {
	return &darwinClicker{}
}

func (d *darwinClicker) Click(ctx context.Context, p layout.Point) error {
	x, y := pixelCoords(p)
	// cliclick moves the cursor and clicks in one command
	cmd := exec.CommandContext(ctx, "cliclick", fmt.Sprintf("c:%d,%d", x, y))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cliclick: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
