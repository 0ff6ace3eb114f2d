//go:build windows

package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/quizzard/quizzard/internal/layout"
)

type windowsClicker struct{}

// New creates a platform-specific clicker
func New() Clicker {
	return &windowsClicker{}
}

func (w *windowsClicker) Click(ctx context.Context, p layout.Point) error {
	x, y := pixelCoords(p)
	script := fmt.Sprintf(`Add-Type -AssemblyName System.Windows.Forms
[System.Windows.Forms.Cursor]::Position = New-Object System.Drawing.Point(%d, %d)
Add-Type -MemberDefinition '[DllImport("user32.dll")] public static extern void mouse_event(uint f, uint x, uint y, uint d, int e);' -Name U32 -Namespace W
[W.U32]::mouse_event(0x02, 0, 0, 0, 0)
[W.U32]::mouse_event(0x04, 0, 0, 0, 0)`, x, y)

	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("powershell click: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}
