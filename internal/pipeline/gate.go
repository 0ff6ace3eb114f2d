// Package pipeline runs the capture -> recognize -> match -> resolve -> click
// cycle and the optional continuous loop around it.
package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// Gate throttles clicking. Continuous mode consults the enabled flag;
// the cooldown applies to every click so a misread screen cannot produce
// a burst of them.
type Gate struct {
	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	lastTime time.Time
}

// NewGate creates a gate. cooldownSec applies between clicks.
func NewGate(cooldownSec float64, enabled bool) *Gate {
	return &Gate{
		enabled:  enabled,
		cooldown: time.Duration(cooldownSec * float64(time.Second)),
	}
}

// AllowClick reports whether enough time has passed since the last click.
func (g *Gate) AllowClick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Since(g.lastTime) >= g.cooldown
}

// RecordClick starts a new cooldown window.
func (g *Gate) RecordClick() {
	g.mu.Lock()
	g.lastTime = time.Now()
	g.mu.Unlock()
}

// SetEnabled enables/disables continuous solving.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	slog.Info("auto-solve state changed", "enabled", enabled)
}

// IsEnabled returns the continuous-mode flag.
func (g *Gate) IsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
