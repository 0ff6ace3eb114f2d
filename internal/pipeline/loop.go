package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quizzard/quizzard/internal/screen"
	"github.com/quizzard/quizzard/internal/trace"
)

// Loop drives continuous mode: capture at a fixed rate, skip unchanged
// screens, and run a solve cycle when something new appears.
type Loop struct {
	runner *Runner
	differ *screen.Differ
	rate   float64 // Hz
}

// NewLoop creates a continuous loop over a runner.
func NewLoop(runner *Runner, differ *screen.Differ, rate float64) *Loop {
	if rate <= 0 {
		rate = 1.0
	}
	return &Loop{runner: runner, differ: differ, rate: rate}
}

// Run blocks until ctx is done. While the gate is disabled the loop keeps
// ticking but neither captures nor solves.
func (l *Loop) Run(ctx context.Context) {
	interval := time.Duration(float64(time.Second) / l.rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := trace.Logger(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.runner.gate.IsEnabled() {
				continue
			}
			l.tick(ctx, log)
		}
	}
}

func (l *Loop) tick(ctx context.Context, log *slog.Logger) {
	rect := l.runner.cfg.CaptureRect
	if active := l.runner.Layout(); active.IsValid() {
		rect = active.CaptureRect
	}

	img, err := l.runner.capturer.CaptureRegion(ctx, rect)
	if err != nil {
		log.Debug("loop capture failed", "error", err)
		return
	}
	if !l.differ.Changed(img) {
		return
	}

	if _, err := l.runner.Solve(ctx); err != nil && !errors.Is(err, ErrBusy) {
		log.Debug("loop solve failed", "error", err)
	}
}
