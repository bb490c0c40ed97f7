// Package jobs contains the background loops the server runs for its entire
// lifetime. detection_sweeper.go implements the DetectionSweeper, which
// triggers a full detection sweep on a fixed wall-clock interval.
package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SweepRunner runs one detection sweep. Satisfied by detection.Engine.
type SweepRunner interface {
	RunSweep(ctx context.Context)
}

// DetectionSweeper periodically triggers detection sweeps. The interval is
// fixed and not drift-corrected: a tick fires every interval regardless of
// how long the previous sweep took, and a sweep still running when the next
// tick fires simply overlaps it. The engine is stateless per sweep, so
// overlap is redundant work, not a correctness problem.
type DetectionSweeper struct {
	engine   SweepRunner
	interval time.Duration
	stopChan chan struct{}
}

// NewDetectionSweeper creates a sweeper. Non-positive intervals fall back to
// the 15-minute default cadence.
func NewDetectionSweeper(engine SweepRunner, interval time.Duration) *DetectionSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &DetectionSweeper{
		engine:   engine,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop. It runs one sweep immediately on startup, then
// repeats on the configured interval. The loop exits when ctx is cancelled or
// Stop() is called.
func (s *DetectionSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("detection sweeper started", "interval", s.interval)

	// Run once immediately on startup
	s.engine.RunSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.engine.RunSweep(ctx)
		case <-s.stopChan:
			slog.Info("detection sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("detection sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweep loop to exit.
func (s *DetectionSweeper) Stop() {
	close(s.stopChan)
}
