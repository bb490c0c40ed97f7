// engine.go runs one detection sweep: every registered detector in its own
// goroutine, all failures contained.
package detection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/telemetry"
)

// Engine fans a sweep out over the registered detectors. It holds no state
// between sweeps, so overlapping sweeps (a slow run still going when the
// next tick fires) are safe, just redundant.
type Engine struct {
	detectors []Detector
	timeout   time.Duration
}

// NewEngine creates an engine over the given detectors. timeout bounds one
// full sweep; zero disables the bound.
func NewEngine(timeout time.Duration, detectors ...Detector) *Engine {
	return &Engine{detectors: detectors, timeout: timeout}
}

// RunSweep runs every detector concurrently against a shared reference time
// and waits for all of them. A detector error — or panic — is logged and
// counted but never fails the sweep or blocks the other detectors. The sweep
// itself has no error to return: the findings table and the metrics are its
// outputs.
func (e *Engine) RunSweep(ctx context.Context) {
	start := time.Now()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	// One reference time for the whole sweep keeps the detectors' windows
	// consistent with each other.
	now := time.Now()

	var wg sync.WaitGroup
	for _, det := range e.detectors {
		det := det
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					telemetry.DetectorErrorsTotal.WithLabelValues(det.Name()).Inc()
					slog.Error("detector panicked", "detector", det.Name(), "panic", r)
				}
			}()

			if err := det.Run(ctx, now); err != nil {
				telemetry.DetectorErrorsTotal.WithLabelValues(det.Name()).Inc()
				slog.Error("detector failed", "detector", det.Name(), "error", err)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	telemetry.SweepsTotal.Inc()
	telemetry.SweepDuration.Observe(elapsed.Seconds())
	slog.Info("detection sweep completed", "detectors", len(e.detectors), "duration", elapsed)
}
