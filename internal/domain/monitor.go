package domain

import (
	"context"
	"fmt"
	"time"
)

// MonitorSpec bounds one observation window over a unit set.
type MonitorSpec struct {
	Units        []UnitID
	Duration     time.Duration
	PollInterval time.Duration
}

// Monitor watches a unit set for the duration of a window. Each tick it
// fetches a snapshot and baseline from the metrics source and evaluates
// them against the thresholds.
type Monitor struct {
	Metrics    MetricsSource
	Thresholds Thresholds
}

// Observe runs the window and returns a definite verdict. It returns
// immediately on the first unhealthy tick without waiting out the
// remaining window, when the window elapses with every tick
// healthy, or with ctx.Err() when the caller cancels. The wait is
// tick-based, never a single uninterruptible sleep, so multi-hour
// windows stay abortable.
func (m *Monitor) Observe(ctx context.Context, spec MonitorSpec) (Verdict, error) {
	if spec.Duration <= 0 || spec.PollInterval <= 0 {
		return Verdict{}, fmt.Errorf("%w: observation window and poll interval must be positive", ErrInvalidConfig)
	}

	deadline := time.NewTimer(spec.Duration)
	defer deadline.Stop()
	ticker := time.NewTicker(spec.PollInterval)
	defer ticker.Stop()

	var last Verdict
	for {
		select {
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		case <-deadline.C:
			if last.Snapshot.IsZero() {
				// Window shorter than one interval; take a single
				// closing observation so the verdict is never empty.
				return m.observeOnce(ctx, spec.Units)
			}
			return last, nil
		case <-ticker.C:
			verdict, err := m.observeOnce(ctx, spec.Units)
			if err != nil {
				return Verdict{}, err
			}
			if !verdict.Healthy {
				return verdict, nil
			}
			last = verdict
		}
	}
}

func (m *Monitor) observeOnce(ctx context.Context, units []UnitID) (Verdict, error) {
	snapshot, err := m.Metrics.Snapshot(ctx, units)
	if err != nil {
		return Verdict{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	baseline, err := m.Metrics.Baseline(ctx, units)
	if err != nil {
		return Verdict{}, fmt.Errorf("fetch baseline: %w", err)
	}
	return Evaluate(snapshot, baseline, m.Thresholds)
}
