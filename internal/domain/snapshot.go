package domain

import (
	"fmt"
	"strings"
	"time"
)

// HealthSnapshot is a point-in-time aggregate of the health metrics for
// a unit set. Snapshots are immutable; one is produced per observation
// tick. A zero Timestamp means no observation has been taken.
type HealthSnapshot struct {
	ErrorRate   float64   `json:"error_rate"`
	LatencyP99  float64   `json:"latency_p99_ms"`
	Performance float64   `json:"performance"`
	Timestamp   time.Time `json:"timestamp"`
}

// IsZero reports whether the snapshot carries no observation.
func (s HealthSnapshot) IsZero() bool { return s.Timestamp.IsZero() }

// Thresholds are the rollback gates a snapshot is evaluated against.
type Thresholds struct {
	ErrorRateMax       float64 `json:"error_rate_max"`
	LatencyP99Max      float64 `json:"latency_p99_max_ms"`
	PerformanceDropMax float64 `json:"performance_drop_max"`
}

// DefaultThresholds returns the standard rollback gates: 1% error rate,
// 200ms p99 latency, 20% relative performance drop.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRateMax:       0.01,
		LatencyP99Max:      200,
		PerformanceDropMax: 0.20,
	}
}

// Validate rejects non-positive gates.
func (t Thresholds) Validate() error {
	if t.ErrorRateMax <= 0 {
		return fmt.Errorf("%w: error_rate_max must be positive, got %v", ErrInvalidConfig, t.ErrorRateMax)
	}
	if t.LatencyP99Max <= 0 {
		return fmt.Errorf("%w: latency_p99_max_ms must be positive, got %v", ErrInvalidConfig, t.LatencyP99Max)
	}
	if t.PerformanceDropMax <= 0 {
		return fmt.Errorf("%w: performance_drop_max must be positive, got %v", ErrInvalidConfig, t.PerformanceDropMax)
	}
	return nil
}

// Violation names a single threshold breach.
type Violation struct {
	Rule     string  `json:"rule"` // "error_rate", "latency_p99", "performance_drop"
	Observed float64 `json:"observed"`
	Limit    float64 `json:"limit"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %.4f exceeds %.4f", v.Rule, v.Observed, v.Limit)
}

// violationReason joins the verdict's violations into a one-line
// rollback reason.
func violationReason(v Verdict) string {
	msgs := make([]string, len(v.Violations))
	for i, viol := range v.Violations {
		msgs[i] = viol.String()
	}
	return strings.Join(msgs, "; ")
}

// Verdict is the outcome of evaluating a snapshot against its baseline.
// Violations holds every breached rule, not just the first, so the full
// diagnostic set is always available.
type Verdict struct {
	Healthy    bool           `json:"healthy"`
	Violations []Violation    `json:"violations,omitempty"`
	Snapshot   HealthSnapshot `json:"snapshot"`
	Baseline   HealthSnapshot `json:"baseline"`
}
