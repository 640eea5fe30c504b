package domain

// Evaluate compares a health snapshot against a baseline and the given
// thresholds. Rules run in fixed order (error_rate, latency_p99,
// performance_drop) and every breach is collected, never short-circuited.
// The function is pure: identical inputs produce identical verdicts.
//
// A baseline with non-positive performance makes the performance-drop
// rule meaningless; that case returns ErrNoBaseline instead of a
// NaN or infinite drop.
func Evaluate(current, baseline HealthSnapshot, t Thresholds) (Verdict, error) {
	if err := t.Validate(); err != nil {
		return Verdict{}, err
	}
	if baseline.Performance <= 0 {
		return Verdict{}, ErrNoBaseline
	}

	var violations []Violation

	if current.ErrorRate > t.ErrorRateMax {
		violations = append(violations, Violation{
			Rule:     "error_rate",
			Observed: current.ErrorRate,
			Limit:    t.ErrorRateMax,
		})
	}
	if current.LatencyP99 > t.LatencyP99Max {
		violations = append(violations, Violation{
			Rule:     "latency_p99",
			Observed: current.LatencyP99,
			Limit:    t.LatencyP99Max,
		})
	}
	drop := (baseline.Performance - current.Performance) / baseline.Performance
	if drop > t.PerformanceDropMax {
		violations = append(violations, Violation{
			Rule:     "performance_drop",
			Observed: drop,
			Limit:    t.PerformanceDropMax,
		})
	}

	return Verdict{
		Healthy:    len(violations) == 0,
		Violations: violations,
		Snapshot:   current,
		Baseline:   baseline,
	}, nil
}
