package domain

import (
	"errors"
	"testing"
	"time"
)

func TestEvaluateHealthy(t *testing.T) {
	now := time.Now()
	baseline := HealthSnapshot{ErrorRate: 0.002, LatencyP99: 90, Performance: 0.95, Timestamp: now.Add(-time.Hour)}
	current := HealthSnapshot{ErrorRate: 0.005, LatencyP99: 150, Performance: 0.93, Timestamp: now}

	verdict, err := Evaluate(current, baseline, DefaultThresholds())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !verdict.Healthy {
		t.Fatalf("expected healthy verdict, got violations %v", verdict.Violations)
	}
	if len(verdict.Violations) != 0 {
		t.Fatalf("healthy verdict carries violations: %v", verdict.Violations)
	}
}

func TestEvaluateThresholdBoundaries(t *testing.T) {
	// Exactly at a threshold is healthy; the gates are strict exceedance.
	baseline := HealthSnapshot{Performance: 1.0, Timestamp: time.Now()}
	current := HealthSnapshot{
		ErrorRate:   0.01,
		LatencyP99:  200,
		Performance: 0.80,
		Timestamp:   time.Now(),
	}

	verdict, err := Evaluate(current, baseline, DefaultThresholds())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !verdict.Healthy {
		t.Fatalf("values at thresholds must be healthy, got violations %v", verdict.Violations)
	}
}

func TestEvaluateCollectsEveryViolationInOrder(t *testing.T) {
	baseline := HealthSnapshot{Performance: 1.0, Timestamp: time.Now()}
	current := HealthSnapshot{
		ErrorRate:   0.05,
		LatencyP99:  500,
		Performance: 0.70,
		Timestamp:   time.Now(),
	}

	verdict, err := Evaluate(current, baseline, DefaultThresholds())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if verdict.Healthy {
		t.Fatal("expected unhealthy verdict")
	}
	want := []string{"error_rate", "latency_p99", "performance_drop"}
	if len(verdict.Violations) != len(want) {
		t.Fatalf("got %d violations, want %d: %v", len(verdict.Violations), len(want), verdict.Violations)
	}
	for i, rule := range want {
		if verdict.Violations[i].Rule != rule {
			t.Errorf("violation %d: got rule %q, want %q", i, verdict.Violations[i].Rule, rule)
		}
	}
}

func TestEvaluateSingleRuleBreaches(t *testing.T) {
	baseline := HealthSnapshot{Performance: 1.0, Timestamp: time.Now()}
	cases := []struct {
		name    string
		current HealthSnapshot
		rule    string
	}{
		{
			name:    "error rate",
			current: HealthSnapshot{ErrorRate: 0.02, LatencyP99: 100, Performance: 0.95},
			rule:    "error_rate",
		},
		{
			name:    "latency",
			current: HealthSnapshot{ErrorRate: 0.001, LatencyP99: 350, Performance: 0.95},
			rule:    "latency_p99",
		},
		{
			name:    "performance drop",
			current: HealthSnapshot{ErrorRate: 0.001, LatencyP99: 100, Performance: 0.75},
			rule:    "performance_drop",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict, err := Evaluate(tc.current, baseline, DefaultThresholds())
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if verdict.Healthy {
				t.Fatal("expected unhealthy verdict")
			}
			if len(verdict.Violations) != 1 || verdict.Violations[0].Rule != tc.rule {
				t.Fatalf("got violations %v, want single %q", verdict.Violations, tc.rule)
			}
		})
	}
}

func TestEvaluatePerformanceDropIsRelative(t *testing.T) {
	baseline := HealthSnapshot{Performance: 0.50, Timestamp: time.Now()}
	current := HealthSnapshot{ErrorRate: 0.001, LatencyP99: 100, Performance: 0.38, Timestamp: time.Now()}

	verdict, err := Evaluate(current, baseline, DefaultThresholds())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	// (0.50 - 0.38) / 0.50 = 0.24, over the 0.20 gate even though the
	// absolute drop is only 0.12.
	if verdict.Healthy {
		t.Fatal("expected relative drop of 0.24 to breach the 0.20 gate")
	}
	if got := verdict.Violations[0].Observed; got < 0.239 || got > 0.241 {
		t.Fatalf("observed drop = %v, want ~0.24", got)
	}
}

func TestEvaluateNoBaseline(t *testing.T) {
	current := HealthSnapshot{ErrorRate: 0.001, LatencyP99: 100, Performance: 0.95, Timestamp: time.Now()}

	for _, perf := range []float64{0, -0.5} {
		_, err := Evaluate(current, HealthSnapshot{Performance: perf}, DefaultThresholds())
		if !errors.Is(err, ErrNoBaseline) {
			t.Fatalf("baseline performance %v: got %v, want ErrNoBaseline", perf, err)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("ErrNoBaseline must classify as ErrInvalidConfig, got %v", err)
		}
	}
}

func TestEvaluateRejectsBadThresholds(t *testing.T) {
	baseline := HealthSnapshot{Performance: 1.0, Timestamp: time.Now()}
	_, err := Evaluate(HealthSnapshot{}, baseline, Thresholds{ErrorRateMax: 0, LatencyP99Max: 200, PerformanceDropMax: 0.2})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("got %v, want ErrInvalidConfig", err)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	baseline := HealthSnapshot{Performance: 1.0, Timestamp: time.Unix(100, 0)}
	current := HealthSnapshot{ErrorRate: 0.05, LatencyP99: 500, Performance: 0.5, Timestamp: time.Unix(200, 0)}

	first, err := Evaluate(current, baseline, DefaultThresholds())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Evaluate(current, baseline, DefaultThresholds())
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if len(again.Violations) != len(first.Violations) {
			t.Fatalf("run %d: violation count changed", i)
		}
		for j := range again.Violations {
			if again.Violations[j] != first.Violations[j] {
				t.Fatalf("run %d: violation %d changed: %v vs %v", i, j, again.Violations[j], first.Violations[j])
			}
		}
	}
}
