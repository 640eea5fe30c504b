package domain

import (
	"fmt"
	"time"
)

// RolloutConfig drives a single rollout pipeline. Injected at
// construction so selection logic and gates are testable in isolation;
// no defaults are read from package-level state.
type RolloutConfig struct {
	// Environment is the idle environment the new version is built in.
	Environment EnvironmentID `json:"environment"`

	// CanaryCount is the number of units in the canary slice.
	CanaryCount int `json:"canary_count"`

	// StageCoverages are the coverage fractions of the staged rollout,
	// in execution order. Each stage's unit set is a superset of every
	// earlier stage's, and the last stage must reach full coverage
	// before the traffic switch is permitted.
	StageCoverages []float64 `json:"stage_coverages"`

	// ObservationPeriod bounds the monitoring window of each stage.
	ObservationPeriod time.Duration `json:"observation_period"`

	// PollInterval is the spacing between observation ticks.
	PollInterval time.Duration `json:"poll_interval"`

	Thresholds Thresholds `json:"rollback_thresholds"`
}

// DefaultRolloutConfig returns the standard pipeline shape: a two-unit
// canary, then 25% / 50% / 100% stages, built in the green environment.
func DefaultRolloutConfig() RolloutConfig {
	return RolloutConfig{
		Environment:       EnvGreen,
		CanaryCount:       2,
		StageCoverages:    []float64{0.25, 0.5, 1.0},
		ObservationPeriod: 5 * time.Minute,
		PollInterval:      10 * time.Second,
		Thresholds:        DefaultThresholds(),
	}
}

// Validate rejects configurations the pipeline cannot execute safely.
func (c RolloutConfig) Validate() error {
	switch c.Environment {
	case EnvBlue, EnvGreen, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}
	if c.CanaryCount < 1 {
		return fmt.Errorf("%w: canary_count must be at least 1, got %d", ErrInvalidConfig, c.CanaryCount)
	}
	if len(c.StageCoverages) == 0 {
		return fmt.Errorf("%w: at least one stage coverage is required", ErrInvalidConfig)
	}
	prev := 0.0
	for i, f := range c.StageCoverages {
		if f <= 0 || f > 1 {
			return fmt.Errorf("%w: stage coverage %v at index %d outside (0,1]", ErrInvalidConfig, f, i)
		}
		if f < prev {
			return fmt.Errorf("%w: stage coverages must be non-decreasing, got %v after %v", ErrInvalidConfig, f, prev)
		}
		prev = f
	}
	if last := c.StageCoverages[len(c.StageCoverages)-1]; last != 1.0 {
		return fmt.Errorf("%w: final stage coverage must be 1.0, got %v", ErrInvalidConfig, last)
	}
	if c.ObservationPeriod <= 0 {
		return fmt.Errorf("%w: observation period must be positive", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 || c.PollInterval > c.ObservationPeriod {
		return fmt.Errorf("%w: poll interval must be positive and no longer than the observation period", ErrInvalidConfig)
	}
	return c.Thresholds.Validate()
}
