package domain

import (
	"context"
	"fmt"
)

// StagedRolloutController extends a proven canary across a sequence of
// increasing-coverage stages, each independently monitored and gated.
type StagedRolloutController struct {
	Catalog  UnitCatalog
	Deployer UnitDeployer
	Metrics  MetricsSource
	Rollback *RollbackCoordinator
	Ledger   *VersionLedger
	Config   RolloutConfig
}

// PlanStages resolves the configured coverage fractions against the
// current catalog. Every stage's unit set is a prefix of the same
// selection order, never shorter than the canary slice, so the set for
// each stage is a superset of every earlier stage's set and of the
// canary.
func (c *StagedRolloutController) PlanStages(ctx context.Context) ([]RolloutStage, error) {
	pool, err := c.Catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: unit catalog is empty", ErrInvalidConfig)
	}

	stages := make([]RolloutStage, len(c.Config.StageCoverages))
	for i, fraction := range c.Config.StageCoverages {
		stages[i] = RolloutStage{
			Name:              fmt.Sprintf("stage-%d", i+1),
			TargetCoverage:    fraction,
			UnitIDs:           CoverageUnits(pool, fraction, c.Config.CanaryCount),
			ObservationPeriod: c.Config.ObservationPeriod,
			Outcome:           StageOutcomePending,
		}
	}
	return stages, nil
}

// ExecuteStage deploys the stage's not-yet-converted units and monitors
// the full cumulative set for one observation window. An unhealthy
// verdict rolls back every unit the stage touched and returns a
// *RolloutError.
func (c *StagedRolloutController) ExecuteStage(ctx context.Context, version string, stage RolloutStage) (RolloutStage, error) {
	pool, err := c.Catalog.List(ctx)
	if err != nil {
		return stage, fmt.Errorf("list units: %w", err)
	}
	seedLedger(c.Ledger, pool, stage.UnitIDs)

	var delta []UnitID
	for _, id := range stage.UnitIDs {
		if current, ok := c.Ledger.Current(id); !ok || current != version {
			delta = append(delta, id)
		}
	}
	if err := deployBatch(ctx, c.Deployer, c.Ledger, c.Rollback, delta, version, stage.Name); err != nil {
		return stage, err
	}

	monitor := &Monitor{Metrics: c.Metrics, Thresholds: c.Config.Thresholds}
	verdict, err := monitor.Observe(ctx, MonitorSpec{
		Units:        stage.UnitIDs,
		Duration:     stage.ObservationPeriod,
		PollInterval: c.Config.PollInterval,
	})
	if err != nil {
		return stage, fmt.Errorf("%s observation: %w", stage.Name, err)
	}

	stage.Snapshot = verdict.Snapshot
	stage.Violations = verdict.Violations

	if !verdict.Healthy {
		stage.Outcome = StageOutcomeUnhealthy
		record, rbErr := c.Rollback.Rollback(ctx, stage.UnitIDs, stage.Name, violationReason(verdict))
		if rbErr != nil {
			return stage, rbErr
		}
		return stage, &RolloutError{Stage: stage.Name, Verdict: verdict, Rollback: &record}
	}

	stage.Outcome = StageOutcomeHealthy
	return stage, nil
}

// Run executes the full stage sequence in order, stopping at the first
// failure. Callers driving stages individually through the workflow use
// PlanStages and ExecuteStage directly.
func (c *StagedRolloutController) Run(ctx context.Context, version string) (RolloutResult, error) {
	stages, err := c.PlanStages(ctx)
	if err != nil {
		return RolloutResult{}, err
	}

	var result RolloutResult
	for _, stage := range stages {
		executed, err := c.ExecuteStage(ctx, version, stage)
		result.Stages = append(result.Stages, executed)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			return result, err
		}
		result.FinalCoverage = executed.TargetCoverage
	}
	return result, nil
}
