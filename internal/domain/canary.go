package domain

import (
	"context"
	"fmt"
)

// CanaryController proves a new version on a small, deterministic slice
// of units before wider exposure. Selection is reproducible: the canary
// is always the head of the canonical selection order, so an audit of
// any past rollout can reconstruct exactly which units were exposed.
type CanaryController struct {
	Catalog  UnitCatalog
	Deployer UnitDeployer
	Metrics  MetricsSource
	Rollback *RollbackCoordinator
	Ledger   *VersionLedger
	Config   RolloutConfig
}

// SelectCanaryUnits returns the first count units in selection order
// (volume descending, ID ascending). Two calls over unchanged catalog
// data return the identical ordered set.
func (c *CanaryController) SelectCanaryUnits(ctx context.Context, count int) ([]UnitID, error) {
	pool, err := c.Catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: unit catalog is empty", ErrInvalidConfig)
	}
	return CanaryUnits(pool, count), nil
}

// Run deploys the version to the canary slice and holds it under
// observation for one window. An unhealthy verdict rolls back exactly
// the canary unit set and returns a *RolloutError; the stage outcome is
// reported either way.
func (c *CanaryController) Run(ctx context.Context, version string) (RolloutStage, error) {
	pool, err := c.Catalog.List(ctx)
	if err != nil {
		return RolloutStage{}, fmt.Errorf("list units: %w", err)
	}
	if len(pool) == 0 {
		return RolloutStage{}, fmt.Errorf("%w: unit catalog is empty", ErrInvalidConfig)
	}

	units := CanaryUnits(pool, c.Config.CanaryCount)
	stage := RolloutStage{
		Name:              "canary",
		TargetCoverage:    float64(len(units)) / float64(len(pool)),
		UnitIDs:           units,
		ObservationPeriod: c.Config.ObservationPeriod,
		Outcome:           StageOutcomePending,
	}

	seedLedger(c.Ledger, pool, units)
	if err := deployBatch(ctx, c.Deployer, c.Ledger, c.Rollback, units, version, stage.Name); err != nil {
		return stage, err
	}

	monitor := &Monitor{Metrics: c.Metrics, Thresholds: c.Config.Thresholds}
	verdict, err := monitor.Observe(ctx, MonitorSpec{
		Units:        units,
		Duration:     c.Config.ObservationPeriod,
		PollInterval: c.Config.PollInterval,
	})
	if err != nil {
		return stage, fmt.Errorf("canary observation: %w", err)
	}

	stage.Snapshot = verdict.Snapshot
	stage.Violations = verdict.Violations

	if !verdict.Healthy {
		stage.Outcome = StageOutcomeUnhealthy
		record, rbErr := c.Rollback.Rollback(ctx, units, stage.Name, violationReason(verdict))
		if rbErr != nil {
			return stage, rbErr
		}
		return stage, &RolloutError{Stage: stage.Name, Verdict: verdict, Rollback: &record}
	}

	stage.Outcome = StageOutcomeHealthy
	return stage, nil
}
