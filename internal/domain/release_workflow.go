package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ReleaseWorkflow is the durable rollout pipeline: blue/green build-out,
// canary, staged expansion, traffic switch, archive. Each step is an
// [Activity] so a durable engine can persist progress and resume after
// a crash without repeating completed steps.
//
// Health-gate failures are not activity errors. A halted canary or
// stage is a normal, recordable outcome, and typed errors do not
// survive the engine's serialization boundary, so those activities
// report Halted plus the rollback record in their output and the
// pipeline body decides what to do. Only infrastructure failures and
// unrecovered rollbacks flow as errors.
type ReleaseWorkflow struct {
	Releases  ReleaseRepository
	BlueGreen *BlueGreenController
	Canary    *CanaryController
	Staged    *StagedRolloutController

	// ReadyTimeout bounds the idle environment's readiness probe loop.
	ReadyTimeout time.Duration

	// Retention is how long the displaced environment is kept after the
	// switch before it becomes eligible for cleanup.
	Retention time.Duration
}

// Name identifies the pipeline type to workflow engines.
func (w *ReleaseWorkflow) Name() string { return "release-rollout" }

type LoadReleaseInput struct {
	ReleaseID ReleaseID `json:"release_id"`
}

type LoadReleaseOutput struct {
	Release Release `json:"release"`
}

// LoadRelease fetches the release and marks it running. Idempotent:
// re-marking a running release is a no-op update.
func (w *ReleaseWorkflow) LoadRelease() Activity[LoadReleaseInput, LoadReleaseOutput] {
	return NewActivity("load-release", func(ctx context.Context, in LoadReleaseInput) (LoadReleaseOutput, error) {
		rel, err := w.Releases.Get(ctx, in.ReleaseID)
		if err != nil {
			return LoadReleaseOutput{}, fmt.Errorf("load release %s: %w", in.ReleaseID, err)
		}
		if rel.State == ReleaseStatePending {
			rel.State = ReleaseStateRunning
			if err := w.updateRelease(ctx, rel); err != nil {
				return LoadReleaseOutput{}, err
			}
		}
		return LoadReleaseOutput{Release: rel}, nil
	})
}

type ProvisionIdleInput struct {
	Target  EnvironmentID `json:"target"`
	Version string        `json:"version"`
}

type ProvisionIdleOutput struct {
	Environment Environment `json:"environment"`
	Halted      bool        `json:"halted"`
	Reason      string      `json:"reason,omitempty"`
}

// ProvisionIdle builds and verifies the idle environment. Deployment
// failures halt the pipeline without rollback: no traffic has moved, so
// the live side is untouched and the failed environment has already
// been torn down.
func (w *ReleaseWorkflow) ProvisionIdle() Activity[ProvisionIdleInput, ProvisionIdleOutput] {
	return NewActivity("provision-idle", func(ctx context.Context, in ProvisionIdleInput) (ProvisionIdleOutput, error) {
		env, err := w.BlueGreen.DeployToIdle(ctx, in.Target, in.Version)
		if err != nil {
			var deployErr *DeployError
			if errors.As(err, &deployErr) {
				return ProvisionIdleOutput{Environment: env, Halted: true, Reason: deployErr.Error()}, nil
			}
			return ProvisionIdleOutput{}, err
		}
		return ProvisionIdleOutput{Environment: env}, nil
	})
}

type WaitForReadyInput struct {
	Environment Environment `json:"environment"`
}

type WaitForReadyOutput struct {
	Environment Environment `json:"environment"`
	Ready       bool        `json:"ready"`
}

// WaitForReady polls the fresh environment until it answers healthy or
// the timeout elapses. Not ready is a halt, not an error.
func (w *ReleaseWorkflow) WaitForReady() Activity[WaitForReadyInput, WaitForReadyOutput] {
	return NewActivity("wait-for-ready", func(ctx context.Context, in WaitForReadyInput) (WaitForReadyOutput, error) {
		env, ready, err := w.BlueGreen.WaitForReady(ctx, in.Environment, w.ReadyTimeout)
		if err != nil {
			return WaitForReadyOutput{}, err
		}
		return WaitForReadyOutput{Environment: env, Ready: ready}, nil
	})
}

type RunCanaryInput struct {
	Version string `json:"version"`
}

type StageResult struct {
	Stage    RolloutStage    `json:"stage"`
	Halted   bool            `json:"halted"`
	Reason   string          `json:"reason,omitempty"`
	Rollback *RollbackRecord `json:"rollback,omitempty"`
}

// RunCanary exposes the canary slice and holds it under observation. A
// health-gate failure comes back as a halted result carrying the
// rollback record; only unrecovered rollbacks and infrastructure
// failures are errors.
func (w *ReleaseWorkflow) RunCanary() Activity[RunCanaryInput, StageResult] {
	return NewActivity("run-canary", func(ctx context.Context, in RunCanaryInput) (StageResult, error) {
		stage, err := w.Canary.Run(ctx, in.Version)
		return stageResult(stage, err)
	})
}

type PlanStagesInput struct{}

type PlanStagesOutput struct {
	Stages []RolloutStage `json:"stages"`
}

// PlanStages resolves the coverage schedule against the catalog once,
// so every stage executes against the same plan even if the catalog
// changes mid-rollout.
func (w *ReleaseWorkflow) PlanStages() Activity[PlanStagesInput, PlanStagesOutput] {
	return NewActivity("plan-stages", func(ctx context.Context, _ PlanStagesInput) (PlanStagesOutput, error) {
		stages, err := w.Staged.PlanStages(ctx)
		if err != nil {
			return PlanStagesOutput{}, err
		}
		return PlanStagesOutput{Stages: stages}, nil
	})
}

type ExecuteStageInput struct {
	Version string       `json:"version"`
	Stage   RolloutStage `json:"stage"`
}

// ExecuteStage deploys one coverage step and monitors its cumulative
// unit set. Halts and errors follow the same contract as RunCanary.
func (w *ReleaseWorkflow) ExecuteStage() Activity[ExecuteStageInput, StageResult] {
	return NewActivity("execute-stage", func(ctx context.Context, in ExecuteStageInput) (StageResult, error) {
		stage, err := w.Staged.ExecuteStage(ctx, in.Version, in.Stage)
		return stageResult(stage, err)
	})
}

func stageResult(stage RolloutStage, err error) (StageResult, error) {
	if err == nil {
		return StageResult{Stage: stage}, nil
	}
	var rolloutErr *RolloutError
	if errors.As(err, &rolloutErr) {
		return StageResult{
			Stage:    stage,
			Halted:   true,
			Reason:   rolloutErr.Error(),
			Rollback: rolloutErr.Rollback,
		}, nil
	}
	return StageResult{Stage: stage}, err
}

type SwitchTrafficInput struct {
	Target EnvironmentID `json:"target"`
}

type SwitchTrafficOutput struct {
	Previous EnvironmentID `json:"previous,omitempty"`
}

// SwitchTraffic resolves the currently active environment as the
// switch-from side and cuts traffic over to the target. On the first
// ever rollout no environment is active and the counterpart slot is
// used, which the router treats as a no-op drain.
func (w *ReleaseWorkflow) SwitchTraffic() Activity[SwitchTrafficInput, SwitchTrafficOutput] {
	return NewActivity("switch-traffic", func(ctx context.Context, in SwitchTrafficInput) (SwitchTrafficOutput, error) {
		from := counterpart(in.Target)
		active, err := w.BlueGreen.Environments.Active(ctx)
		switch {
		case err == nil:
			from = active.Name
		case errors.Is(err, ErrNotFound):
		default:
			return SwitchTrafficOutput{}, fmt.Errorf("resolve active environment: %w", err)
		}

		if err := w.BlueGreen.SwitchTraffic(ctx, from, in.Target); err != nil {
			return SwitchTrafficOutput{}, err
		}
		return SwitchTrafficOutput{Previous: from}, nil
	})
}

type ArchiveEnvironmentInput struct {
	Environment EnvironmentID `json:"environment"`
}

type ArchiveEnvironmentOutput struct{}

// ArchiveEnvironment marks the displaced environment for delayed
// cleanup. A missing environment is fine: the first rollout has no
// displaced side.
func (w *ReleaseWorkflow) ArchiveEnvironment() Activity[ArchiveEnvironmentInput, ArchiveEnvironmentOutput] {
	return NewActivity("archive-environment", func(ctx context.Context, in ArchiveEnvironmentInput) (ArchiveEnvironmentOutput, error) {
		if err := w.BlueGreen.Archive(ctx, in.Environment, w.Retention); err != nil && !errors.Is(err, ErrNotFound) {
			return ArchiveEnvironmentOutput{}, err
		}
		return ArchiveEnvironmentOutput{}, nil
	})
}

type UpdateReleaseInput struct {
	Release Release `json:"release"`
}

type UpdateReleaseOutput struct{}

// UpdateRelease persists the release's accumulated state. Last write
// wins; the pipeline is the only writer while a release runs.
func (w *ReleaseWorkflow) UpdateRelease() Activity[UpdateReleaseInput, UpdateReleaseOutput] {
	return NewActivity("update-release", func(ctx context.Context, in UpdateReleaseInput) (UpdateReleaseOutput, error) {
		if err := w.updateRelease(ctx, in.Release); err != nil {
			return UpdateReleaseOutput{}, err
		}
		return UpdateReleaseOutput{}, nil
	})
}

func (w *ReleaseWorkflow) updateRelease(ctx context.Context, rel Release) error {
	rel.UpdatedAt = time.Now().UTC()
	if err := w.Releases.Update(ctx, rel); err != nil {
		return fmt.Errorf("update release %s: %w", rel.ID, err)
	}
	return nil
}

// Run is the pipeline body. It drives the activity sequence through the
// runner and settles the release into exactly one terminal state:
// succeeded, failed, or rolled_back. The traffic switch happens only
// after the final stage reports healthy, so a failure at any earlier
// point leaves production on the old version.
func (w *ReleaseWorkflow) Run(runner DurableRunner, releaseID ReleaseID) error {
	loaded, err := RunActivity(runner, w.LoadRelease(), LoadReleaseInput{ReleaseID: releaseID})
	if err != nil {
		return err
	}
	rel := loaded.Release

	provisioned, err := RunActivity(runner, w.ProvisionIdle(), ProvisionIdleInput{
		Target:  rel.Config.Environment,
		Version: rel.Version,
	})
	if err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}
	rel.Deployment = DeploymentResult{
		Version:     rel.Version,
		Environment: provisioned.Environment.Name,
		Endpoint:    provisioned.Environment.Endpoint,
		Status:      provisioned.Environment.Status,
	}
	if provisioned.Halted {
		return w.settle(runner, rel, ReleaseStateFailed, provisioned.Reason)
	}

	ready, err := RunActivity(runner, w.WaitForReady(), WaitForReadyInput{Environment: provisioned.Environment})
	if err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}
	rel.Deployment.Status = ready.Environment.Status
	if !ready.Ready {
		return w.settle(runner, rel, ReleaseStateFailed,
			fmt.Sprintf("environment %s not ready within %s", ready.Environment.Name, w.ReadyTimeout))
	}

	canary, err := RunActivity(runner, w.RunCanary(), RunCanaryInput{Version: rel.Version})
	if err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}
	rel.Rollout.Stages = append(rel.Rollout.Stages, canary.Stage)
	if canary.Halted {
		rel.Rollout.Errors = append(rel.Rollout.Errors, canary.Reason)
		return w.settle(runner, rel, ReleaseStateRolledBack, "")
	}
	rel.Rollout.FinalCoverage = canary.Stage.TargetCoverage

	plan, err := RunActivity(runner, w.PlanStages(), PlanStagesInput{})
	if err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}

	for _, stage := range plan.Stages {
		result, err := RunActivity(runner, w.ExecuteStage(), ExecuteStageInput{Version: rel.Version, Stage: stage})
		if err != nil {
			return w.settle(runner, rel, ReleaseStateFailed, err.Error())
		}
		rel.Rollout.Stages = append(rel.Rollout.Stages, result.Stage)
		if result.Halted {
			rel.Rollout.Errors = append(rel.Rollout.Errors, result.Reason)
			return w.settle(runner, rel, ReleaseStateRolledBack, "")
		}
		rel.Rollout.FinalCoverage = result.Stage.TargetCoverage
	}

	switched, err := RunActivity(runner, w.SwitchTraffic(), SwitchTrafficInput{Target: rel.Config.Environment})
	if err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}

	if _, err := RunActivity(runner, w.ArchiveEnvironment(), ArchiveEnvironmentInput{Environment: switched.Previous}); err != nil {
		return w.settle(runner, rel, ReleaseStateFailed, err.Error())
	}

	return w.settle(runner, rel, ReleaseStateSucceeded, "")
}

func (w *ReleaseWorkflow) settle(runner DurableRunner, rel Release, state ReleaseState, reason string) error {
	rel.State = state
	if reason != "" {
		rel.Deployment.Errors = append(rel.Deployment.Errors, reason)
	}
	if _, err := RunActivity(runner, w.UpdateRelease(), UpdateReleaseInput{Release: rel}); err != nil {
		return err
	}
	return nil
}

// counterpart returns the paired slot of a blue/green environment. The
// pairing is fixed: blue with green, staging with production.
func counterpart(id EnvironmentID) EnvironmentID {
	switch id {
	case EnvBlue:
		return EnvGreen
	case EnvGreen:
		return EnvBlue
	case EnvStaging:
		return EnvProduction
	default:
		return EnvStaging
	}
}
