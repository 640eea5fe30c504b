package domain

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// directRunner executes activities inline and records their names, so
// tests can assert on pipeline step order without a workflow engine.
type directRunner struct {
	ctx   context.Context
	names []string
}

func (r *directRunner) ID() string               { return "wf-test" }
func (r *directRunner) Context() context.Context { return r.ctx }

func (r *directRunner) Run(activity Activity[any, any], in any) (any, error) {
	r.names = append(r.names, activity.Name())
	return activity.Run(r.ctx, in)
}

func (r *directRunner) count(name string) int {
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

type workflowFixture struct {
	workflow *ReleaseWorkflow
	releases *memReleaseRepo
	envs     *memEnvironmentRepo
	router   *recordingRouter
	registry *stubRegistry
	deployer *recordingDeployer
	prov     *stubProvisioner
}

func newWorkflowFixture(t *testing.T, metrics MetricsSource) *workflowFixture {
	t.Helper()
	releases := newMemReleaseRepo()
	envs := newMemEnvironmentRepo()
	router := &recordingRouter{}
	registry := &stubRegistry{}
	deployer := &recordingDeployer{}
	prov := &stubProvisioner{endpoint: "http://green:8080"}
	ledger := NewVersionLedger()
	rollback := &RollbackCoordinator{Deployer: deployer, Ledger: ledger, Records: &memRecordRepo{}, Now: fixedClock()}
	catalog := &stubCatalog{units: testPool()}
	cfg := canaryTestConfig()

	bluegreen := &BlueGreenController{
		Provisioner:  prov,
		Checker:      &stubChecker{},
		Router:       router,
		Registry:     registry,
		Environments: envs,
		PollInterval: 2 * time.Millisecond,
		Now:          fixedClock(),
	}
	canary := &CanaryController{Catalog: catalog, Deployer: deployer, Metrics: metrics, Rollback: rollback, Ledger: ledger, Config: cfg}
	staged := &StagedRolloutController{Catalog: catalog, Deployer: deployer, Metrics: metrics, Rollback: rollback, Ledger: ledger, Config: cfg}

	wf := &ReleaseWorkflow{
		Releases:     releases,
		BlueGreen:    bluegreen,
		Canary:       canary,
		Staged:       staged,
		ReadyTimeout: 200 * time.Millisecond,
		Retention:    24 * time.Hour,
	}
	return &workflowFixture{workflow: wf, releases: releases, envs: envs, router: router, registry: registry, deployer: deployer, prov: prov}
}

func (f *workflowFixture) createRelease(t *testing.T) Release {
	t.Helper()
	rel := Release{
		ID:        "rel-1",
		Version:   "v2",
		Config:    canaryTestConfig(),
		State:     ReleaseStatePending,
		CreatedAt: fixedClock()(),
	}
	if err := f.releases.Create(context.Background(), rel); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return rel
}

func healthyMetrics() MetricsSource {
	now := time.Now()
	return &scriptedMetrics{
		snapshots: []HealthSnapshot{healthyAt(now)},
		baseline:  healthyAt(now.Add(-time.Hour)),
	}
}

func TestReleaseWorkflowHappyPath(t *testing.T) {
	f := newWorkflowFixture(t, healthyMetrics())
	f.createRelease(t)

	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "rel-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rel, err := f.releases.Get(context.Background(), "rel-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rel.State != ReleaseStateSucceeded {
		t.Fatalf("State = %q, want succeeded", rel.State)
	}
	if rel.Rollout.FinalCoverage != 1.0 {
		t.Fatalf("FinalCoverage = %v, want 1.0", rel.Rollout.FinalCoverage)
	}
	// Canary plus the three configured stages.
	if got := len(rel.Rollout.Stages); got != 4 {
		t.Fatalf("recorded %d stages, want 4", got)
	}
	if rel.Rollout.Stages[0].Name != "canary" {
		t.Fatalf("first stage = %q, want canary", rel.Rollout.Stages[0].Name)
	}

	if n := runner.count("switch-traffic"); n != 1 {
		t.Fatalf("switch-traffic ran %d times, want exactly once", n)
	}
	// The switch happens only after every stage has passed.
	lastStage, switchAt := -1, -1
	for i, name := range runner.names {
		switch name {
		case "execute-stage":
			lastStage = i
		case "switch-traffic":
			switchAt = i
		}
	}
	if switchAt < lastStage {
		t.Fatalf("switch-traffic at step %d before final execute-stage at %d", switchAt, lastStage)
	}

	active, err := f.envs.Active(context.Background())
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.Name != EnvGreen || active.Version != "v2" {
		t.Fatalf("active = %+v, want green on v2", active)
	}
	if len(f.registry.promoted) != 1 || f.registry.promoted[0] != "v2" {
		t.Fatalf("promoted = %v, want [v2]", f.registry.promoted)
	}
}

func TestReleaseWorkflowCanaryFailureRollsBack(t *testing.T) {
	now := time.Now()
	f := newWorkflowFixture(t, &scriptedMetrics{
		snapshots: []HealthSnapshot{unhealthyAt(now)},
		baseline:  healthyAt(now.Add(-time.Hour)),
	})
	f.createRelease(t)

	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "rel-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rel, _ := f.releases.Get(context.Background(), "rel-1")
	if rel.State != ReleaseStateRolledBack {
		t.Fatalf("State = %q, want rolled_back", rel.State)
	}
	if len(rel.Rollout.Stages) != 1 || rel.Rollout.Stages[0].Outcome != StageOutcomeUnhealthy {
		t.Fatalf("Stages = %+v, want the single unhealthy canary", rel.Rollout.Stages)
	}
	if len(rel.Rollout.Errors) == 0 {
		t.Fatal("rollout records no error for the halted canary")
	}
	if n := runner.count("switch-traffic"); n != 0 {
		t.Fatalf("switch-traffic ran %d times after a failed canary", n)
	}
	if len(f.router.calls) != 0 {
		t.Fatalf("router touched after a failed canary: %v", f.router.calls)
	}
}

func TestReleaseWorkflowStageFailureRollsBack(t *testing.T) {
	// Canary (2 units) passes; stage-2 (3 units) breaches the gates.
	f := newWorkflowFixture(t, &coverageAwareMetrics{healthyUpTo: 2, now: time.Now()})
	f.createRelease(t)

	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "rel-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rel, _ := f.releases.Get(context.Background(), "rel-1")
	if rel.State != ReleaseStateRolledBack {
		t.Fatalf("State = %q, want rolled_back", rel.State)
	}
	// Canary, stage-1 healthy, stage-2 unhealthy; stage-3 never runs.
	if got := len(rel.Rollout.Stages); got != 3 {
		t.Fatalf("recorded %d stages, want 3", got)
	}
	last := rel.Rollout.Stages[2]
	if last.Name != "stage-2" || last.Outcome != StageOutcomeUnhealthy {
		t.Fatalf("last stage = %+v, want unhealthy stage-2", last)
	}
	if n := runner.count("switch-traffic"); n != 0 {
		t.Fatal("switch-traffic ran after a failed stage")
	}
	if rel.Rollout.FinalCoverage >= 1.0 {
		t.Fatalf("FinalCoverage = %v after rollback", rel.Rollout.FinalCoverage)
	}
}

func TestReleaseWorkflowProvisionFailure(t *testing.T) {
	f := newWorkflowFixture(t, healthyMetrics())
	f.prov.provErr = fmt.Errorf("no capacity")
	f.createRelease(t)

	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "rel-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rel, _ := f.releases.Get(context.Background(), "rel-1")
	if rel.State != ReleaseStateFailed {
		t.Fatalf("State = %q, want failed", rel.State)
	}
	if len(rel.Deployment.Errors) == 0 {
		t.Fatal("deployment records no error")
	}
	if n := runner.count("run-canary"); n != 0 {
		t.Fatal("canary ran after a failed provision")
	}
	if len(f.deployer.deployed()) != 0 {
		t.Fatalf("units deployed after a failed provision: %v", f.deployer.deployed())
	}
}

func TestReleaseWorkflowArchivesDisplacedEnvironment(t *testing.T) {
	f := newWorkflowFixture(t, healthyMetrics())
	f.createRelease(t)

	// A prior release left blue active on v1.
	f.envs.Put(context.Background(), Environment{Name: EnvBlue, Version: "v1", Status: EnvStatusHealthy, Active: true})

	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "rel-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	blue, err := f.envs.Get(context.Background(), EnvBlue)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if blue.Active {
		t.Fatal("displaced environment still active")
	}
	if blue.ArchiveAfter.IsZero() {
		t.Fatal("displaced environment not marked for archival")
	}
	// Old side drained, new side at full weight.
	foundDrain := false
	for _, call := range f.router.calls {
		if call.Env == EnvBlue && call.Weight == 0.0 {
			foundDrain = true
		}
	}
	if !foundDrain {
		t.Fatalf("blue never drained: %v", f.router.calls)
	}
}

func TestReleaseWorkflowUnknownRelease(t *testing.T) {
	f := newWorkflowFixture(t, healthyMetrics())
	runner := &directRunner{ctx: context.Background()}
	if err := f.workflow.Run(runner, "missing"); err == nil {
		t.Fatal("expected error for unknown release")
	}
}
