// Package releaserepotest provides contract tests for
// [domain.ReleaseRepository] implementations.
package releaserepotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// Factory creates a fresh [domain.ReleaseRepository] for each test
// invocation.
type Factory func(t *testing.T) domain.ReleaseRepository

func sampleRelease(id domain.ReleaseID) domain.Release {
	return domain.Release{
		ID:        id,
		Version:   "v2",
		Config:    domain.DefaultRolloutConfig(),
		State:     domain.ReleaseStatePending,
		CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

// Run exercises the [domain.ReleaseRepository] contract.
func Run(t *testing.T, factory Factory) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, sampleRelease("rel-1")); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := repo.Get(ctx, "rel-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Version != "v2" {
			t.Errorf("Version = %q, want %q", got.Version, "v2")
		}
		if got.State != domain.ReleaseStatePending {
			t.Errorf("State = %q, want pending", got.State)
		}
		if got.Config.CanaryCount != 2 {
			t.Errorf("Config.CanaryCount = %d, want 2", got.Config.CanaryCount)
		}
		if len(got.Config.StageCoverages) != 3 {
			t.Errorf("Config.StageCoverages = %v, want three stages", got.Config.StageCoverages)
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, sampleRelease("rel-1")); err != nil {
			t.Fatalf("first Create: %v", err)
		}
		err := repo.Create(ctx, sampleRelease("rel-1"))
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("second Create: got %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := factory(t)
		_, err := repo.Get(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		rel := sampleRelease("rel-1")
		if err := repo.Create(ctx, rel); err != nil {
			t.Fatal(err)
		}

		rel.State = domain.ReleaseStateRolledBack
		rel.Rollout = domain.RolloutResult{
			Stages: []domain.RolloutStage{{
				Name:           "canary",
				TargetCoverage: 0.4,
				UnitIDs:        []domain.UnitID{"eurusd", "gbpusd"},
				Outcome:        domain.StageOutcomeUnhealthy,
				Violations: []domain.Violation{
					{Rule: "error_rate", Observed: 0.08, Limit: 0.01},
				},
			}},
			Errors: []string{"error_rate 0.0800 exceeds 0.0100"},
		}
		if err := repo.Update(ctx, rel); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, err := repo.Get(ctx, "rel-1")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.State != domain.ReleaseStateRolledBack {
			t.Errorf("State = %q, want rolled_back", got.State)
		}
		if len(got.Rollout.Stages) != 1 {
			t.Fatalf("Rollout.Stages = %+v, want one stage", got.Rollout.Stages)
		}
		if got.Rollout.Stages[0].Outcome != domain.StageOutcomeUnhealthy {
			t.Errorf("stage outcome = %q, want unhealthy", got.Rollout.Stages[0].Outcome)
		}
		if len(got.Rollout.Stages[0].Violations) != 1 {
			t.Errorf("violations = %v, want one entry", got.Rollout.Stages[0].Violations)
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.Update(context.Background(), sampleRelease("nonexistent"))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Update: got %v, want ErrNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		for _, id := range []domain.ReleaseID{"rel-1", "rel-2"} {
			if err := repo.Create(ctx, sampleRelease(id)); err != nil {
				t.Fatalf("Create %s: %v", id, err)
			}
		}

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("List: got %d, want 2", len(got))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, sampleRelease("rel-1")); err != nil {
			t.Fatal(err)
		}
		if err := repo.Delete(ctx, "rel-1"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		_, err := repo.Get(ctx, "rel-1")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Get after Delete: got %v, want ErrNotFound", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.Delete(context.Background(), "nonexistent")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("Delete: got %v, want ErrNotFound", err)
		}
	})
}
