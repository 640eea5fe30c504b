// Package rollbackrecordrepotest provides contract tests for
// [domain.RollbackRecordRepository] implementations.
package rollbackrecordrepotest

import (
	"context"
	"testing"
	"time"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// Factory creates a fresh [domain.RollbackRecordRepository] for each
// test invocation.
type Factory func(t *testing.T) domain.RollbackRecordRepository

// Run exercises the [domain.RollbackRecordRepository] contract.
func Run(t *testing.T, factory Factory) {
	t.Run("AppendAndList", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		record := domain.RollbackRecord{
			ID:              "rb-1",
			TriggeringStage: "canary",
			PreviousVersion: "v1",
			AffectedUnits:   []domain.UnitID{"eurusd", "gbpusd"},
			Reason:          "error_rate 0.0800 exceeds 0.0100",
			Timestamp:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		}
		if err := repo.Append(ctx, record); err != nil {
			t.Fatalf("Append: %v", err)
		}

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("List: got %d, want 1", len(got))
		}
		if got[0].ID != "rb-1" {
			t.Errorf("ID = %q, want rb-1", got[0].ID)
		}
		if got[0].TriggeringStage != "canary" {
			t.Errorf("TriggeringStage = %q, want canary", got[0].TriggeringStage)
		}
		if len(got[0].AffectedUnits) != 2 {
			t.Errorf("AffectedUnits = %v, want two units", got[0].AffectedUnits)
		}
	})

	t.Run("PreservesUnrecoveredUnits", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		record := domain.RollbackRecord{
			ID:               "rb-2",
			TriggeringStage:  "stage-2",
			PreviousVersion:  "v1",
			AffectedUnits:    []domain.UnitID{"eurusd"},
			UnrecoveredUnits: []domain.UnitID{"gbpusd"},
			Reason:           "latency_p99 450.0000 exceeds 200.0000",
			Timestamp:        time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC),
		}
		if err := repo.Append(ctx, record); err != nil {
			t.Fatalf("Append: %v", err)
		}

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("List: got %d, want 1", len(got))
		}
		if len(got[0].UnrecoveredUnits) != 1 || got[0].UnrecoveredUnits[0] != "gbpusd" {
			t.Errorf("UnrecoveredUnits = %v, want [gbpusd]", got[0].UnrecoveredUnits)
		}
	})

	t.Run("ListOrderedByTime", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		for i, id := range []string{"rb-1", "rb-2", "rb-3"} {
			record := domain.RollbackRecord{
				ID:              id,
				TriggeringStage: "canary",
				Reason:          "reason",
				Timestamp:       base.Add(time.Duration(i) * time.Minute),
			}
			if err := repo.Append(ctx, record); err != nil {
				t.Fatalf("Append %s: %v", id, err)
			}
		}

		got, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List: got %d, want 3", len(got))
		}
		for i, id := range []string{"rb-1", "rb-2", "rb-3"} {
			if got[i].ID != id {
				t.Errorf("position %d: got %q, want %q", i, got[i].ID, id)
			}
		}
	})

	t.Run("ListEmpty", func(t *testing.T) {
		repo := factory(t)
		got, err := repo.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("List: got %d, want 0", len(got))
		}
	})
}
