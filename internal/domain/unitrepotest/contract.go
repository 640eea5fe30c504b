// Package unitrepotest provides contract tests for [domain.UnitRepository]
// implementations.
package unitrepotest

import (
	"context"
	"errors"
	"testing"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// Factory creates a fresh [domain.UnitRepository] for each test invocation.
type Factory func(t *testing.T) domain.UnitRepository

// Run exercises the [domain.UnitRepository] contract.
func Run(t *testing.T, factory Factory) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		unit := domain.UnitInfo{
			ID:      "eurusd",
			Volume:  900,
			Version: "v1",
			Labels:  map[string]string{"desk": "fx-majors"},
		}

		if err := repo.Create(ctx, unit); err != nil {
			t.Fatalf("Create: %v", err)
		}

		got, err := repo.Get(ctx, "eurusd")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Volume != 900 {
			t.Errorf("Volume = %v, want 900", got.Volume)
		}
		if got.Version != "v1" {
			t.Errorf("Version = %q, want %q", got.Version, "v1")
		}
		if got.Labels["desk"] != "fx-majors" {
			t.Errorf("Labels[desk] = %q, want %q", got.Labels["desk"], "fx-majors")
		}
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()
		unit := domain.UnitInfo{ID: "eurusd", Volume: 900, Version: "v1"}

		if err := repo.Create(ctx, unit); err != nil {
			t.Fatalf("first Create: %v", err)
		}
		err := repo.Create(ctx, unit)
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

	t.Run("List", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		units := []domain.UnitInfo{
			{ID: "eurusd", Volume: 900, Version: "v1"},
			{ID: "gbpusd", Volume: 700, Version: "v1"},
		}
		for _, u := range units {
			if err := repo.Create(ctx, u); err != nil {
				t.Fatalf("Create %s: %v", u.ID, err)
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

	t.Run("SetVersion", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, domain.UnitInfo{ID: "eurusd", Volume: 900, Version: "v1"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.SetVersion(ctx, "eurusd", "v2"); err != nil {
			t.Fatalf("SetVersion: %v", err)
		}
		got, err := repo.Get(ctx, "eurusd")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Version != "v2" {
			t.Errorf("Version = %q, want %q", got.Version, "v2")
		}
	})

	t.Run("SetVersionNotFound", func(t *testing.T) {
		repo := factory(t)
		err := repo.SetVersion(context.Background(), "nonexistent", "v2")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("SetVersion: got %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := factory(t)
		ctx := context.Background()

		if err := repo.Create(ctx, domain.UnitInfo{ID: "eurusd", Volume: 900, Version: "v1"}); err != nil {
			t.Fatal(err)
		}
		if err := repo.Delete(ctx, "eurusd"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		_, err := repo.Get(ctx, "eurusd")
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
