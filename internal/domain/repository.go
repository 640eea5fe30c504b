package domain

import "context"

// ReleaseRepository persists and retrieves releases.
type ReleaseRepository interface {
	Create(ctx context.Context, r Release) error
	Get(ctx context.Context, id ReleaseID) (Release, error)
	List(ctx context.Context) ([]Release, error)
	Update(ctx context.Context, r Release) error
	Delete(ctx context.Context, id ReleaseID) error
}

// UnitRepository persists the unit catalog and each unit's currently
// deployed version. It doubles as the [UnitCatalog] the controllers
// select from.
type UnitRepository interface {
	UnitCatalog
	Create(ctx context.Context, u UnitInfo) error
	Get(ctx context.Context, id UnitID) (UnitInfo, error)
	SetVersion(ctx context.Context, id UnitID, version string) error
	Delete(ctx context.Context, id UnitID) error
}

// EnvironmentRepository persists environment state. Put upserts; an
// environment is a named slot, not an append-only log.
type EnvironmentRepository interface {
	Put(ctx context.Context, e Environment) error
	Get(ctx context.Context, id EnvironmentID) (Environment, error)
	List(ctx context.Context) ([]Environment, error)

	// SetActive atomically marks the given environment active and every
	// other environment inactive.
	SetActive(ctx context.Context, id EnvironmentID) error

	// Active returns the environment currently serving production
	// traffic, or ErrNotFound when none is marked.
	Active(ctx context.Context) (Environment, error)
}

// RollbackRecordRepository persists the append-only rollback audit log.
type RollbackRecordRepository interface {
	Append(ctx context.Context, r RollbackRecord) error
	List(ctx context.Context) ([]RollbackRecord, error)
}
