package domain

import "context"

// MetricsSource supplies point-in-time health snapshots for a unit set
// and the baseline those snapshots are judged against. Implementations
// query the external metrics backend; the engine never computes metrics
// itself.
type MetricsSource interface {
	Snapshot(ctx context.Context, units []UnitID) (HealthSnapshot, error)
	Baseline(ctx context.Context, units []UnitID) (HealthSnapshot, error)
}

// UnitDeployer deploys a version to a single unit. Rollback reuses the
// same port with the unit's prior version.
type UnitDeployer interface {
	Deploy(ctx context.Context, unit UnitID, version string) error
}

// TrafficRouter updates the weight an environment receives from the
// load balancer. Weight 1 means all production traffic.
type TrafficRouter interface {
	SetWeights(ctx context.Context, env EnvironmentID, weight float64) error
}

// ModelRegistry is the external model/version registry.
type ModelRegistry interface {
	Load(ctx context.Context, version string) error
	PromoteToProduction(ctx context.Context, version string) error
}

// Provisioner builds and tears down environments. Provision returns the
// endpoint the environment serves on once its processes are up.
type Provisioner interface {
	Provision(ctx context.Context, env EnvironmentID, version string) (endpoint string, err error)
	Teardown(ctx context.Context, env EnvironmentID) error
}

// HealthChecker probes an environment endpoint. A nil return means the
// endpoint answered healthy.
type HealthChecker interface {
	Check(ctx context.Context, endpoint string) error
}

// UnitCatalog lists the deployable units. Injected so selection logic
// never depends on hard-coded unit lists.
type UnitCatalog interface {
	List(ctx context.Context) ([]UnitInfo, error)
}
