package domain

import "time"

// ReleaseID identifies one rollout pipeline invocation.
type ReleaseID string

// ReleaseState is the lifecycle state of a release.
type ReleaseState string

const (
	ReleaseStatePending    ReleaseState = "pending"
	ReleaseStateRunning    ReleaseState = "running"
	ReleaseStateSucceeded  ReleaseState = "succeeded"
	ReleaseStateFailed     ReleaseState = "failed"
	ReleaseStateRolledBack ReleaseState = "rolled_back"
)

// Release is the aggregate of one zero-downtime rollout: the version
// being promoted, the pipeline configuration, and the accumulated
// deployment and rollout results. The caller enforces at most one
// active release per target; the engine does no cross-pipeline locking.
type Release struct {
	ID         ReleaseID
	Version    string
	Config     RolloutConfig
	State      ReleaseState
	Deployment DeploymentResult
	Rollout    RolloutResult
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
