package domain

import "time"

// StageOutcome is the health gate result of one rollout stage.
type StageOutcome string

const (
	StageOutcomePending   StageOutcome = "pending"
	StageOutcomeHealthy   StageOutcome = "healthy"
	StageOutcomeUnhealthy StageOutcome = "unhealthy"
)

// RolloutStage is one coverage step of the staged rollout. UnitIDs is
// the cumulative set exposed to the new version at this stage; each
// stage's set is a superset of the previous stage's.
type RolloutStage struct {
	Name              string         `json:"name"`
	TargetCoverage    float64        `json:"target_coverage"`
	UnitIDs           []UnitID       `json:"unit_ids"`
	ObservationPeriod time.Duration  `json:"observation_period"`
	Outcome           StageOutcome   `json:"outcome"`
	Snapshot          HealthSnapshot `json:"snapshot"`
	Violations        []Violation    `json:"violations,omitempty"`
}

// RolloutResult is the caller-facing summary of the canary plus staged
// rollout phases.
type RolloutResult struct {
	Stages        []RolloutStage `json:"stages"`
	FinalCoverage float64        `json:"final_coverage"`
	Errors        []string       `json:"errors,omitempty"`
}

// DeploymentResult is the caller-facing summary of the blue/green phase.
type DeploymentResult struct {
	Version     string            `json:"model_version"`
	Environment EnvironmentID     `json:"environment"`
	Endpoint    string            `json:"endpoint"`
	Status      EnvironmentStatus `json:"status"`
	Errors      []string          `json:"errors,omitempty"`
}
