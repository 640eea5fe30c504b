package domain

import "time"

// EnvironmentID names one of the deployment environments.
type EnvironmentID string

const (
	EnvBlue       EnvironmentID = "blue"
	EnvGreen      EnvironmentID = "green"
	EnvStaging    EnvironmentID = "staging"
	EnvProduction EnvironmentID = "production"
)

// EnvironmentStatus is the lifecycle state of an environment during a
// rollout attempt. Failed and unhealthy are terminal for that attempt;
// only a healthy environment may receive the traffic switch.
type EnvironmentStatus string

const (
	EnvStatusPending   EnvironmentStatus = "pending"
	EnvStatusDeploying EnvironmentStatus = "deploying"
	EnvStatusHealthy   EnvironmentStatus = "healthy"
	EnvStatusUnhealthy EnvironmentStatus = "unhealthy"
	EnvStatusFailed    EnvironmentStatus = "failed"
)

// Environment is one side of the blue/green pair (or an auxiliary
// staging/production environment). Environments are archived, never
// deleted, so the prior version stays available for rollback until the
// retention window passes.
type Environment struct {
	Name       EnvironmentID
	Endpoint   string
	Version    string
	Status     EnvironmentStatus
	Active     bool // serving production traffic
	DeployedAt time.Time

	// ArchiveAfter marks the environment for delayed cleanup. Zero
	// until Archive is called.
	ArchiveAfter time.Time
}

var environmentTransitions = map[EnvironmentStatus][]EnvironmentStatus{
	EnvStatusPending:   {EnvStatusDeploying, EnvStatusFailed},
	EnvStatusDeploying: {EnvStatusHealthy, EnvStatusUnhealthy, EnvStatusFailed},
}

// Transition moves the environment to the next lifecycle status,
// rejecting moves the state machine does not allow.
func (e *Environment) Transition(to EnvironmentStatus) error {
	for _, allowed := range environmentTransitions[e.Status] {
		if allowed == to {
			e.Status = to
			return nil
		}
	}
	return errInvalidTransition(e.Status, to)
}

func errInvalidTransition(from, to EnvironmentStatus) error {
	return &transitionError{from: from, to: to}
}

type transitionError struct {
	from, to EnvironmentStatus
}

func (e *transitionError) Error() string {
	return string(e.from) + " -> " + string(e.to) + ": " + ErrInvalidTransition.Error()
}

func (e *transitionError) Unwrap() error { return ErrInvalidTransition }
