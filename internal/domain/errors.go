package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates that a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource with the same identity
	// already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidConfig indicates that a rollout configuration violates a
	// precondition: bad thresholds, decreasing stage coverages, and the
	// like.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoBaseline indicates that the baseline snapshot carries no
	// usable performance figure, so the performance-drop rule cannot be
	// evaluated. Classified as a configuration problem: comparing
	// against a zero baseline is meaningless, not unhealthy.
	ErrNoBaseline = fmt.Errorf("%w: no usable baseline", ErrInvalidConfig)

	// ErrInvalidTransition indicates a disallowed environment status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// DeployError reports a failure during an environment-level operation:
// loading the model, provisioning or verifying the idle environment, or
// the traffic switch.
type DeployError struct {
	Environment EnvironmentID
	Op          string // "load", "provision", "verify", "switch"
	Err         error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy %s environment %q: %v", e.Op, e.Environment, e.Err)
}

func (e *DeployError) Unwrap() error { return e.Err }

// UnitDeployError reports a single-unit deploy failure within a batch.
// By the time the caller sees it, the already-deployed units of the
// batch have been rolled back.
type UnitDeployError struct {
	Unit    UnitID
	Version string
	Err     error
}

func (e *UnitDeployError) Error() string {
	return fmt.Sprintf("deploy version %q to unit %q: %v", e.Version, e.Unit, e.Err)
}

func (e *UnitDeployError) Unwrap() error { return e.Err }

// RolloutError is the classified outcome of an unhealthy monitoring
// verdict. The stage's units have already been rolled back; the error
// carries the full violation list and the rollback record so the caller
// can alert and halt. It is never retried: threshold breaches rarely
// self-resolve within the remaining observation window.
type RolloutError struct {
	Stage    string
	Verdict  Verdict
	Rollback *RollbackRecord
}

func (e *RolloutError) Error() string {
	msgs := make([]string, len(e.Verdict.Violations))
	for i, v := range e.Verdict.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("rollout halted at stage %q: %s", e.Stage, strings.Join(msgs, "; "))
}

// RollbackError reports that one or more units could not be restored to
// their prior version. Fatal: the record lists exactly which units need
// operator intervention, and the error must be surfaced verbatim, never
// swallowed or retried.
type RollbackError struct {
	Record RollbackRecord
}

func (e *RollbackError) Error() string {
	ids := make([]string, len(e.Record.UnrecoveredUnits))
	for i, u := range e.Record.UnrecoveredUnits {
		ids[i] = string(u)
	}
	return fmt.Sprintf("rollback incomplete at stage %q: unrecovered units [%s]",
		e.Record.TriggeringStage, strings.Join(ids, ", "))
}
