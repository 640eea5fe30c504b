package domain

import (
	"context"
	"fmt"
	"time"
)

// BlueGreenController owns the environment pair and the final traffic
// switch. It builds and verifies the new version in the idle
// environment; live validation of the version is delegated to the
// canary and staged-rollout controllers by the release pipeline.
type BlueGreenController struct {
	Provisioner  Provisioner
	Checker      HealthChecker
	Router       TrafficRouter
	Registry     ModelRegistry
	Environments EnvironmentRepository

	// PollInterval paces the readiness probe loop.
	PollInterval time.Duration

	Now func() time.Time
}

// DeployToIdle builds the idle environment and deploys the version into
// it: PENDING while the record is created, DEPLOYING once provisioning
// starts. Any failure tears the partially built environment down before
// the *DeployError surfaces, so a failed attempt leaves nothing behind.
func (c *BlueGreenController) DeployToIdle(ctx context.Context, target EnvironmentID, version string) (Environment, error) {
	env := Environment{
		Name:       target,
		Version:    version,
		Status:     EnvStatusPending,
		DeployedAt: c.now(),
	}
	if err := c.Environments.Put(ctx, env); err != nil {
		return env, fmt.Errorf("record environment: %w", err)
	}

	if err := c.Registry.Load(ctx, version); err != nil {
		return c.failEnvironment(ctx, env, false, &DeployError{Environment: target, Op: "load", Err: err})
	}

	if err := env.Transition(EnvStatusDeploying); err != nil {
		return env, err
	}
	if err := c.Environments.Put(ctx, env); err != nil {
		return env, fmt.Errorf("record environment: %w", err)
	}

	endpoint, err := c.Provisioner.Provision(ctx, target, version)
	if err != nil {
		return c.failEnvironment(ctx, env, true, &DeployError{Environment: target, Op: "provision", Err: err})
	}
	env.Endpoint = endpoint

	// Post-deploy verification: one probe against the fresh endpoint.
	if err := c.Checker.Check(ctx, endpoint); err != nil {
		return c.failEnvironment(ctx, env, true, &DeployError{Environment: target, Op: "verify", Err: err})
	}

	if err := c.Environments.Put(ctx, env); err != nil {
		return env, fmt.Errorf("record environment: %w", err)
	}
	return env, nil
}

func (c *BlueGreenController) failEnvironment(ctx context.Context, env Environment, teardown bool, cause *DeployError) (Environment, error) {
	if teardown {
		// Best effort; the original failure is what the caller needs.
		_ = c.Provisioner.Teardown(ctx, env.Name)
	}
	env.Status = EnvStatusFailed
	_ = c.Environments.Put(ctx, env)
	return env, cause
}

// WaitForReady polls the environment's health endpoint until it answers
// healthy or the timeout elapses, and returns a definite verdict either
// way. The poll is cancellable through ctx and holds no locks across
// the network call. On success the environment transitions to HEALTHY;
// on timeout, to UNHEALTHY (terminal for this attempt).
func (c *BlueGreenController) WaitForReady(ctx context.Context, env Environment, timeout time.Duration) (Environment, bool, error) {
	if timeout <= 0 {
		return env, false, fmt.Errorf("%w: readiness timeout must be positive", ErrInvalidConfig)
	}
	interval := c.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return env, false, ctx.Err()
		case <-deadline.C:
			if err := env.Transition(EnvStatusUnhealthy); err != nil {
				return env, false, err
			}
			if err := c.Environments.Put(ctx, env); err != nil {
				return env, false, fmt.Errorf("record environment: %w", err)
			}
			return env, false, nil
		case <-ticker.C:
			if err := c.Checker.Check(ctx, env.Endpoint); err != nil {
				continue
			}
			if err := env.Transition(EnvStatusHealthy); err != nil {
				return env, false, err
			}
			if err := c.Environments.Put(ctx, env); err != nil {
				return env, false, fmt.Errorf("record environment: %w", err)
			}
			return env, true, nil
		}
	}
}

// SwitchTraffic points the router at the target environment and
// re-verifies the target is answering. Single attempt by contract: the
// switch is not retried internally, because a failed switch needs
// operator judgment about router state; callers that want bounded retry
// wrap this call.
func (c *BlueGreenController) SwitchTraffic(ctx context.Context, from, to EnvironmentID) error {
	target, err := c.Environments.Get(ctx, to)
	if err != nil {
		return fmt.Errorf("load target environment: %w", err)
	}
	if target.Status != EnvStatusHealthy {
		return &DeployError{Environment: to, Op: "switch",
			Err: fmt.Errorf("environment status is %q, want %q", target.Status, EnvStatusHealthy)}
	}

	if err := c.Router.SetWeights(ctx, to, 1.0); err != nil {
		return &DeployError{Environment: to, Op: "switch", Err: err}
	}
	if err := c.Router.SetWeights(ctx, from, 0.0); err != nil {
		return &DeployError{Environment: from, Op: "switch", Err: err}
	}

	// Re-verify traffic lands on the new side.
	if err := c.Checker.Check(ctx, target.Endpoint); err != nil {
		return &DeployError{Environment: to, Op: "switch", Err: fmt.Errorf("post-switch verification: %w", err)}
	}

	if err := c.Registry.PromoteToProduction(ctx, target.Version); err != nil {
		return &DeployError{Environment: to, Op: "switch", Err: fmt.Errorf("promote version: %w", err)}
	}

	// Exactly one environment serves production traffic at a time.
	if err := c.Environments.SetActive(ctx, to); err != nil {
		return fmt.Errorf("record active environment: %w", err)
	}
	return nil
}

// Archive marks an environment for delayed cleanup after the retention
// window. Non-blocking: actual teardown is a later housekeeping
// concern, and keeping the environment preserves rollback capability.
func (c *BlueGreenController) Archive(ctx context.Context, id EnvironmentID, retention time.Duration) error {
	env, err := c.Environments.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	env.ArchiveAfter = c.now().Add(retention)
	if err := c.Environments.Put(ctx, env); err != nil {
		return fmt.Errorf("record environment: %w", err)
	}
	return nil
}

// CurrentVersion returns the version served by the active environment.
func (c *BlueGreenController) CurrentVersion(ctx context.Context) (string, error) {
	env, err := c.Environments.Active(ctx)
	if err != nil {
		return "", err
	}
	return env.Version, nil
}

func (c *BlueGreenController) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}
