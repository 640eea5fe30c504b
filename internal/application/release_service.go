package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// CreateReleaseInput is the caller-provided input for starting a release.
type CreateReleaseInput struct {
	ID      domain.ReleaseID
	Version string
	Config  domain.RolloutConfig
}

// ReleaseService manages release lifecycle and triggers the rollout
// pipeline.
type ReleaseService struct {
	Releases      domain.ReleaseRepository
	Orchestration *OrchestrationService

	Logger  *zap.Logger
	Metrics *EngineMetrics

	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func() domain.ReleaseID
}

// Create validates the configuration, persists a pending release, and
// runs the rollout pipeline to completion. The returned release carries
// the terminal state and the accumulated deployment and rollout results.
func (s *ReleaseService) Create(ctx context.Context, in CreateReleaseInput) (domain.Release, error) {
	if in.Version == "" {
		return domain.Release{}, fmt.Errorf("%w: model version is required", domain.ErrInvalidConfig)
	}
	if err := in.Config.Validate(); err != nil {
		return domain.Release{}, err
	}

	id := in.ID
	if id == "" {
		id = s.newID()
	}
	now := s.now()
	rel := domain.Release{
		ID:        id,
		Version:   in.Version,
		Config:    in.Config,
		State:     domain.ReleaseStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Releases.Create(ctx, rel); err != nil {
		return domain.Release{}, err
	}

	logger := s.logger().With(
		zap.String("release_id", string(rel.ID)),
		zap.String("model_version", rel.Version),
	)
	logger.Info("release started",
		zap.Int("canary_count", rel.Config.CanaryCount),
		zap.Float64s("stage_coverages", rel.Config.StageCoverages),
	)
	s.Metrics.releaseStarted()

	if err := s.Orchestration.Orchestrate(ctx, rel.ID); err != nil {
		logger.Error("release pipeline failed", zap.Error(err))
		return domain.Release{}, fmt.Errorf("orchestrate: %w", err)
	}

	final, err := s.Releases.Get(ctx, rel.ID)
	if err != nil {
		return domain.Release{}, err
	}
	logger.Info("release finished",
		zap.String("state", string(final.State)),
		zap.Float64("final_coverage", final.Rollout.FinalCoverage),
	)
	s.Metrics.releaseCompleted(final)
	return final, nil
}

// Get retrieves a release by ID.
func (s *ReleaseService) Get(ctx context.Context, id domain.ReleaseID) (domain.Release, error) {
	return s.Releases.Get(ctx, id)
}

// List returns all releases.
func (s *ReleaseService) List(ctx context.Context) ([]domain.Release, error) {
	return s.Releases.List(ctx)
}

// Delete removes a release record.
func (s *ReleaseService) Delete(ctx context.Context, id domain.ReleaseID) error {
	return s.Releases.Delete(ctx, id)
}

func (s *ReleaseService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *ReleaseService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ReleaseService) newID() domain.ReleaseID {
	if s.NewID != nil {
		return s.NewID()
	}
	return domain.ReleaseID(uuid.NewString())
}
