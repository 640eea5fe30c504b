package application

import (
	"context"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// UnitService manages unit registration and queries.
type UnitService struct {
	Units domain.UnitRepository
}

func (s *UnitService) Register(ctx context.Context, unit domain.UnitInfo) error {
	if unit.ID == "" {
		return fmt.Errorf("%w: unit ID is required", domain.ErrInvalidConfig)
	}
	if unit.Volume < 0 {
		return fmt.Errorf("%w: unit volume must not be negative", domain.ErrInvalidConfig)
	}
	return s.Units.Create(ctx, unit)
}

func (s *UnitService) Get(ctx context.Context, id domain.UnitID) (domain.UnitInfo, error) {
	return s.Units.Get(ctx, id)
}

func (s *UnitService) List(ctx context.Context) ([]domain.UnitInfo, error) {
	return s.Units.List(ctx)
}

func (s *UnitService) Deregister(ctx context.Context, id domain.UnitID) error {
	return s.Units.Delete(ctx, id)
}
