package sqlite

import (
	"context"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// RecordingDeployer implements [domain.UnitDeployer] by recording the
// deployed version in the unit catalog. This is the naive implementation
// used until a real per-unit serving integration is available; it keeps
// the catalog's view of each unit's version consistent with what the
// rollout has done, which is what selection and delta computation read.
type RecordingDeployer struct {
	Units *UnitRepo
}

func (d *RecordingDeployer) Deploy(ctx context.Context, unit domain.UnitID, version string) error {
	return d.Units.SetVersion(ctx, unit, version)
}
