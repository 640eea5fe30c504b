package domain

import (
	"context"
	"errors"
	"fmt"
)

// deployBatch deploys a version to each unit in order, recording every
// success in the ledger. If a unit fails mid-batch, the already-deployed
// prefix is rolled back before the error propagates, so the batch is
// atomic from the caller's perspective.
func deployBatch(ctx context.Context, deployer UnitDeployer, ledger *VersionLedger, rollback *RollbackCoordinator, units []UnitID, version, stage string) error {
	var deployed []UnitID
	for _, id := range units {
		if err := deployer.Deploy(ctx, id, version); err != nil {
			unitErr := &UnitDeployError{Unit: id, Version: version, Err: err}
			if len(deployed) > 0 {
				reason := fmt.Sprintf("partial batch deploy: %v", unitErr)
				if _, rbErr := rollback.Rollback(ctx, deployed, stage, reason); rbErr != nil {
					return errors.Join(unitErr, rbErr)
				}
			}
			return unitErr
		}
		ledger.Record(id, version)
		deployed = append(deployed, id)
	}
	return nil
}

// seedLedger registers each unit's catalog version as its pre-rollout
// version, so rollback always knows what to restore.
func seedLedger(ledger *VersionLedger, pool []UnitInfo, units []UnitID) {
	byID := make(map[UnitID]UnitInfo, len(pool))
	for _, info := range pool {
		byID[info.ID] = info
	}
	for _, id := range units {
		if info, ok := byID[id]; ok {
			ledger.Seed(id, info.Version)
		}
	}
}
