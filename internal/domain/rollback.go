package domain

import (
	"context"
	"fmt"
	"time"
)

// RollbackRecord is the append-only audit trail of one rollback pass.
// Every unit touched by the failed stage appears either in
// AffectedUnits (reverted) or in UnrecoveredUnits; a silently partial
// rollback is not a valid terminal state.
type RollbackRecord struct {
	ID               string    `json:"id"`
	TriggeringStage  string    `json:"triggering_stage"`
	PreviousVersion  string    `json:"previous_version"`
	AffectedUnits    []UnitID  `json:"affected_units"`
	UnrecoveredUnits []UnitID  `json:"unrecovered_units,omitempty"`
	Reason           string    `json:"reason"`
	Timestamp        time.Time `json:"timestamp"`
}

// RollbackCoordinator reverts units to their prior version. Per-unit
// failures are collected rather than aborting the batch, so one
// unresponsive unit does not block reverting the rest.
type RollbackCoordinator struct {
	Deployer UnitDeployer
	Ledger   *VersionLedger

	// Records receives the audit record. Optional; nil skips persistence.
	Records RollbackRecordRepository

	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// Rollback attempts to revert every given unit. The returned record is
// always populated, even on failure. When any unit cannot be restored
// the error is a *RollbackError carrying the record; that condition is
// fatal and must be escalated, never retried silently.
func (c *RollbackCoordinator) Rollback(ctx context.Context, units []UnitID, stage, reason string) (RollbackRecord, error) {
	record := RollbackRecord{
		ID:              c.newID(),
		TriggeringStage: stage,
		Reason:          reason,
		Timestamp:       c.now(),
	}

	for _, id := range units {
		prev, ok := c.Ledger.Previous(id)
		if !ok {
			record.UnrecoveredUnits = append(record.UnrecoveredUnits, id)
			continue
		}
		if err := c.Deployer.Deploy(ctx, id, prev); err != nil {
			record.UnrecoveredUnits = append(record.UnrecoveredUnits, id)
			continue
		}
		c.Ledger.Revert(id)
		record.AffectedUnits = append(record.AffectedUnits, id)
		if record.PreviousVersion == "" {
			record.PreviousVersion = prev
		}
	}

	if c.Records != nil {
		if err := c.Records.Append(ctx, record); err != nil {
			// The reverts already happened; surface the lost audit row
			// without masking an incomplete rollback.
			if len(record.UnrecoveredUnits) > 0 {
				return record, &RollbackError{Record: record}
			}
			return record, fmt.Errorf("append rollback record: %w", err)
		}
	}

	if len(record.UnrecoveredUnits) > 0 {
		return record, &RollbackError{Record: record}
	}
	return record, nil
}

func (c *RollbackCoordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *RollbackCoordinator) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return newRecordID()
}
