package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// RollbackRecordRepo implements [domain.RollbackRecordRepository] backed
// by SQLite. The table is append-only.
type RollbackRecordRepo struct {
	DB *sql.DB
}

func (r *RollbackRecordRepo) Append(ctx context.Context, rec domain.RollbackRecord) error {
	affected, err := json.Marshal(rec.AffectedUnits)
	if err != nil {
		return fmt.Errorf("marshal affected units: %w", err)
	}
	unrecovered, err := json.Marshal(rec.UnrecoveredUnits)
	if err != nil {
		return fmt.Errorf("marshal unrecovered units: %w", err)
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO rollback_records (id, triggering_stage, previous_version, affected_units, unrecovered_units, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TriggeringStage, rec.PreviousVersion,
		string(affected), string(unrecovered), rec.Reason, formatTime(rec.Timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rollback record %q: %w", rec.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert rollback record: %w", err)
	}
	return nil
}

func (r *RollbackRecordRepo) List(ctx context.Context) ([]domain.RollbackRecord, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, triggering_stage, previous_version, affected_units, unrecovered_units, reason, created_at
		 FROM rollback_records ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list rollback records: %w", err)
	}
	defer rows.Close()

	var records []domain.RollbackRecord
	for rows.Next() {
		rec, err := scanRollbackRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRollbackRecord(rows *sql.Rows) (domain.RollbackRecord, error) {
	var rec domain.RollbackRecord
	var affectedJSON, unrecoveredJSON, createdAtStr string
	if err := rows.Scan(&rec.ID, &rec.TriggeringStage, &rec.PreviousVersion,
		&affectedJSON, &unrecoveredJSON, &rec.Reason, &createdAtStr); err != nil {
		return rec, fmt.Errorf("scan rollback record: %w", err)
	}
	if err := json.Unmarshal([]byte(affectedJSON), &rec.AffectedUnits); err != nil {
		return rec, fmt.Errorf("unmarshal affected units: %w", err)
	}
	if err := json.Unmarshal([]byte(unrecoveredJSON), &rec.UnrecoveredUnits); err != nil {
		return rec, fmt.Errorf("unmarshal unrecovered units: %w", err)
	}
	var err error
	if rec.Timestamp, err = parseTime(createdAtStr); err != nil {
		return rec, err
	}
	return rec, nil
}
