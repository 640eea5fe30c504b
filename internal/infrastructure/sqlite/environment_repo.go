package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// EnvironmentRepo implements [domain.EnvironmentRepository] backed by
// SQLite. Environments are named slots, so Put upserts.
type EnvironmentRepo struct {
	DB *sql.DB
}

func (r *EnvironmentRepo) Put(ctx context.Context, e domain.Environment) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO environments (name, endpoint, version, status, active, deployed_at, archive_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   endpoint = excluded.endpoint,
		   version = excluded.version,
		   status = excluded.status,
		   active = excluded.active,
		   deployed_at = excluded.deployed_at,
		   archive_after = excluded.archive_after`,
		string(e.Name), e.Endpoint, e.Version, string(e.Status),
		boolToInt(e.Active), formatTime(e.DeployedAt), formatTime(e.ArchiveAfter),
	)
	if err != nil {
		return fmt.Errorf("upsert environment: %w", err)
	}
	return nil
}

func (r *EnvironmentRepo) Get(ctx context.Context, id domain.EnvironmentID) (domain.Environment, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT name, endpoint, version, status, active, deployed_at, archive_after
		 FROM environments WHERE name = ?`,
		string(id),
	)
	return scanEnvironment(row)
}

func (r *EnvironmentRepo) List(ctx context.Context) ([]domain.Environment, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT name, endpoint, version, status, active, deployed_at, archive_after
		 FROM environments ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	defer rows.Close()

	var envs []domain.Environment
	for rows.Next() {
		e, err := scanEnvironment(rows)
		if err != nil {
			return nil, err
		}
		envs = append(envs, e)
	}
	return envs, rows.Err()
}

func (r *EnvironmentRepo) SetActive(ctx context.Context, id domain.EnvironmentID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE environments SET active = 1 WHERE name = ?`, string(id))
	if err != nil {
		return fmt.Errorf("mark active: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("environment %q: %w", id, domain.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE environments SET active = 0 WHERE name != ?`, string(id)); err != nil {
		return fmt.Errorf("clear active: %w", err)
	}
	return tx.Commit()
}

func (r *EnvironmentRepo) Active(ctx context.Context) (domain.Environment, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT name, endpoint, version, status, active, deployed_at, archive_after
		 FROM environments WHERE active = 1`,
	)
	return scanEnvironment(row)
}

func scanEnvironment(s scanner) (domain.Environment, error) {
	var e domain.Environment
	var name, statusStr, deployedAtStr, archiveAfterStr string
	var active int
	if err := s.Scan(&name, &e.Endpoint, &e.Version, &statusStr, &active, &deployedAtStr, &archiveAfterStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return e, fmt.Errorf("scan environment: %w", err)
	}
	e.Name = domain.EnvironmentID(name)
	e.Status = domain.EnvironmentStatus(statusStr)
	e.Active = active != 0

	var err error
	if e.DeployedAt, err = parseTime(deployedAtStr); err != nil {
		return e, err
	}
	if e.ArchiveAfter, err = parseTime(archiveAfterStr); err != nil {
		return e, err
	}
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
