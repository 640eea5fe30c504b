package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// ReleaseRepo implements [domain.ReleaseRepository] backed by SQLite.
type ReleaseRepo struct {
	DB *sql.DB
}

func (r *ReleaseRepo) Create(ctx context.Context, rel domain.Release) error {
	config, deployment, rollout, err := marshalRelease(rel)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO releases (id, version, config, state, deployment, rollout, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rel.ID), rel.Version, config, string(rel.State),
		deployment, rollout, formatTime(rel.CreatedAt), formatTime(rel.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("release %q: %w", rel.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert release: %w", err)
	}
	return nil
}

func (r *ReleaseRepo) Get(ctx context.Context, id domain.ReleaseID) (domain.Release, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, version, config, state, deployment, rollout, created_at, updated_at
		 FROM releases WHERE id = ?`,
		string(id),
	)
	return scanRelease(row)
}

func (r *ReleaseRepo) List(ctx context.Context) ([]domain.Release, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, version, config, state, deployment, rollout, created_at, updated_at
		 FROM releases ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	var releases []domain.Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, rel)
	}
	return releases, rows.Err()
}

func (r *ReleaseRepo) Update(ctx context.Context, rel domain.Release) error {
	config, deployment, rollout, err := marshalRelease(rel)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE releases
		 SET version = ?, config = ?, state = ?, deployment = ?, rollout = ?, updated_at = ?
		 WHERE id = ?`,
		rel.Version, config, string(rel.State), deployment, rollout,
		formatTime(rel.UpdatedAt), string(rel.ID),
	)
	if err != nil {
		return fmt.Errorf("update release: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("release %q: %w", rel.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *ReleaseRepo) Delete(ctx context.Context, id domain.ReleaseID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete release: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("release %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func marshalRelease(rel domain.Release) (config, deployment, rollout string, err error) {
	c, err := json.Marshal(rel.Config)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal config: %w", err)
	}
	d, err := json.Marshal(rel.Deployment)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal deployment: %w", err)
	}
	ro, err := json.Marshal(rel.Rollout)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal rollout: %w", err)
	}
	return string(c), string(d), string(ro), nil
}

func scanRelease(s scanner) (domain.Release, error) {
	var rel domain.Release
	var id, configJSON, stateStr, deploymentJSON, rolloutJSON, createdAtStr, updatedAtStr string
	if err := s.Scan(&id, &rel.Version, &configJSON, &stateStr, &deploymentJSON, &rolloutJSON, &createdAtStr, &updatedAtStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rel, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return rel, fmt.Errorf("scan release: %w", err)
	}
	rel.ID = domain.ReleaseID(id)
	rel.State = domain.ReleaseState(stateStr)

	if err := json.Unmarshal([]byte(configJSON), &rel.Config); err != nil {
		return rel, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(deploymentJSON), &rel.Deployment); err != nil {
		return rel, fmt.Errorf("unmarshal deployment: %w", err)
	}
	if err := json.Unmarshal([]byte(rolloutJSON), &rel.Rollout); err != nil {
		return rel, fmt.Errorf("unmarshal rollout: %w", err)
	}

	var err error
	if rel.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return rel, err
	}
	if rel.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return rel, err
	}
	return rel, nil
}
