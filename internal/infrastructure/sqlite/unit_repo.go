package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelshift/modelshift-server/internal/domain"
)

// UnitRepo implements [domain.UnitRepository] backed by SQLite.
type UnitRepo struct {
	DB *sql.DB
}

func (r *UnitRepo) Create(ctx context.Context, u domain.UnitInfo) error {
	labels, err := json.Marshal(u.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO units (id, volume, version, labels) VALUES (?, ?, ?, ?)`,
		string(u.ID), u.Volume, u.Version, string(labels),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("unit %q: %w", u.ID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

func (r *UnitRepo) Get(ctx context.Context, id domain.UnitID) (domain.UnitInfo, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT id, volume, version, labels FROM units WHERE id = ?`,
		string(id),
	)
	return scanUnit(row)
}

func (r *UnitRepo) List(ctx context.Context) ([]domain.UnitInfo, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, volume, version, labels FROM units`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []domain.UnitInfo
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *UnitRepo) SetVersion(ctx context.Context, id domain.UnitID, version string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE units SET version = ? WHERE id = ?`,
		version, string(id),
	)
	if err != nil {
		return fmt.Errorf("set unit version: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("unit %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *UnitRepo) Delete(ctx context.Context, id domain.UnitID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM units WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("unit %q: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanUnit(s scanner) (domain.UnitInfo, error) {
	var u domain.UnitInfo
	var id, labelsJSON string
	if err := s.Scan(&id, &u.Volume, &u.Version, &labelsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return u, fmt.Errorf("%w", domain.ErrNotFound)
		}
		return u, fmt.Errorf("scan unit: %w", err)
	}
	u.ID = domain.UnitID(id)
	if err := json.Unmarshal([]byte(labelsJSON), &u.Labels); err != nil {
		return u, fmt.Errorf("unmarshal labels: %w", err)
	}
	return u, nil
}
