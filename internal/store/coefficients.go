package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// Coefficient is a computed Solkoff value ready to be stored.
type Coefficient struct {
	TeamID league.TeamID
	Value  float64
}

// SaveCoefficients upserts every coefficient in a single transaction. Each
// row runs inside its own savepoint: a failing row is rolled back and its
// error returned at the same index of rowErrs, the remaining rows are still
// written. err is only set when the transaction itself fails.
func (s *Store) SaveCoefficients(ctx context.Context, rows []Coefficient, calculatedAt string) (rowErrs []error, err error) {
	const q = `
	INSERT INTO solkoff_coefficients (team_id, solkoff_value, calculated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (team_id) DO UPDATE SET
		solkoff_value = excluded.solkoff_value,
		calculated_at = excluded.calculated_at
	`
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin SaveCoefficients tx: %w", err)
	}
	defer tx.Rollback()

	rowErrs = make([]error, len(rows))
	for i, c := range rows {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT coefficient_row`); err != nil {
			return nil, fmt.Errorf("savepoint for team %d: %w", c.TeamID, err)
		}
		if _, err := tx.ExecContext(ctx, q, int64(c.TeamID), c.Value, calculatedAt); err != nil {
			rowErrs[i] = fmt.Errorf("upserting coefficient for team %d: %w", c.TeamID, err)
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT coefficient_row`); err != nil {
				return nil, fmt.Errorf("rolling back team %d: %w", c.TeamID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT coefficient_row`); err != nil {
			return nil, fmt.Errorf("releasing savepoint for team %d: %w", c.TeamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit SaveCoefficients tx: %w", err)
	}
	return rowErrs, nil
}

// Coefficient returns the stored Solkoff value of team.
func (s *Store) Coefficient(ctx context.Context, team league.TeamID) (float64, bool, error) {
	var v float64
	err := s.DB.QueryRowContext(ctx,
		`SELECT solkoff_value FROM solkoff_coefficients WHERE team_id = $1`, int64(team),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying coefficient of team %d: %w", team, err)
	}
	return v, true, nil
}

// CoefficientRecord is a stored coefficient with its calculation time.
type CoefficientRecord struct {
	TeamID       league.TeamID
	Value        float64
	CalculatedAt string
}

// Coefficients returns every stored coefficient ordered by team.
func (s *Store) Coefficients(ctx context.Context) ([]CoefficientRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT team_id, solkoff_value, calculated_at FROM solkoff_coefficients ORDER BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("querying coefficients: %w", err)
	}
	defer rows.Close()

	var out []CoefficientRecord
	for rows.Next() {
		var (
			r  CoefficientRecord
			id int64
		)
		if err := rows.Scan(&id, &r.Value, &r.CalculatedAt); err != nil {
			return nil, fmt.Errorf("scanning coefficient: %w", err)
		}
		r.TeamID = league.TeamID(id)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coefficients: %w", err)
	}
	return out, nil
}
