package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// UpsertTeam inserts a team or refreshes its name, code and crest.
func (s *Store) UpsertTeam(ctx context.Context, t league.Team) error {
	return upsertTeam(ctx, s.DB, t)
}

func upsertTeam(ctx context.Context, ex execer, t league.Team) error {
	const q = `
	INSERT INTO teams (id, name, code, crest)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		name  = excluded.name,
		code  = excluded.code,
		crest = excluded.crest
	`
	if _, err := ex.ExecContext(ctx, q, int64(t.ID), t.Name, nullString(t.Code), nullString(t.Crest)); err != nil {
		return fmt.Errorf("upserting team %d (%s): %w", t.ID, t.Name, err)
	}
	return nil
}

// TeamIDs lists every team ID in ascending order.
func (s *Store) TeamIDs(ctx context.Context) ([]league.TeamID, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM teams ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying team ids: %w", err)
	}
	defer rows.Close()

	var ids []league.TeamID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning team id: %w", err)
		}
		ids = append(ids, league.TeamID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating team ids: %w", err)
	}
	return ids, nil
}

// Team returns the identity of one team. ok is false when the ID is unknown.
func (s *Store) Team(ctx context.Context, id league.TeamID) (league.Team, bool, error) {
	const q = `SELECT id, name, code, crest FROM teams WHERE id = $1`
	t, err := scanTeam(s.DB.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return league.Team{}, false, nil
	}
	if err != nil {
		return league.Team{}, false, fmt.Errorf("querying team %d: %w", id, err)
	}
	return t, true, nil
}

// Teams returns the identities of the known teams among ids.
func (s *Store) Teams(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.Team, error) {
	teams := make(map[league.TeamID]league.Team, len(ids))
	if len(ids) == 0 {
		return teams, nil
	}
	q := `SELECT id, name, code, crest FROM teams WHERE id IN (` + placeholders(1, len(ids)) + `)`
	rows, err := s.DB.QueryContext(ctx, q, teamArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating teams rows: %w", err)
	}
	return teams, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(sc scanner) (league.Team, error) {
	var (
		id          int64
		name        string
		code, crest sql.NullString
	)
	if err := sc.Scan(&id, &name, &code, &crest); err != nil {
		return league.Team{}, err
	}
	return league.Team{
		ID:    league.TeamID(id),
		Name:  name,
		Code:  stringPtr(code),
		Crest: stringPtr(crest),
	}, nil
}
