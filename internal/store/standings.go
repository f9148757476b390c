package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

const upsertStandingQuery = `
INSERT INTO standings (
	team_id, position, played, won, drawn, lost,
	goals_for, goals_against, goal_difference, points, last_updated
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (team_id) DO UPDATE SET
	position        = excluded.position,
	played          = excluded.played,
	won             = excluded.won,
	drawn           = excluded.drawn,
	lost            = excluded.lost,
	goals_for       = excluded.goals_for,
	goals_against   = excluded.goals_against,
	goal_difference = excluded.goal_difference,
	points          = excluded.points,
	last_updated    = excluded.last_updated
`

func upsertStanding(ctx context.Context, ex execer, st league.Standing, updatedAt string) error {
	_, err := ex.ExecContext(ctx, upsertStandingQuery,
		int64(st.TeamID), st.Position, st.Played, st.Won, st.Drawn, st.Lost,
		st.GoalsFor, st.GoalsAgainst, st.GoalDifference, st.Points, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting standing for team %d: %w", st.TeamID, err)
	}
	return nil
}

// UpsertStanding writes one standings row as imported from an external
// table.
func (s *Store) UpsertStanding(ctx context.Context, st league.Standing, updatedAt string) error {
	return upsertStanding(ctx, s.DB, st, updatedAt)
}

// ReplaceStandings overwrites the whole standings table with rows in one
// transaction. Rows for teams missing from rows are removed.
func (s *Store) ReplaceStandings(ctx context.Context, rows []league.Standing, updatedAt string) error {
	return s.InTx(ctx, func(tx *Tx) error {
		return tx.ReplaceStandings(ctx, rows, updatedAt)
	})
}

func replaceStandings(ctx context.Context, ex execer, rows []league.Standing, updatedAt string) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM standings`); err != nil {
		return fmt.Errorf("clearing standings: %w", err)
	}
	for _, st := range rows {
		if err := upsertStanding(ctx, ex, st, updatedAt); err != nil {
			return err
		}
	}
	return nil
}

// StandingsFor returns the (points, played) sample of every team in ids that
// has a standings row. Null columns stay nil.
func (s *Store) StandingsFor(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.StandingSample, error) {
	samples := make(map[league.TeamID]league.StandingSample, len(ids))
	if len(ids) == 0 {
		return samples, nil
	}
	q := `SELECT team_id, points, played FROM standings WHERE team_id IN (` + placeholders(1, len(ids)) + `)`
	rows, err := s.DB.QueryContext(ctx, q, teamArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying standings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id             int64
			points, played sql.NullInt64
		)
		if err := rows.Scan(&id, &points, &played); err != nil {
			return nil, fmt.Errorf("scanning standings row: %w", err)
		}
		samples[league.TeamID(id)] = league.StandingSample{Points: intPtr(points), Played: intPtr(played)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating standings rows: %w", err)
	}
	return samples, nil
}

// StrengthInputs returns the main-table points, played and stored Solkoff
// value of team. ok is false when the team has no standings row.
func (s *Store) StrengthInputs(ctx context.Context, team league.TeamID) (league.StrengthInputs, bool, error) {
	const q = `
	SELECT COALESCE(s.points, 0), COALESCE(s.played, 0), COALESCE(sc.solkoff_value, 0)
	FROM standings s
	LEFT JOIN solkoff_coefficients sc ON s.team_id = sc.team_id
	WHERE s.team_id = $1
	`
	var in league.StrengthInputs
	err := s.DB.QueryRowContext(ctx, q, int64(team)).Scan(&in.Points, &in.Played, &in.Solkoff)
	if errors.Is(err, sql.ErrNoRows) {
		return league.StrengthInputs{}, false, nil
	}
	if err != nil {
		return league.StrengthInputs{}, false, fmt.Errorf("querying strength of team %d: %w", team, err)
	}
	return in, true, nil
}

// RankingRow is a standings row joined with team identity and the stored
// Solkoff coefficient.
type RankingRow struct {
	Team     league.Team
	Standing league.Standing
	Solkoff  float64
}

// Rankings returns the main table ordered by points, goal difference, goals
// for and name.
func (s *Store) Rankings(ctx context.Context) ([]RankingRow, error) {
	const q = `
	SELECT
		t.id, t.name, t.code, t.crest,
		COALESCE(s.position, 0),
		COALESCE(s.played, 0),
		COALESCE(s.won, 0),
		COALESCE(s.drawn, 0),
		COALESCE(s.lost, 0),
		COALESCE(s.goals_for, 0),
		COALESCE(s.goals_against, 0),
		COALESCE(s.goal_difference, 0),
		COALESCE(s.points, 0),
		COALESCE(sc.solkoff_value, 0)
	FROM standings s
	JOIN teams t ON s.team_id = t.id
	LEFT JOIN solkoff_coefficients sc ON s.team_id = sc.team_id
	ORDER BY
		COALESCE(s.points, 0) DESC,
		COALESCE(s.goal_difference, 0) DESC,
		COALESCE(s.goals_for, 0) DESC,
		t.name ASC
	`
	rows, err := s.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying table: %w", err)
	}
	defer rows.Close()

	var table []RankingRow
	for rows.Next() {
		var (
			r           RankingRow
			id          int64
			code, crest sql.NullString
		)
		st := &r.Standing
		if err := rows.Scan(
			&id, &r.Team.Name, &code, &crest,
			&st.Position, &st.Played, &st.Won, &st.Drawn, &st.Lost,
			&st.GoalsFor, &st.GoalsAgainst, &st.GoalDifference, &st.Points,
			&r.Solkoff,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.Team.ID = league.TeamID(id)
		r.Team.Code = stringPtr(code)
		r.Team.Crest = stringPtr(crest)
		st.TeamID = r.Team.ID
		table = append(table, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return table, nil
}
