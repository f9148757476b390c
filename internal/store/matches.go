package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

const matchColumns = `m.id, m.home_team_id, m.away_team_id, m.home_score, m.away_score,
	m.status, m.matchday, m.date, m.stage, m.round, m.group_name, m.competition_id`

// UpsertMatch inserts a match or refreshes its mutable fields.
func (s *Store) UpsertMatch(ctx context.Context, m league.Match) error {
	return upsertMatch(ctx, s.DB, m)
}

func upsertMatch(ctx context.Context, ex execer, m league.Match) error {
	const q = `
	INSERT INTO matches (
		id, home_team_id, away_team_id, home_score, away_score,
		matchday, date, status, stage, round, group_name, competition_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO UPDATE SET
		home_score     = excluded.home_score,
		away_score     = excluded.away_score,
		matchday       = excluded.matchday,
		date           = excluded.date,
		status         = excluded.status,
		stage          = excluded.stage,
		round          = excluded.round,
		group_name     = excluded.group_name,
		competition_id = excluded.competition_id
	`
	_, err := ex.ExecContext(ctx, q,
		int64(m.ID),
		int64(m.HomeTeamID),
		int64(m.AwayTeamID),
		nullInt(m.HomeScore),
		nullInt(m.AwayScore),
		nullInt(m.Matchday),
		nullString(m.Date),
		string(m.Status),
		emptyAsNull(m.Stage),
		emptyAsNull(m.Round),
		emptyAsNull(m.GroupName),
		emptyAsNull(m.CompetitionID),
	)
	if err != nil {
		return fmt.Errorf("upserting match %d: %w", m.ID, err)
	}
	return nil
}

// Opponents returns the distinct teams that played team in counted matches.
func (s *Store) Opponents(ctx context.Context, team league.TeamID) ([]league.TeamID, error) {
	q := `
	SELECT DISTINCT
		CASE WHEN home_team_id = $1 THEN away_team_id ELSE home_team_id END
	FROM matches
	WHERE (home_team_id = $1 OR away_team_id = $1)
	AND ` + countedOn("")

	rows, err := s.DB.QueryContext(ctx, q, int64(team))
	if err != nil {
		return nil, fmt.Errorf("querying opponents of %d: %w", team, err)
	}
	defer rows.Close()

	var ids []league.TeamID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning opponent: %w", err)
		}
		if league.TeamID(id) != team {
			ids = append(ids, league.TeamID(id))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating opponents: %w", err)
	}
	return ids, nil
}

// MatchesAmong returns counted matches whose two teams are both in ids,
// newest first.
func (s *Store) MatchesAmong(ctx context.Context, ids []league.TeamID) ([]league.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in := placeholders(1, len(ids))
	q := `SELECT ` + matchColumns + `
	FROM matches m
	WHERE m.home_team_id IN (` + in + `)
	AND m.away_team_id IN (` + in + `)
	AND ` + countedOn("m") + `
	ORDER BY COALESCE(m.date, '') DESC, m.id`
	return s.queryMatches(ctx, q, teamArgs(ids)...)
}

// TeamMatches returns the counted matches of team, newest first. A non-empty
// since keeps only matches dated on or after it.
func (s *Store) TeamMatches(ctx context.Context, team league.TeamID, since string) ([]league.Match, error) {
	q := `SELECT ` + matchColumns + `
	FROM matches m
	WHERE (m.home_team_id = $1 OR m.away_team_id = $1)
	AND ` + countedOn("m")
	args := []any{int64(team)}
	if since != "" {
		q += ` AND m.date >= $2`
		args = append(args, since)
	}
	q += ` ORDER BY COALESCE(m.date, '') DESC, m.id`
	return s.queryMatches(ctx, q, args...)
}

// KnockoutCandidates returns matches with an active status, ordered by
// matchday then date. An empty competitionID spans all competitions.
func (s *Store) KnockoutCandidates(ctx context.Context, competitionID string) ([]league.Match, error) {
	q := `SELECT ` + matchColumns + `
	FROM matches m
	WHERE m.status IN (` + activeStatusList() + `)`
	var args []any
	if competitionID != "" {
		q += ` AND m.competition_id = $1`
		args = append(args, competitionID)
	}
	q += ` ORDER BY COALESCE(m.matchday, 0), COALESCE(m.date, ''), m.id`
	return s.queryMatches(ctx, q, args...)
}

// RecentMatches returns up to limit active matches, latest matchday first.
func (s *Store) RecentMatches(ctx context.Context, competitionID string, limit int) ([]league.Match, error) {
	q := `SELECT ` + matchColumns + `
	FROM matches m
	WHERE m.status IN (` + activeStatusList() + `)`
	args := []any{}
	if competitionID != "" {
		q += ` AND m.competition_id = $1`
		args = append(args, competitionID)
	}
	q += fmt.Sprintf(` ORDER BY COALESCE(m.matchday, 0) DESC, COALESCE(m.date, '') DESC, m.id LIMIT $%d`, len(args)+1)
	args = append(args, limit)
	return s.queryMatches(ctx, q, args...)
}

// CountedMatches returns the counted matches of a competition. An empty
// competitionID spans all competitions.
func (s *Store) CountedMatches(ctx context.Context, competitionID string) ([]league.Match, error) {
	q := `SELECT ` + matchColumns + `
	FROM matches m
	WHERE ` + countedOn("m")
	var args []any
	if competitionID != "" {
		q += ` AND m.competition_id = $1`
		args = append(args, competitionID)
	}
	q += ` ORDER BY m.id`
	return s.queryMatches(ctx, q, args...)
}

func (s *Store) queryMatches(ctx context.Context, q string, args ...any) ([]league.Match, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var matches []league.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

func scanMatch(sc scanner) (league.Match, error) {
	var (
		id, home, away                    int64
		homeScore, awayScore, matchday    sql.NullInt64
		status, date, stage, round, group sql.NullString
		competition                       sql.NullString
	)
	if err := sc.Scan(
		&id, &home, &away, &homeScore, &awayScore,
		&status, &matchday, &date, &stage, &round, &group, &competition,
	); err != nil {
		return league.Match{}, err
	}
	return league.Match{
		ID:            league.MatchID(id),
		HomeTeamID:    league.TeamID(home),
		AwayTeamID:    league.TeamID(away),
		HomeScore:     intPtr(homeScore),
		AwayScore:     intPtr(awayScore),
		Status:        league.Status(status.String),
		Matchday:      intPtr(matchday),
		Date:          stringPtr(date),
		Stage:         stage.String,
		Round:         round.String,
		GroupName:     group.String,
		CompetitionID: competition.String,
	}, nil
}
