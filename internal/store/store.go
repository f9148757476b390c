package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Queries use $N placeholders numbered in order of first appearance, which
// both lib/pq and go-sqlite3 bind positionally.

// Store wraps a SQL connection and provides methods to persist and retrieve
// competition data.
type Store struct {
	DB     *sql.DB
	driver string
}

// Open connects with the given driver ("postgres" or "sqlite3") and verifies
// the connection early.
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("opening database: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps a ":memory:" database on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{DB: db, driver: driver}, nil
}

// Driver returns the driver name the store was opened with.
func (s *Store) Driver() string { return s.driver }

// Close releases the connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Migrate creates the necessary tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id    BIGINT PRIMARY KEY,
			name  TEXT NOT NULL,
			code  TEXT,
			crest TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id             BIGINT PRIMARY KEY,
			home_team_id   BIGINT NOT NULL REFERENCES teams(id),
			away_team_id   BIGINT NOT NULL REFERENCES teams(id),
			home_score     INTEGER,
			away_score     INTEGER,
			matchday       INTEGER,
			date           TEXT,
			status         TEXT,
			stage          TEXT,
			round          TEXT,
			group_name     TEXT,
			competition_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS standings (
			team_id         BIGINT PRIMARY KEY REFERENCES teams(id),
			position        INTEGER,
			played          INTEGER,
			won             INTEGER,
			drawn           INTEGER,
			lost            INTEGER,
			goals_for       INTEGER,
			goals_against   INTEGER,
			goal_difference INTEGER,
			points          INTEGER,
			last_updated    TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS solkoff_coefficients (
			team_id       BIGINT PRIMARY KEY REFERENCES teams(id),
			solkoff_value DOUBLE PRECISION NOT NULL,
			calculated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_home ON matches(home_team_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_away ON matches(away_team_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_competition ON matches(competition_id)`,
	}
	for _, q := range queries {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// countedOn is the predicate for matches that count toward statistics.
func countedOn(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf("%sstatus = 'FINISHED' AND %shome_score IS NOT NULL AND %saway_score IS NOT NULL", p, p, p)
}

func activeStatusList() string {
	qs := make([]string, len(league.ActiveStatuses))
	for i, st := range league.ActiveStatuses {
		qs[i] = "'" + string(st) + "'"
	}
	return strings.Join(qs, ", ")
}

func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ps, ", ")
}

func teamArgs(ids []league.TeamID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func emptyAsNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
