// Package storetest opens migrated in-memory SQLite stores and seeds them
// for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/store"
)

// New returns an empty, migrated in-memory store closed at test cleanup.
func New(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, ":memory:?_foreign_keys=1")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

// Fixture seeds teams, matches and standings into a store.
type Fixture struct {
	T         testing.TB
	Store     *store.Store
	nextMatch int64
}

// Seed returns a fixture over a fresh store.
func Seed(t testing.TB) *Fixture {
	t.Helper()
	return &Fixture{T: t, Store: New(t), nextMatch: 1}
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Team inserts a team and returns its ID.
func (f *Fixture) Team(id int64, name string) league.TeamID {
	f.T.Helper()
	tid := league.TeamID(id)
	if err := f.Store.UpsertTeam(context.Background(), league.Team{ID: tid, Name: name}); err != nil {
		f.T.Fatalf("seed team: %v", err)
	}
	return tid
}

// Match inserts m. A zero ID is replaced by the next free fixture ID.
func (f *Fixture) Match(m league.Match) league.MatchID {
	f.T.Helper()
	if m.ID == 0 {
		m.ID = league.MatchID(f.nextMatch)
		f.nextMatch++
	}
	if err := f.Store.UpsertMatch(context.Background(), m); err != nil {
		f.T.Fatalf("seed match: %v", err)
	}
	return m.ID
}

// Result inserts a FINISHED match with the given score.
func (f *Fixture) Result(home, away league.TeamID, homeGoals, awayGoals int) league.MatchID {
	f.T.Helper()
	return f.Match(league.Match{
		HomeTeamID: home,
		AwayTeamID: away,
		HomeScore:  Int(homeGoals),
		AwayScore:  Int(awayGoals),
		Status:     league.StatusFinished,
	})
}

// Standing inserts a standings row with the given points and games played.
func (f *Fixture) Standing(team league.TeamID, points, played int) {
	f.T.Helper()
	st := league.Standing{TeamID: team, Points: points, Played: played}
	if err := f.Store.UpsertStanding(context.Background(), st, "2026-01-01T00:00:00Z"); err != nil {
		f.T.Fatalf("seed standing: %v", err)
	}
}
