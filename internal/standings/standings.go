// Package standings rebuilds the main table from finished league-phase
// matches.
package standings

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// Store is the data the builder reads and writes.
type Store interface {
	CountedMatches(ctx context.Context, competitionID string) ([]league.Match, error)
	Teams(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.Team, error)
	ReplaceStandings(ctx context.Context, rows []league.Standing, updatedAt string) error
}

// Builder recomputes the standings table.
type Builder struct {
	store Store
	clock clock.Clock
	log   *logrus.Logger
}

// NewBuilder returns a builder over s.
func NewBuilder(s Store, c clock.Clock, log *logrus.Logger) *Builder {
	return &Builder{store: s, clock: c, log: log}
}

// Rebuild replaces the standings table with one computed from the counted
// league-phase matches of competitionID. Knockout matches are ignored.
func (b *Builder) Rebuild(ctx context.Context, competitionID string) ([]league.Standing, error) {
	matches, err := b.store.CountedMatches(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("loading matches: %w", err)
	}

	leaguePhase := matches[:0:0]
	ids := make(league.TeamSet)
	for _, m := range matches {
		if !league.IsLeaguePhase(m) {
			continue
		}
		leaguePhase = append(leaguePhase, m)
		ids.Add(m.HomeTeamID)
		ids.Add(m.AwayTeamID)
	}

	teams, err := b.store.Teams(ctx, ids.Sorted())
	if err != nil {
		return nil, fmt.Errorf("loading teams: %w", err)
	}
	names := make(map[league.TeamID]string, len(teams))
	for id, t := range teams {
		names[id] = t.Name
	}

	table := league.BuildStandings(leaguePhase, names)
	if err := b.store.ReplaceStandings(ctx, table, b.clock.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("writing standings: %w", err)
	}

	b.log.WithFields(logrus.Fields{
		"competition": competitionID,
		"matches":     len(leaguePhase),
		"teams":       len(table),
	}).Info("standings rebuilt")
	return table, nil
}
