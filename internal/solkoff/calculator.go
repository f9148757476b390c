// Package solkoff computes Solkoff coefficients: the mean points per game of
// the distinct opponents a team has faced.
package solkoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/store"
)

var ErrTeamNotFound = errors.New("solkoff: team not found")

// Store is the data the calculator reads and writes.
type Store interface {
	TeamIDs(ctx context.Context) ([]league.TeamID, error)
	Team(ctx context.Context, id league.TeamID) (league.Team, bool, error)
	Teams(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.Team, error)
	Opponents(ctx context.Context, team league.TeamID) ([]league.TeamID, error)
	StandingsFor(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.StandingSample, error)
	TeamMatches(ctx context.Context, team league.TeamID, since string) ([]league.Match, error)
	Coefficient(ctx context.Context, team league.TeamID) (float64, bool, error)
	SaveCoefficients(ctx context.Context, rows []store.Coefficient, calculatedAt string) ([]error, error)
	Rankings(ctx context.Context) ([]store.RankingRow, error)
}

// Calculator computes and persists Solkoff coefficients.
type Calculator struct {
	store Store
	clock clock.Clock
	log   *logrus.Logger
}

// NewCalculator returns a calculator over s.
func NewCalculator(s Store, c clock.Clock, log *logrus.Logger) *Calculator {
	return &Calculator{store: s, clock: c, log: log}
}

// CalculateSolkoff returns the mean PPG of team's distinct opponents in
// counted matches, rounded to 3 decimals. Opponents without a usable
// standings row are left out; a team with none left scores 0.
func (c *Calculator) CalculateSolkoff(ctx context.Context, team league.TeamID) (float64, error) {
	opponents, err := c.store.Opponents(ctx, team)
	if err != nil {
		return 0, err
	}
	if len(opponents) == 0 {
		return 0, nil
	}

	samples, err := c.store.StandingsFor(ctx, opponents)
	if err != nil {
		return 0, err
	}

	list := make([]league.StandingSample, 0, len(opponents))
	for _, opp := range league.NewTeamSet(opponents...).Sorted() {
		s, ok := samples[opp]
		if !ok {
			c.log.WithFields(logrus.Fields{"team_id": team, "opponent_id": opp}).Debug("opponent has no standings row")
			continue
		}
		list = append(list, s)
	}
	return league.MeanPPG(list), nil
}

// Outcome is the per-team result of a recompute pass.
type Outcome struct {
	TeamID league.TeamID
	Value  float64
	Err    error
}

// OK reports whether the value was computed and stored.
func (o Outcome) OK() bool { return o.Err == nil }

// Report summarises a CalculateAll pass.
type Report struct {
	RunID        string
	CalculatedAt string
	Outcomes     []Outcome
	Written      int
	Skipped      int
}

// CalculateAll recomputes the coefficient of every team and upserts the
// results in one transaction. A team whose computation or write fails is
// recorded in the report and skipped; the pass goes on. An error is only
// returned when the team list cannot be read or the transaction fails.
func (c *Calculator) CalculateAll(ctx context.Context) (*Report, error) {
	ids, err := c.store.TeamIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	report := &Report{
		RunID:        uuid.NewString(),
		CalculatedAt: c.clock.Now().UTC().Format(time.RFC3339),
		Outcomes:     make([]Outcome, 0, len(ids)),
	}
	log := c.log.WithField("run_id", report.RunID)

	var (
		rows  []store.Coefficient
		index []int // rows[i] belongs to report.Outcomes[index[i]]
	)
	for _, id := range ids {
		v, err := c.CalculateSolkoff(ctx, id)
		report.Outcomes = append(report.Outcomes, Outcome{TeamID: id, Value: v, Err: err})
		if err != nil {
			log.WithError(err).WithField("team_id", id).Warn("skipping team: solkoff calculation failed")
			continue
		}
		rows = append(rows, store.Coefficient{TeamID: id, Value: v})
		index = append(index, len(report.Outcomes)-1)
	}

	rowErrs, err := c.store.SaveCoefficients(ctx, rows, report.CalculatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving coefficients: %w", err)
	}
	for i, rowErr := range rowErrs {
		if rowErr == nil {
			continue
		}
		report.Outcomes[index[i]].Err = rowErr
		log.WithError(rowErr).WithField("team_id", rows[i].TeamID).Warn("skipping team: coefficient write failed")
	}

	for _, o := range report.Outcomes {
		if o.OK() {
			report.Written++
		} else {
			report.Skipped++
		}
	}
	log.WithFields(logrus.Fields{
		"teams":   len(ids),
		"written": report.Written,
		"skipped": report.Skipped,
	}).Info("solkoff coefficients calculated")
	return report, nil
}
