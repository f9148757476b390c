// Package analyzer compares two teams through the opponents they have both
// played: it builds a mini-league restricted to the pair and their common
// opponents and turns it into a win probability.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// Store is the data the analyzer reads.
type Store interface {
	Opponents(ctx context.Context, team league.TeamID) ([]league.TeamID, error)
	MatchesAmong(ctx context.Context, ids []league.TeamID) ([]league.Match, error)
	Teams(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.Team, error)
	StrengthInputs(ctx context.Context, team league.TeamID) (league.StrengthInputs, bool, error)
	TeamMatches(ctx context.Context, team league.TeamID, since string) ([]league.Match, error)
}

// Analyzer runs common-opponent analyses.
type Analyzer struct {
	store           Store
	clock           clock.Clock
	log             *logrus.Logger
	historicalYears int
}

// New returns an analyzer. historicalYears is the lookback window reported
// with every analysis and used by TeamHistory.
func New(s Store, c clock.Clock, log *logrus.Logger, historicalYears int) *Analyzer {
	return &Analyzer{store: s, clock: c, log: log, historicalYears: historicalYears}
}

// HistoricalYears returns the configured lookback window.
func (a *Analyzer) HistoricalYears() int { return a.historicalYears }

// TeamRef is the display identity of a team.
type TeamRef struct {
	ID    league.TeamID `json:"id"`
	Name  string        `json:"name"`
	Crest *string       `json:"crest"`
}

func refOf(t league.Team) TeamRef {
	return TeamRef{ID: t.ID, Name: t.Name, Crest: t.Crest}
}

// MiniLeague is the common-opponents table of a pair.
type MiniLeague struct {
	Team1           *league.TableEntry   `json:"team1"`
	Team2           *league.TableEntry   `json:"team2"`
	CommonOpponents []TeamRef            `json:"commonOpponents"`
	FullLeagueTable []*league.TableEntry `json:"fullLeagueTable"`
	WinProbability  WinProbability       `json:"winProbability"`
}

// PairAnalysis is the full answer for a pair of teams.
type PairAnalysis struct {
	Team1                TeamRef     `json:"team1"`
	Team2                TeamRef     `json:"team2"`
	CommonOpponentsCount int         `json:"commonOpponentsCount"`
	HistoricalYears      int         `json:"historicalYears"`
	LeagueTable          *MiniLeague `json:"leagueTable"`
}

// opponentSet returns team's distinct opponents minus the excluded IDs.
func (a *Analyzer) opponentSet(ctx context.Context, team league.TeamID, exclude ...league.TeamID) (league.TeamSet, error) {
	ids, err := a.store.Opponents(ctx, team)
	if err != nil {
		return nil, err
	}
	set := league.NewTeamSet(ids...)
	for _, id := range exclude {
		delete(set, id)
	}
	return set, nil
}

// FindCommonOpponents returns the teams both team1 and team2 have played in
// counted matches, never including the pair itself.
func (a *Analyzer) FindCommonOpponents(ctx context.Context, team1, team2 league.TeamID) (league.TeamSet, error) {
	s1, err := a.opponentSet(ctx, team1, team1, team2)
	if err != nil {
		return nil, fmt.Errorf("opponents of team %d: %w", team1, err)
	}
	s2, err := a.opponentSet(ctx, team2, team1, team2)
	if err != nil {
		return nil, fmt.Errorf("opponents of team %d: %w", team2, err)
	}
	return s1.Intersect(s2), nil
}

// CalculateLeagueTable builds the mini-league of team1, team2 and common out
// of every counted match among them. With no common opponents both teams get
// empty rows and the full table is empty; the win probability then rests on
// main-table strength alone.
func (a *Analyzer) CalculateLeagueTable(ctx context.Context, team1, team2 league.TeamID, common league.TeamSet) (*MiniLeague, error) {
	members := league.NewTeamSet(team1, team2)
	for id := range common {
		members.Add(id)
	}
	ids := members.Sorted()

	teams, err := a.store.Teams(ctx, ids)
	if err != nil {
		return nil, err
	}

	var matches []league.Match
	if len(common) > 0 {
		if matches, err = a.store.MatchesAmong(ctx, ids); err != nil {
			return nil, err
		}
	}
	entries := league.BuildMiniLeague(members, matches, teams)

	ml := &MiniLeague{
		Team1:           entries[team1],
		Team2:           entries[team2],
		CommonOpponents: make([]TeamRef, 0, len(common)),
		FullLeagueTable: []*league.TableEntry{},
	}
	for _, id := range common.Sorted() {
		t, ok := teams[id]
		if !ok {
			t = league.UnknownTeam(id)
		}
		ml.CommonOpponents = append(ml.CommonOpponents, refOf(t))
	}
	if len(common) > 0 {
		ml.FullLeagueTable = league.TableFrom(entries)
	}

	main1, err := a.mainStrength(ctx, team1)
	if err != nil {
		return nil, err
	}
	main2, err := a.mainStrength(ctx, team2)
	if err != nil {
		return nil, err
	}
	ml.WinProbability = Blend(main1, main2, ml.Team1.StrengthPerGame, ml.Team2.StrengthPerGame)

	a.log.WithFields(logrus.Fields{
		"team1":   team1,
		"team2":   team2,
		"common":  len(common),
		"matches": len(matches),
		"method":  ml.WinProbability.Method,
	}).Debug("mini-league calculated")
	return ml, nil
}

// mainStrength is the main-table strength score of team, 0 without a
// standings row.
func (a *Analyzer) mainStrength(ctx context.Context, team league.TeamID) (float64, error) {
	in, ok, err := a.store.StrengthInputs(ctx, team)
	if err != nil {
		return 0, fmt.Errorf("main strength of team %d: %w", team, err)
	}
	if !ok {
		return 0, nil
	}
	return league.MainStrength(in), nil
}

// WinProbability runs the common-opponent analysis of a pair and returns only
// its probability estimate.
func (a *Analyzer) WinProbability(ctx context.Context, team1, team2 league.TeamID) (WinProbability, error) {
	common, err := a.FindCommonOpponents(ctx, team1, team2)
	if err != nil {
		return WinProbability{}, err
	}
	ml, err := a.CalculateLeagueTable(ctx, team1, team2, common)
	if err != nil {
		return WinProbability{}, err
	}
	return ml.WinProbability, nil
}

// AnalyzePair returns the common-opponents analysis of two teams with their
// display identities. Unknown IDs are reported as "Unknown" with no crest.
func (a *Analyzer) AnalyzePair(ctx context.Context, team1, team2 league.TeamID) (*PairAnalysis, error) {
	common, err := a.FindCommonOpponents(ctx, team1, team2)
	if err != nil {
		return nil, err
	}
	ml, err := a.CalculateLeagueTable(ctx, team1, team2, common)
	if err != nil {
		return nil, err
	}

	teams, err := a.store.Teams(ctx, []league.TeamID{team1, team2})
	if err != nil {
		return nil, err
	}
	identity := func(id league.TeamID) TeamRef {
		if t, ok := teams[id]; ok {
			return refOf(t)
		}
		return refOf(league.UnknownTeam(id))
	}

	return &PairAnalysis{
		Team1:                identity(team1),
		Team2:                identity(team2),
		CommonOpponentsCount: len(common),
		HistoricalYears:      a.historicalYears,
		LeagueTable:          ml,
	}, nil
}

// HistoricalMatch is a counted match from one team's point of view.
type HistoricalMatch struct {
	MatchID       league.MatchID `json:"matchId"`
	OpponentID    league.TeamID  `json:"opponentId"`
	OpponentName  string         `json:"opponentName"`
	TeamScore     int            `json:"teamScore"`
	OpponentScore int            `json:"opponentScore"`
	Outcome       league.Outcome `json:"outcome"`
	Date          *string        `json:"date"`
	IsHome        bool           `json:"isHome"`
}

// TeamHistory returns team's counted matches from the last years years,
// newest first. years <= 0 uses the configured window.
func (a *Analyzer) TeamHistory(ctx context.Context, team league.TeamID, years int) ([]HistoricalMatch, error) {
	if years <= 0 {
		years = a.historicalYears
	}
	cutoff := a.clock.Now().UTC().Add(-time.Duration(years) * 365 * 24 * time.Hour).Format("2006-01-02")

	matches, err := a.store.TeamMatches(ctx, team, cutoff)
	if err != nil {
		return nil, err
	}

	opponents := make(league.TeamSet)
	for _, m := range matches {
		if m.HomeTeamID == team {
			opponents.Add(m.AwayTeamID)
		} else {
			opponents.Add(m.HomeTeamID)
		}
	}
	teams, err := a.store.Teams(ctx, opponents.Sorted())
	if err != nil {
		return nil, err
	}

	history := make([]HistoricalMatch, 0, len(matches))
	for _, m := range matches {
		h := HistoricalMatch{MatchID: m.ID, Date: m.Date, IsHome: m.HomeTeamID == team}
		if h.IsHome {
			h.OpponentID, h.TeamScore, h.OpponentScore = m.AwayTeamID, *m.HomeScore, *m.AwayScore
		} else {
			h.OpponentID, h.TeamScore, h.OpponentScore = m.HomeTeamID, *m.AwayScore, *m.HomeScore
		}
		h.OpponentName = league.UnknownTeamName
		if t, ok := teams[h.OpponentID]; ok {
			h.OpponentName = t.Name
		}
		h.Outcome = league.Result(h.TeamScore, h.OpponentScore)
		history = append(history, h)
	}
	return history, nil
}
