// internal/league/logic.go
package league

import (
	"math"
	"sort"
)

const (
	PointsWin  = 3
	PointsDraw = 1
)

// Round3 rounds v to 3 decimal places.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Result returns the outcome of a match for the side that scored goalsFor.
func Result(goalsFor, goalsAgainst int) Outcome {
	switch {
	case goalsFor > goalsAgainst:
		return OutcomeWin
	case goalsFor < goalsAgainst:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}

// PointsPercentage is the share of available points won, 0..100.
func PointsPercentage(points, played int) float64 {
	if played <= 0 {
		return 0
	}
	return float64(points) / float64(played*PointsWin) * 100
}

// MainStrength is the main-table strength score:
// (points percentage / 100) * stored Solkoff coefficient.
func MainStrength(in StrengthInputs) float64 {
	if in.Played <= 0 {
		return 0
	}
	return PointsPercentage(in.Points, in.Played) / 100 * in.Solkoff
}

// MeanPPG averages the usable samples and rounds to 3 decimals. Samples that
// cannot produce a PPG are left out of the average rather than counted as 0.
func MeanPPG(samples []StandingSample) float64 {
	sum, n := 0.0, 0
	for _, s := range samples {
		if ppg, ok := s.PPG(); ok {
			sum += ppg
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return Round3(sum / float64(n))
}

// BuildMiniLeague accumulates a table for members using only counted matches
// whose two teams are both members. teams supplies display identity; members
// without one are reported as Unknown.
func BuildMiniLeague(members TeamSet, matches []Match, teams map[TeamID]Team) map[TeamID]*TableEntry {
	identity := func(id TeamID) Team {
		if t, ok := teams[id]; ok {
			return t
		}
		return UnknownTeam(id)
	}

	entries := make(map[TeamID]*TableEntry, len(members))
	for id := range members {
		entries[id] = NewTableEntry(identity(id))
	}

	for _, m := range matches {
		if !m.Counted() || !members.Has(m.HomeTeamID) || !members.Has(m.AwayTeamID) {
			continue
		}
		hs, as := *m.HomeScore, *m.AwayScore
		home, away := identity(m.HomeTeamID), identity(m.AwayTeamID)

		entries[m.HomeTeamID].record(away, hs, as, m.Date, true)
		entries[m.AwayTeamID].record(home, as, hs, m.Date, false)
	}

	for _, e := range entries {
		e.GoalDifference = e.GoalsFor - e.GoalsAgainst
		e.PointsPercentage = PointsPercentage(e.Points, e.Played)
	}

	// local solkoff needs every row's final points/played
	for _, e := range entries {
		seen := make(TeamSet)
		sum, n := 0.0, 0
		for _, rec := range e.Matches {
			if seen.Has(rec.OpponentID) {
				continue
			}
			seen.Add(rec.OpponentID)
			opp := entries[rec.OpponentID]
			if opp == nil || opp.Played <= 0 {
				continue
			}
			sum += float64(opp.Points) / float64(opp.Played)
			n++
		}
		if n > 0 {
			e.solkoff = sum / float64(n)
		}
		e.SolkoffCoefficient = Round3(e.solkoff)
		e.StrengthPerGame = e.PointsPercentage / 100 * e.solkoff
	}
	return entries
}

func (e *TableEntry) record(opp Team, goalsFor, goalsAgainst int, date *string, home bool) {
	e.Played++
	e.GoalsFor += goalsFor
	e.GoalsAgainst += goalsAgainst

	outcome := Result(goalsFor, goalsAgainst)
	switch outcome {
	case OutcomeWin:
		e.Won++
		e.Points += PointsWin
	case OutcomeLoss:
		e.Lost++
	default:
		e.Drawn++
		e.Points += PointsDraw
	}

	e.Matches = append(e.Matches, MatchRecord{
		OpponentID:    opp.ID,
		OpponentName:  opp.Name,
		OpponentCrest: opp.Crest,
		TeamScore:     goalsFor,
		OpponentScore: goalsAgainst,
		Outcome:       outcome,
		Date:          date,
		IsHome:        home,
	})
}

// SortTable orders a mini-league: points percentage, local Solkoff, strength
// per game and goals for, all descending. Team ID breaks remaining ties.
func SortTable(entries []*TableEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.PointsPercentage != b.PointsPercentage {
			return a.PointsPercentage > b.PointsPercentage
		}
		if a.SolkoffCoefficient != b.SolkoffCoefficient {
			return a.SolkoffCoefficient > b.SolkoffCoefficient
		}
		if a.StrengthPerGame != b.StrengthPerGame {
			return a.StrengthPerGame > b.StrengthPerGame
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamID < b.TeamID
	})
}

// TableFrom flattens and sorts a mini-league map.
func TableFrom(entries map[TeamID]*TableEntry) []*TableEntry {
	table := make([]*TableEntry, 0, len(entries))
	for _, e := range entries {
		table = append(table, e)
	}
	SortTable(table)
	return table
}

// BuildStandings computes the main table from scratch out of counted
// matches. names is used for the final alphabetical tie-break.
func BuildStandings(matches []Match, names map[TeamID]string) []Standing {
	entriesMap := make(map[TeamID]*Standing)
	entry := func(id TeamID) *Standing {
		e, ok := entriesMap[id]
		if !ok {
			e = &Standing{TeamID: id}
			entriesMap[id] = e
		}
		return e
	}

	for _, m := range matches {
		if !m.Counted() {
			continue
		}
		home, away := entry(m.HomeTeamID), entry(m.AwayTeamID)
		hg, ag := *m.HomeScore, *m.AwayScore

		home.Played++
		away.Played++
		home.GoalsFor += hg
		home.GoalsAgainst += ag
		away.GoalsFor += ag
		away.GoalsAgainst += hg

		switch {
		case hg > ag:
			home.Won++
			away.Lost++
			home.Points += PointsWin
		case hg < ag:
			away.Won++
			home.Lost++
			away.Points += PointsWin
		default:
			home.Drawn++
			away.Drawn++
			home.Points += PointsDraw
			away.Points += PointsDraw
		}
	}

	entries := make([]Standing, 0, len(entriesMap))
	for _, e := range entriesMap {
		e.GoalDifference = e.GoalsFor - e.GoalsAgainst
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		if names[a.TeamID] != names[b.TeamID] {
			return names[a.TeamID] < names[b.TeamID]
		}
		return a.TeamID < b.TeamID
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// IsLeaguePhase reports whether m belongs to the league phase whose table is
// the main standings: tagged LEAGUE_STAGE, in a group, or carrying no phase
// metadata at all.
func IsLeaguePhase(m Match) bool {
	if Excluded(m) {
		return true
	}
	return m.Stage == "" && m.Round == ""
}
