package solkoff

import (
	"context"
	"fmt"
	"sort"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// OpponentMatch is one counted match against an opponent.
type OpponentMatch struct {
	HomeScore     int            `json:"homeScore"`
	AwayScore     int            `json:"awayScore"`
	TeamScore     int            `json:"teamScore"`
	OpponentScore int            `json:"opponentScore"`
	Outcome       league.Outcome `json:"outcome"`
	Date          *string        `json:"date"`
	IsHome        bool           `json:"isHome"`
}

// OpponentDetail is an opponent's contribution to a coefficient.
type OpponentDetail struct {
	TeamID        league.TeamID   `json:"teamId"`
	TeamName      string          `json:"teamName"`
	TeamCrest     *string         `json:"teamCrest"`
	Points        int             `json:"points"`
	Played        int             `json:"played"`
	PPG           *float64        `json:"ppg"`
	MatchesPlayed int             `json:"matchesPlayed"`
	Matches       []OpponentMatch `json:"matches"`
}

// Breakdown explains a stored Solkoff coefficient opponent by opponent.
type Breakdown struct {
	TeamID              league.TeamID    `json:"teamId"`
	TeamName            string           `json:"teamName"`
	TeamCode            *string          `json:"teamCode"`
	TeamCrest           *string          `json:"teamCrest"`
	SolkoffCoefficient  float64          `json:"solkoffCoefficient"`
	Opponents           []OpponentDetail `json:"opponents"`
	TotalOpponentPoints int              `json:"totalOpponentPoints"`
	MatchesCount        int              `json:"matchesCount"`
	OpponentsCount      int              `json:"opponentsCount"`
}

// Details returns the breakdown behind team's stored coefficient. Opponents
// are ordered by points descending, then name.
func (c *Calculator) Details(ctx context.Context, team league.TeamID) (*Breakdown, error) {
	t, ok, err := c.store.Team(ctx, team)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("team %d: %w", team, ErrTeamNotFound)
	}

	value, _, err := c.store.Coefficient(ctx, team)
	if err != nil {
		return nil, err
	}

	matches, err := c.store.TeamMatches(ctx, team, "")
	if err != nil {
		return nil, err
	}

	byOpponent := make(map[league.TeamID]*OpponentDetail)
	var order []league.TeamID
	for _, m := range matches {
		isHome := m.HomeTeamID == team
		opp, ts, os := m.HomeTeamID, *m.AwayScore, *m.HomeScore
		if isHome {
			opp, ts, os = m.AwayTeamID, *m.HomeScore, *m.AwayScore
		}
		d, ok := byOpponent[opp]
		if !ok {
			d = &OpponentDetail{TeamID: opp, Matches: []OpponentMatch{}}
			byOpponent[opp] = d
			order = append(order, opp)
		}
		d.MatchesPlayed++
		d.Matches = append(d.Matches, OpponentMatch{
			HomeScore:     *m.HomeScore,
			AwayScore:     *m.AwayScore,
			TeamScore:     ts,
			OpponentScore: os,
			Outcome:       league.Result(ts, os),
			Date:          m.Date,
			IsHome:        isHome,
		})
	}

	teams, err := c.store.Teams(ctx, order)
	if err != nil {
		return nil, err
	}
	samples, err := c.store.StandingsFor(ctx, order)
	if err != nil {
		return nil, err
	}

	b := &Breakdown{
		TeamID:             t.ID,
		TeamName:           t.Name,
		TeamCode:           t.Code,
		TeamCrest:          t.Crest,
		SolkoffCoefficient: value,
		Opponents:          make([]OpponentDetail, 0, len(order)),
	}
	for _, id := range order {
		d := byOpponent[id]
		identity, ok := teams[id]
		if !ok {
			identity = league.UnknownTeam(id)
		}
		d.TeamName = identity.Name
		d.TeamCrest = identity.Crest
		if s, ok := samples[id]; ok {
			if s.Points != nil {
				d.Points = *s.Points
			}
			if s.Played != nil {
				d.Played = *s.Played
			}
			if ppg, ok := s.PPG(); ok {
				v := league.Round3(ppg)
				d.PPG = &v
			}
		}
		b.Opponents = append(b.Opponents, *d)
		b.TotalOpponentPoints += d.Points
		b.MatchesCount += d.MatchesPlayed
	}
	b.OpponentsCount = len(b.Opponents)

	sort.SliceStable(b.Opponents, func(i, j int) bool {
		if b.Opponents[i].Points != b.Opponents[j].Points {
			return b.Opponents[i].Points > b.Opponents[j].Points
		}
		return b.Opponents[i].TeamName < b.Opponents[j].TeamName
	})
	return b, nil
}
