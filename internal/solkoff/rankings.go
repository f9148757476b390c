package solkoff

import (
	"context"

	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// RankingEntry is one line of the main table with its Solkoff figures.
type RankingEntry struct {
	TeamID             league.TeamID `json:"teamId"`
	TeamName           string        `json:"teamName"`
	TeamCode           *string       `json:"teamCode"`
	TeamCrest          *string       `json:"teamCrest"`
	Position           int           `json:"position"`
	Played             int           `json:"played"`
	Won                int           `json:"won"`
	Drawn              int           `json:"drawn"`
	Lost               int           `json:"lost"`
	GoalsFor           int           `json:"gf"`
	GoalsAgainst       int           `json:"ga"`
	GoalDifference     int           `json:"gd"`
	Points             int           `json:"points"`
	SolkoffCoefficient float64       `json:"solkoffCoefficient"`
	StrengthScore      float64       `json:"strengthScore"`
}

// Rankings returns the main table with each team's stored coefficient and
// its strength score (points x coefficient).
func (c *Calculator) Rankings(ctx context.Context) ([]RankingEntry, error) {
	rows, err := c.store.Rankings(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RankingEntry, 0, len(rows))
	for _, r := range rows {
		st := r.Standing
		out = append(out, RankingEntry{
			TeamID:             r.Team.ID,
			TeamName:           r.Team.Name,
			TeamCode:           r.Team.Code,
			TeamCrest:          r.Team.Crest,
			Position:           st.Position,
			Played:             st.Played,
			Won:                st.Won,
			Drawn:              st.Drawn,
			Lost:               st.Lost,
			GoalsFor:           st.GoalsFor,
			GoalsAgainst:       st.GoalsAgainst,
			GoalDifference:     st.GoalDifference,
			Points:             st.Points,
			SolkoffCoefficient: r.Solkoff,
			StrengthScore:      float64(st.Points) * r.Solkoff,
		})
	}
	return out, nil
}
