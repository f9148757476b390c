package analyzer

import "github.com/utakatalp/ucl-solkoff/internal/league"

// Probability methods reported with every estimate.
const (
	MethodEqualStrength    = "equal_strength"
	MethodCombinedStrength = "combined_strength"
	MethodError            = "error"
)

// Weights of the two strength sources in the combined strength.
const (
	MainWeight  = 0.5
	LocalWeight = 0.5
)

// WinProbability estimates who goes through a tie. Draws are not part of the
// model, so Draw is always 0 and Team1Win + Team2Win is 1.
type WinProbability struct {
	Team1Win float64 `json:"team1Win"`
	Team2Win float64 `json:"team2Win"`
	Draw     float64 `json:"draw"`
	Method   string  `json:"method"`

	// set for MethodCombinedStrength only
	Team1MainStrength       *float64 `json:"team1MainStrength,omitempty"`
	Team2MainStrength       *float64 `json:"team2MainStrength,omitempty"`
	Team1HistoricalStrength *float64 `json:"team1HistoricalStrength,omitempty"`
	Team2HistoricalStrength *float64 `json:"team2HistoricalStrength,omitempty"`
}

// Neutral is the 50/50 estimate tagged with method.
func Neutral(method string) WinProbability {
	return WinProbability{Team1Win: 0.5, Team2Win: 0.5, Draw: 0, Method: method}
}

// Blend combines main-table and mini-league strengths of both teams into a
// win probability. Each side's combined strength is
// MainWeight*main + LocalWeight*local; the probabilities are the shares of
// the total, team1 rounded to 3 decimals and team2 taking the complement.
func Blend(main1, main2, local1, local2 float64) WinProbability {
	c1 := MainWeight*main1 + LocalWeight*local1
	c2 := MainWeight*main2 + LocalWeight*local2
	if c1 == 0 && c2 == 0 {
		return Neutral(MethodEqualStrength)
	}

	p1 := league.Round3(c1 / (c1 + c2))
	round := func(v float64) *float64 {
		r := league.Round3(v)
		return &r
	}
	return WinProbability{
		Team1Win:                p1,
		Team2Win:                league.Round3(1 - p1),
		Draw:                    0,
		Method:                  MethodCombinedStrength,
		Team1MainStrength:       round(main1),
		Team2MainStrength:       round(main2),
		Team1HistoricalStrength: round(local1),
		Team2HistoricalStrength: round(local2),
	}
}
