package league

// Status is the upstream lifecycle label of a match.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusTimed     Status = "TIMED"
	StatusLive      Status = "LIVE"
	StatusInPlay    Status = "IN_PLAY"
	StatusPaused    Status = "PAUSED"
	StatusFinished  Status = "FINISHED"
)

// ActiveStatuses are the statuses a fixture can carry while it still belongs
// to the current draw. Anything else (POSTPONED, CANCELLED, ...) is ignored
// by the knockout views.
var ActiveStatuses = []Status{
	StatusScheduled,
	StatusTimed,
	StatusLive,
	StatusInPlay,
	StatusPaused,
	StatusFinished,
}

// Active reports whether s is one of ActiveStatuses.
func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// UnknownTeamName is reported for team IDs missing from the store.
const UnknownTeamName = "Unknown"

// Team represents a club in the competition.
type Team struct {
	ID    TeamID  `json:"id"`
	Name  string  `json:"name"`
	Code  *string `json:"code,omitempty"`
	Crest *string `json:"crest"`
}

// UnknownTeam is the placeholder identity for an ID the store does not know.
func UnknownTeam(id TeamID) Team {
	return Team{ID: id, Name: UnknownTeamName}
}

// Match represents a fixture between two teams. Scores, matchday and date
// are nil until known.
type Match struct {
	ID            MatchID
	HomeTeamID    TeamID
	AwayTeamID    TeamID
	HomeScore     *int
	AwayScore     *int
	Status        Status
	Matchday      *int
	Date          *string
	Stage         string
	Round         string
	GroupName     string
	CompetitionID string
}

// Counted reports whether the match contributes to any statistic: it must be
// FINISHED and carry both scores.
func (m Match) Counted() bool {
	return m.Status == StatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// MatchdayOrZero returns the matchday, treating a missing one as 0.
func (m Match) MatchdayOrZero() int {
	if m.Matchday == nil {
		return 0
	}
	return *m.Matchday
}

// DateOrEmpty returns the raw date text or "".
func (m Match) DateOrEmpty() string {
	if m.Date == nil {
		return ""
	}
	return *m.Date
}

// Standing is one row of the main competition table.
type Standing struct {
	TeamID         TeamID
	Position       int
	Played         int
	Won            int
	Drawn          int
	Lost           int
	GoalsFor       int
	GoalsAgainst   int
	GoalDifference int
	Points         int
}

// StandingSample is the (points, played) pair read for an opponent. Either
// side may be missing in the store.
type StandingSample struct {
	Points *int
	Played *int
}

// PPG returns points per game, or false when the sample cannot be averaged.
func (s StandingSample) PPG() (float64, bool) {
	if s.Points == nil || s.Played == nil || *s.Played <= 0 {
		return 0, false
	}
	return float64(*s.Points) / float64(*s.Played), true
}

// StrengthInputs are the main-table values behind a team's strength score.
type StrengthInputs struct {
	Points  int
	Played  int
	Solkoff float64
}

// Outcome is a match result from one team's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
	OutcomeLoss Outcome = "loss"
)

// MatchRecord is one match seen from a team inside a table.
type MatchRecord struct {
	OpponentID    TeamID  `json:"opponentId"`
	OpponentName  string  `json:"opponentName"`
	OpponentCrest *string `json:"opponentCrest"`
	TeamScore     int     `json:"teamScore"`
	OpponentScore int     `json:"opponentScore"`
	Outcome       Outcome `json:"outcome"`
	Date          *string `json:"date"`
	IsHome        bool    `json:"isHome"`
}

// TableEntry holds the mini-league standings info for one team.
type TableEntry struct {
	TeamID             TeamID        `json:"teamId"`
	TeamName           string        `json:"teamName"`
	TeamCrest          *string       `json:"teamCrest"`
	Played             int           `json:"played"`
	Won                int           `json:"won"`
	Drawn              int           `json:"drawn"`
	Lost               int           `json:"lost"`
	GoalsFor           int           `json:"goalsFor"`
	GoalsAgainst       int           `json:"goalsAgainst"`
	GoalDifference     int           `json:"goalDifference"`
	Points             int           `json:"points"`
	PointsPercentage   float64       `json:"pointsPercentage"`
	SolkoffCoefficient float64       `json:"solkoffCoefficient"`
	StrengthPerGame    float64       `json:"strengthPerGame"`
	Matches            []MatchRecord `json:"matches"`

	// unrounded local solkoff, used for StrengthPerGame
	solkoff float64
}

// NewTableEntry returns an empty row for team.
func NewTableEntry(team Team) *TableEntry {
	return &TableEntry{
		TeamID:    team.ID,
		TeamName:  team.Name,
		TeamCrest: team.Crest,
		Matches:   []MatchRecord{},
	}
}
