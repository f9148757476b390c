// Package knockout groups knockout-stage matches into ties, labels their
// stage and attaches a win probability to each tie.
package knockout

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/analyzer"
	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
)

// DefaultRecentWindow is the number of latest matches CurrentStage inspects.
const DefaultRecentWindow = 100

// Store is the data the service reads.
type Store interface {
	KnockoutCandidates(ctx context.Context, competitionID string) ([]league.Match, error)
	RecentMatches(ctx context.Context, competitionID string, limit int) ([]league.Match, error)
	Teams(ctx context.Context, ids []league.TeamID) (map[league.TeamID]league.Team, error)
}

// Prober estimates the win probability of a pair.
type Prober interface {
	WinProbability(ctx context.Context, team1, team2 league.TeamID) (analyzer.WinProbability, error)
}

// Options scope the service.
type Options struct {
	// CompetitionID limits candidate matches; empty spans all competitions.
	CompetitionID string
	RecentWindow  int
}

// Service lists knockout pairs and detects the current stage.
type Service struct {
	store  Store
	prober Prober
	clock  clock.Clock
	log    *logrus.Logger
	opts   Options
}

// NewService returns a knockout service.
func NewService(s Store, p Prober, c clock.Clock, log *logrus.Logger, opts Options) *Service {
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = DefaultRecentWindow
	}
	return &Service{store: s, prober: p, clock: c, log: log, opts: opts}
}

// Pair is one knockout tie.
type Pair struct {
	MatchID        league.MatchID          `json:"matchId"`
	Team1          analyzer.TeamRef        `json:"team1"`
	Team2          analyzer.TeamRef        `json:"team2"`
	Matchday       int                     `json:"matchday"`
	Stage          string                  `json:"stage"`
	StageCode      string                  `json:"stageCode"`
	Status         league.Status           `json:"status"`
	Date           *string                 `json:"date"`
	APIStage       *string                 `json:"apiStage"`
	APIRound       *string                 `json:"apiRound"`
	WinProbability analyzer.WinProbability `json:"winProbability"`

	stage league.Stage
	at    time.Time // parsed Date, zero when null
}

type pairKey struct{ lo, hi league.TeamID }

func keyOf(a, b league.TeamID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// Pairs lists knockout ties. An empty stage lists every tie, ordered by stage,
// matchday and date. A stage code such as "ROUND_OF_16" lists only the ties
// of that stage, ordered by matchday and date; an unknown code, or LEAGUE,
// yields an empty list.
func (s *Service) Pairs(ctx context.Context, stage string) ([]Pair, error) {
	candidates, err := s.store.KnockoutCandidates(ctx, s.opts.CompetitionID)
	if err != nil {
		return nil, err
	}

	var (
		pairs   []Pair
		byStage = stage != ""
	)
	if byStage {
		want, ok := league.ParseStage(stage)
		if !ok || want == league.StageLeague {
			s.log.WithField("stage", stage).Debug("unknown knockout stage requested")
			return []Pair{}, nil
		}
		pairs = s.merge(candidates, func(m league.Match) (league.Stage, bool) {
			return want, league.InStage(m, want, league.ByStageRanges)
		})
	} else {
		pairs = s.merge(candidates, func(m league.Match) (league.Stage, bool) {
			c := league.Classify(m, league.AllPairsRanges)
			return c.Stage, c.Knockout()
		})
	}

	if err := s.identify(ctx, pairs); err != nil {
		return nil, err
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if !byStage && a.stage != b.stage {
			return a.stage < b.stage
		}
		if a.Matchday != b.Matchday {
			return a.Matchday < b.Matchday
		}
		return dateKey(a) < dateKey(b)
	})

	for i := range pairs {
		pairs[i].WinProbability = s.probability(ctx, pairs[i])
	}
	return pairs, nil
}

// merge folds candidate matches into ties. classify returns the stage of a
// match and whether it belongs in the listing. The first match of a tie fixes
// its teams, stage and upstream labels; later legs replace the
// representative match when their matchday is higher, or equal with a later
// valid date.
func (s *Service) merge(matches []league.Match, classify func(league.Match) (league.Stage, bool)) []Pair {
	now := s.clock.Now()
	index := make(map[pairKey]int)
	pairs := []Pair{}

	for _, m := range matches {
		if !m.Status.Active() {
			continue
		}
		st, ok := classify(m)
		if !ok {
			continue
		}
		date := league.ValidDate(m.Date, now)
		var at time.Time
		if date != nil {
			at, _ = league.ParseDate(*date)
		}

		k := keyOf(m.HomeTeamID, m.AwayTeamID)
		i, seen := index[k]
		if !seen {
			index[k] = len(pairs)
			pairs = append(pairs, Pair{
				MatchID:   m.ID,
				Team1:     analyzer.TeamRef{ID: m.HomeTeamID},
				Team2:     analyzer.TeamRef{ID: m.AwayTeamID},
				Matchday:  m.MatchdayOrZero(),
				Stage:     st.DisplayName(),
				StageCode: st.String(),
				Status:    m.Status,
				Date:      date,
				APIStage:  label(m.Stage),
				APIRound:  label(m.Round),
				stage:     st,
				at:        at,
			})
			continue
		}

		p := &pairs[i]
		md := m.MatchdayOrZero()
		later := md > p.Matchday ||
			(md == p.Matchday && date != nil && p.Date != nil && at.After(p.at))
		if !later {
			continue
		}
		p.MatchID = m.ID
		p.Matchday = md
		p.Status = m.Status
		if date != nil {
			p.Date, p.at = date, at
		}
	}
	return pairs
}

// identify fills in team names and crests.
func (s *Service) identify(ctx context.Context, pairs []Pair) error {
	ids := make(league.TeamSet)
	for _, p := range pairs {
		ids.Add(p.Team1.ID)
		ids.Add(p.Team2.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	teams, err := s.store.Teams(ctx, ids.Sorted())
	if err != nil {
		return err
	}
	fill := func(ref *analyzer.TeamRef) {
		t, ok := teams[ref.ID]
		if !ok {
			t = league.UnknownTeam(ref.ID)
		}
		ref.Name, ref.Crest = t.Name, t.Crest
	}
	for i := range pairs {
		fill(&pairs[i].Team1)
		fill(&pairs[i].Team2)
	}
	return nil
}

// probability asks the prober for a pair's estimate. A failure degrades to
// the neutral "error" estimate so one bad pair never fails the listing.
func (s *Service) probability(ctx context.Context, p Pair) analyzer.WinProbability {
	wp, err := s.prober.WinProbability(ctx, p.Team1.ID, p.Team2.ID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"match_id": p.MatchID,
			"team1":    p.Team1.ID,
			"team2":    p.Team2.ID,
		}).Warn("win probability failed")
		return analyzer.Neutral(analyzer.MethodError)
	}
	return wp
}

// CurrentStage returns the furthest stage reached among the most recent
// matches, LEAGUE when none of them is a knockout match.
func (s *Service) CurrentStage(ctx context.Context) (league.Stage, error) {
	matches, err := s.store.RecentMatches(ctx, s.opts.CompetitionID, s.opts.RecentWindow)
	if err != nil {
		return league.StageLeague, err
	}
	current := league.StageLeague
	for _, m := range matches {
		if c := league.Classify(m, league.AllPairsRanges); c.Knockout() && c.Stage > current {
			current = c.Stage
		}
	}
	return current, nil
}

func label(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// dateKey orders null dates first, like an empty string.
func dateKey(p Pair) string {
	if p.Date == nil {
		return ""
	}
	return p.at.Format(time.RFC3339)
}
