// Package ingest loads a normalized competition dataset (teams, matches and
// standings) into the store.
//
// Records may omit their official IDs. Teams are then keyed by name and
// matches by (home, away, date), and given synthetic IDs that can never clash
// with official ones.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/store"
)

var ErrInvalidRecord = errors.New("ingest: invalid record")

// Store is where a dataset is written. A load runs in one transaction.
type Store interface {
	InTx(ctx context.Context, fn func(*store.Tx) error) error
}

// Writer receives the records of one load.
type Writer interface {
	UpsertTeam(ctx context.Context, t league.Team) error
	UpsertMatch(ctx context.Context, m league.Match) error
	ReplaceStandings(ctx context.Context, rows []league.Standing, updatedAt string) error
}

// Dataset is the file format.
type Dataset struct {
	Teams     []TeamRecord     `json:"teams"`
	Matches   []MatchRecord    `json:"matches"`
	Standings []StandingRecord `json:"standings"`
}

type TeamRecord struct {
	ID    *int64  `json:"id"`
	Name  string  `json:"name"`
	Code  *string `json:"code"`
	Crest *string `json:"crest"`
}

// TeamRef points at a team by official ID or, failing that, by name.
type TeamRef struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

type MatchRecord struct {
	ID          *int64  `json:"id"`
	HomeTeam    TeamRef `json:"homeTeam"`
	AwayTeam    TeamRef `json:"awayTeam"`
	HomeScore   *int    `json:"homeScore"`
	AwayScore   *int    `json:"awayScore"`
	Status      string  `json:"status"`
	Matchday    *int    `json:"matchday"`
	Date        *string `json:"date"`
	Stage       string  `json:"stage"`
	Round       string  `json:"round"`
	Group       string  `json:"group"`
	Competition string  `json:"competition"`
}

type StandingRecord struct {
	Team           TeamRef `json:"team"`
	Position       int     `json:"position"`
	Played         int     `json:"played"`
	Won            int     `json:"won"`
	Drawn          int     `json:"drawn"`
	Lost           int     `json:"lost"`
	GoalsFor       int     `json:"goalsFor"`
	GoalsAgainst   int     `json:"goalsAgainst"`
	GoalDifference *int    `json:"goalDifference"`
	Points         int     `json:"points"`
}

// Summary counts the records written.
type Summary struct {
	Teams     int
	Matches   int
	Standings int
}

// Loader writes datasets into a store.
type Loader struct {
	store       Store
	clock       clock.Clock
	log         *logrus.Logger
	competition string
}

// NewLoader returns a loader. competition is assigned to matches that do
// not name one.
func NewLoader(s Store, c clock.Clock, log *logrus.Logger, competition string) *Loader {
	return &Loader{store: s, clock: c, log: log, competition: competition}
}

// LoadFile reads and loads the dataset at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load decodes a dataset from r and upserts it: teams first, then matches,
// then standings. Teams referenced by name only are created on first use.
// A standings section replaces the whole stored table; a dataset without
// one leaves the table as it is. Either every record is written or, on the
// first rejected record, none is. Loading the same dataset twice leaves the
// store unchanged.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Summary, error) {
	var ds Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}

	var sum Summary
	err := l.store.InTx(ctx, func(tx *store.Tx) error {
		run := &loadRun{
			Loader: l,
			w:      tx,
			byName: make(map[string]league.TeamID),
			claims: make(map[int64]string),
			seen:   make(league.TeamSet),
		}
		if err := run.teams(ctx, ds.Teams); err != nil {
			return err
		}
		if err := run.matches(ctx, ds.Matches); err != nil {
			return err
		}
		if ds.Standings != nil {
			if err := run.standings(ctx, ds.Standings); err != nil {
				return err
			}
		}
		sum = run.sum
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"teams":     sum.Teams,
		"matches":   sum.Matches,
		"standings": sum.Standings,
	}).Info("dataset loaded")
	return &sum, nil
}

// loadRun is the state of one Load call.
type loadRun struct {
	*Loader
	w      Writer
	byName map[string]league.TeamID // TeamKey -> ID
	claims map[int64]string         // synthetic ID -> key that produced it
	seen   league.TeamSet           // teams written so far
	sum    Summary
}

// claim records that key produced the synthetic id and rejects a second,
// different key landing on the same id.
func (r *loadRun) claim(id int64, key string) error {
	if prev, ok := r.claims[id]; ok && prev != key {
		return fmt.Errorf("%q and %q both map to %d: %w", prev, key, id, league.ErrIDCollision)
	}
	r.claims[id] = key
	return nil
}

func (r *loadRun) writeTeam(ctx context.Context, t league.Team) error {
	if err := r.w.UpsertTeam(ctx, t); err != nil {
		return err
	}
	if !r.seen.Has(t.ID) {
		r.seen.Add(t.ID)
		r.sum.Teams++
	}
	if key := league.TeamKey(t.Name); key != "" {
		if _, ok := r.byName[key]; !ok {
			r.byName[key] = t.ID
		}
	}
	return nil
}

func (r *loadRun) teams(ctx context.Context, recs []TeamRecord) error {
	for i, rec := range recs {
		name := strings.TrimSpace(rec.Name)
		if name == "" {
			return fmt.Errorf("team %d: missing name: %w", i, ErrInvalidRecord)
		}
		var id league.TeamID
		if rec.ID != nil {
			official, err := league.OfficialTeamID(*rec.ID)
			if err != nil {
				return fmt.Errorf("team %d (%s): %w", i, name, err)
			}
			id = official
		} else {
			id = league.SyntheticTeamID(name)
			if err := r.claim(int64(id), "team:"+league.TeamKey(name)); err != nil {
				return err
			}
		}
		if err := r.writeTeam(ctx, league.Team{ID: id, Name: name, Code: rec.Code, Crest: rec.Crest}); err != nil {
			return err
		}
	}
	return nil
}

// resolve turns a reference into a team ID, creating a synthetic team for a
// name that has not been seen.
func (r *loadRun) resolve(ctx context.Context, ref TeamRef) (league.TeamID, error) {
	if ref.ID != nil {
		return league.OfficialTeamID(*ref.ID)
	}
	name := strings.TrimSpace(ref.Name)
	key := league.TeamKey(name)
	if key == "" {
		return 0, fmt.Errorf("team reference without id or name: %w", ErrInvalidRecord)
	}
	if id, ok := r.byName[key]; ok {
		return id, nil
	}

	id := league.SyntheticTeamID(name)
	if err := r.claim(int64(id), "team:"+key); err != nil {
		return 0, err
	}
	r.log.WithFields(logrus.Fields{"team": name, "team_id": id}).Debug("creating team from name reference")
	if err := r.writeTeam(ctx, league.Team{ID: id, Name: name}); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *loadRun) matches(ctx context.Context, recs []MatchRecord) error {
	for i, rec := range recs {
		home, err := r.resolve(ctx, rec.HomeTeam)
		if err != nil {
			return fmt.Errorf("match %d home team: %w", i, err)
		}
		away, err := r.resolve(ctx, rec.AwayTeam)
		if err != nil {
			return fmt.Errorf("match %d away team: %w", i, err)
		}
		if home == away {
			return fmt.Errorf("match %d: team %d plays itself: %w", i, home, ErrInvalidRecord)
		}

		m := league.Match{
			HomeTeamID:    home,
			AwayTeamID:    away,
			HomeScore:     rec.HomeScore,
			AwayScore:     rec.AwayScore,
			Status:        statusOf(rec),
			Matchday:      rec.Matchday,
			Date:          rec.Date,
			Stage:         strings.TrimSpace(rec.Stage),
			Round:         strings.TrimSpace(rec.Round),
			GroupName:     strings.TrimSpace(rec.Group),
			CompetitionID: strings.TrimSpace(rec.Competition),
		}
		if m.CompetitionID == "" {
			m.CompetitionID = r.competition
		}

		if rec.ID != nil {
			if m.ID, err = league.OfficialMatchID(*rec.ID); err != nil {
				return fmt.Errorf("match %d: %w", i, err)
			}
		} else {
			date := m.DateOrEmpty()
			m.ID = league.SyntheticMatchID(home, away, date)
			if err := r.claim(int64(m.ID), "match:"+league.MatchKey(home, away, date)); err != nil {
				return err
			}
		}

		if err := r.w.UpsertMatch(ctx, m); err != nil {
			return err
		}
		r.sum.Matches++
	}
	return nil
}

// statusOf normalizes the upstream status. A record without one is FINISHED
// when it carries both scores and SCHEDULED otherwise.
func statusOf(rec MatchRecord) league.Status {
	if s := strings.ToUpper(strings.TrimSpace(rec.Status)); s != "" {
		return league.Status(s)
	}
	if rec.HomeScore != nil && rec.AwayScore != nil {
		return league.StatusFinished
	}
	return league.StatusScheduled
}

func (r *loadRun) standings(ctx context.Context, recs []StandingRecord) error {
	rows := make([]league.Standing, 0, len(recs))
	for i, rec := range recs {
		team, err := r.resolve(ctx, rec.Team)
		if err != nil {
			return fmt.Errorf("standing %d: %w", i, err)
		}
		gd := rec.GoalsFor - rec.GoalsAgainst
		if rec.GoalDifference != nil {
			gd = *rec.GoalDifference
		}
		st := league.Standing{
			TeamID:         team,
			Position:       rec.Position,
			Played:         rec.Played,
			Won:            rec.Won,
			Drawn:          rec.Drawn,
			Lost:           rec.Lost,
			GoalsFor:       rec.GoalsFor,
			GoalsAgainst:   rec.GoalsAgainst,
			GoalDifference: gd,
			Points:         rec.Points,
		}
		rows = append(rows, st)
	}
	updatedAt := r.clock.Now().UTC().Format(time.RFC3339)
	if err := r.w.ReplaceStandings(ctx, rows, updatedAt); err != nil {
		return err
	}
	r.sum.Standings = len(rows)
	return nil
}
