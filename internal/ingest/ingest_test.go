package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/ingest"
	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/store/storetest"
)

var (
	ctx = context.Background()
	now = clock.Fixed(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
)

const dataset = `{
	"teams": [
		{"id": 65, "name": "Manchester City", "code": "MCI", "crest": "https://crests.example/65.png"},
		{"id": 5, "name": "Bayern München"},
		{"name": "Young Boys"}
	],
	"matches": [
		{"id": 9001, "homeTeam": {"id": 65}, "awayTeam": {"id": 5}, "homeScore": 3, "awayScore": 1,
		 "matchday": 1, "date": "2025-09-17T19:00:00Z", "stage": "LEAGUE_STAGE"},
		{"homeTeam": {"name": "young boys"}, "awayTeam": {"id": 65}, "homeScore": 0, "awayScore": 2,
		 "matchday": 2, "date": "2025-10-01T19:00:00Z", "stage": "LEAGUE_STAGE"},
		{"homeTeam": {"name": "Slavia Praha"}, "awayTeam": {"name": "Young Boys"},
		 "matchday": 3, "date": "2025-10-22T16:45:00Z", "competition": "EL"}
	],
	"standings": [
		{"team": {"id": 65}, "position": 1, "played": 2, "won": 2, "goalsFor": 5, "goalsAgainst": 1, "points": 6},
		{"team": {"name": "Young Boys"}, "position": 3, "played": 1, "lost": 1, "goalsAgainst": 2, "goalDifference": -2, "points": 0}
	]
}`

func newLoader(s ingest.Store) *ingest.Loader {
	log, _ := test.NewNullLogger()
	return ingest.NewLoader(s, now, log, "CL")
}

func TestLoad(t *testing.T) {
	s := storetest.New(t)

	sum, err := newLoader(s).Load(ctx, strings.NewReader(dataset))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Teams != 4 || sum.Matches != 3 || sum.Standings != 2 {
		t.Errorf("summary = %+v", *sum)
	}

	youngBoys := league.SyntheticTeamID("Young Boys")
	slavia := league.SyntheticTeamID("Slavia Praha")
	if youngBoys.Kind() != league.KindSynthetic || slavia.Kind() != league.KindSynthetic {
		t.Fatalf("synthetic ids %d, %d are not negative", youngBoys, slavia)
	}

	teams, err := s.Teams(ctx, []league.TeamID{65, 5, youngBoys, slavia})
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 4 {
		t.Fatalf("found %d teams, want 4", len(teams))
	}
	if c := teams[65]; c.Code == nil || *c.Code != "MCI" || c.Crest == nil {
		t.Errorf("Manchester City = %+v", c)
	}
	if teams[slavia].Name != "Slavia Praha" {
		t.Errorf("team created from reference named %q", teams[slavia].Name)
	}

	counted, err := s.CountedMatches(ctx, "CL")
	if err != nil {
		t.Fatal(err)
	}
	if len(counted) != 2 {
		t.Fatalf("got %d counted CL matches, want 2", len(counted))
	}
	var synthetic league.Match
	for _, m := range counted {
		if m.ID != 9001 {
			synthetic = m
		}
	}
	if synthetic.ID.Kind() != league.KindSynthetic || synthetic.HomeTeamID != youngBoys || synthetic.Status != league.StatusFinished {
		t.Errorf("synthetic match = %+v", synthetic)
	}

	candidates, err := s.KnockoutCandidates(ctx, "EL")
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].Status != league.StatusScheduled {
		t.Errorf("EL matches = %+v, want one scheduled", candidates)
	}

	rows, err := s.Rankings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d standings, want 2", len(rows))
	}
	if city := rows[0].Standing; city.TeamID != 65 || city.GoalDifference != 4 || city.Points != 6 {
		t.Errorf("derived goal difference row = %+v", city)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	s := storetest.New(t)
	l := newLoader(s)

	snapshot := func() ([]league.TeamID, []league.Match) {
		ids, err := s.TeamIDs(ctx)
		if err != nil {
			t.Fatal(err)
		}
		matches, err := s.CountedMatches(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		return ids, matches
	}

	if _, err := l.Load(ctx, strings.NewReader(dataset)); err != nil {
		t.Fatal(err)
	}
	ids1, m1 := snapshot()
	if _, err := l.Load(ctx, strings.NewReader(dataset)); err != nil {
		t.Fatal(err)
	}
	ids2, m2 := snapshot()

	if len(ids1) != len(ids2) || len(m1) != len(m2) {
		t.Fatalf("second load changed counts: %d/%d teams, %d/%d matches", len(ids1), len(ids2), len(m1), len(m2))
	}
	for i := range m1 {
		if m1[i].ID != m2[i].ID {
			t.Errorf("match %d id %d -> %d", i, m1[i].ID, m2[i].ID)
		}
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "team without name",
			body:    `{"teams": [{"id": 3, "name": "  "}]}`,
			wantErr: ingest.ErrInvalidRecord,
		},
		{
			name:    "non-positive official id",
			body:    `{"teams": [{"id": -4, "name": "Sturm Graz"}]}`,
			wantErr: league.ErrInvalidID,
		},
		{
			name:    "match against itself",
			body:    `{"matches": [{"homeTeam": {"name": "Girona"}, "awayTeam": {"name": " GIRONA "}}]}`,
			wantErr: ingest.ErrInvalidRecord,
		},
		{
			name:    "reference without id or name",
			body:    `{"standings": [{"team": {}, "points": 3}]}`,
			wantErr: ingest.ErrInvalidRecord,
		},
		{
			name:    "official match id zero",
			body:    `{"teams": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}], "matches": [{"id": 0, "homeTeam": {"id": 1}, "awayTeam": {"id": 2}}]}`,
			wantErr: league.ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.New(t)
			_, err := newLoader(s).Load(ctx, strings.NewReader(tt.body))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	s := storetest.New(t)
	if _, err := newLoader(s).Load(ctx, strings.NewReader(`{"teams": [`)); err == nil {
		t.Error("malformed dataset accepted")
	}
}

func TestNameReferencesReuseDeclaredTeams(t *testing.T) {
	s := storetest.New(t)
	body := `{
		"teams": [{"id": 86, "name": "Real Madrid"}],
		"matches": [{"homeTeam": {"name": "REAL  madrid"}, "awayTeam": {"name": "Atalanta"}, "homeScore": 1, "awayScore": 1}]
	}`

	sum, err := newLoader(s).Load(ctx, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	ids, err := s.TeamIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Teams != 2 || len(ids) != 2 {
		t.Fatalf("wrote %d teams, stored %v, want 2", sum.Teams, ids)
	}
	matches, err := s.TeamMatches(ctx, 86, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("Real Madrid has %d matches, want the one referenced by name", len(matches))
	}
}

func TestLoadRejectedRecordWritesNothing(t *testing.T) {
	// valid team and match first, a team playing itself last
	const bad = `{
		"teams": [{"id": 86, "name": "Real Madrid"}],
		"matches": [
			{"id": 9100, "homeTeam": {"id": 86}, "awayTeam": {"name": "Atalanta"}, "homeScore": 1, "awayScore": 0},
			{"homeTeam": {"name": "Girona"}, "awayTeam": {"name": "GIRONA"}}
		],
		"standings": []
	}`

	tests := []struct {
		name      string
		preload   bool
		wantTeams int
		wantRows  int
	}{
		{"empty store", false, 0, 0},
		{"after a load", true, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.New(t)
			l := newLoader(s)
			if tt.preload {
				if _, err := l.Load(ctx, strings.NewReader(dataset)); err != nil {
					t.Fatal(err)
				}
			}

			if _, err := l.Load(ctx, strings.NewReader(bad)); !errors.Is(err, ingest.ErrInvalidRecord) {
				t.Fatalf("err = %v, want ErrInvalidRecord", err)
			}

			ids, err := s.TeamIDs(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != tt.wantTeams {
				t.Errorf("stored %d teams, want %d: %v", len(ids), tt.wantTeams, ids)
			}
			matches, err := s.TeamMatches(ctx, 86, "")
			if err != nil {
				t.Fatal(err)
			}
			if len(matches) != 0 {
				t.Errorf("match of the rejected file kept: %+v", matches)
			}
			rows, err := s.Rankings(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.wantRows {
				t.Errorf("standings rows = %d, want %d", len(rows), tt.wantRows)
			}
		})
	}
}

func TestLoadReplacesStandings(t *testing.T) {
	s := storetest.New(t)
	l := newLoader(s)
	if _, err := l.Load(ctx, strings.NewReader(dataset)); err != nil {
		t.Fatal(err)
	}

	rankings := func() []league.Standing {
		t.Helper()
		rows, err := s.Rankings(ctx)
		if err != nil {
			t.Fatal(err)
		}
		out := make([]league.Standing, len(rows))
		for i, r := range rows {
			out[i] = r.Standing
		}
		return out
	}

	tests := []struct {
		name       string
		body       string
		wantRows   int
		wantPoints int
	}{
		{
			name:       "team dropped from the table",
			body:       `{"standings": [{"team": {"id": 65}, "position": 1, "played": 3, "won": 3, "goalsFor": 7, "goalsAgainst": 1, "points": 9}]}`,
			wantRows:   1,
			wantPoints: 9,
		},
		{
			name:       "no standings section",
			body:       `{"teams": [{"id": 65, "name": "Manchester City"}]}`,
			wantRows:   1,
			wantPoints: 9,
		},
		{
			name:     "empty standings section",
			body:     `{"standings": []}`,
			wantRows: 0,
		},
	}

	// each case builds on the table the previous one left
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.Load(ctx, strings.NewReader(tt.body)); err != nil {
				t.Fatal(err)
			}
			got := rankings()
			if len(got) != tt.wantRows {
				t.Fatalf("got %d standings rows, want %d: %+v", len(got), tt.wantRows, got)
			}
			if tt.wantRows > 0 && (got[0].TeamID != 65 || got[0].Points != tt.wantPoints) {
				t.Errorf("row = %+v, want Manchester City on %d points", got[0], tt.wantPoints)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(dataset), 0o644); err != nil {
		t.Fatal(err)
	}
	s := storetest.New(t)

	sum, err := newLoader(s).LoadFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Matches != 3 {
		t.Errorf("loaded %d matches, want 3", sum.Matches)
	}

	if _, err := newLoader(s).LoadFile(ctx, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}
