package solkoff_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/utakatalp/ucl-solkoff/internal/clock"
	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/solkoff"
	"github.com/utakatalp/ucl-solkoff/internal/store"
	"github.com/utakatalp/ucl-solkoff/internal/store/storetest"
)

var (
	ctx = context.Background()
	now = clock.Fixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
)

func newCalculator(s solkoff.Store) (*solkoff.Calculator, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return solkoff.NewCalculator(s, now, log), hook
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateSolkoff(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *storetest.Fixture) league.TeamID
		want  float64
	}{
		{
			name: "mean of opponent ppg",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o2 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O2")
				f.Result(tm, o1, 1, 0)
				f.Result(o2, tm, 2, 2)
				f.Standing(o1, 9, 3)
				f.Standing(o2, 4, 4)
				return tm
			},
			want: 2.0,
		},
		{
			name: "opponent faced twice counts once",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o2 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O2")
				f.Result(tm, o1, 1, 0)
				f.Result(o1, tm, 0, 0)
				f.Result(tm, o2, 3, 1)
				f.Standing(o1, 9, 3)
				f.Standing(o2, 4, 4)
				return tm
			},
			want: 2.0,
		},
		{
			name: "only opponent has played zero",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o := f.Team(1, "T"), f.Team(2, "O")
				f.Result(tm, o, 1, 0)
				f.Standing(o, 0, 0)
				return tm
			},
			want: 0,
		},
		{
			name: "played zero opponent left out of the mean",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o2 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O2")
				f.Result(tm, o1, 1, 0)
				f.Result(tm, o2, 1, 0)
				f.Standing(o1, 9, 3)
				f.Standing(o2, 0, 0)
				return tm
			},
			want: 3.0,
		},
		{
			name: "opponent without standings row",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o2 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O2")
				f.Result(tm, o1, 1, 0)
				f.Result(tm, o2, 1, 0)
				f.Standing(o1, 4, 4)
				return tm
			},
			want: 1.0,
		},
		{
			name: "finished match without home score ignored",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o3 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O3")
				f.Result(tm, o1, 1, 0)
				f.Match(league.Match{HomeTeamID: o3, AwayTeamID: tm, Status: league.StatusFinished, AwayScore: storetest.Int(2)})
				f.Standing(o1, 4, 4)
				f.Standing(o3, 9, 3)
				return tm
			},
			want: 1.0,
		},
		{
			name: "unplayed fixtures ignored",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o := f.Team(1, "T"), f.Team(2, "O")
				f.Match(league.Match{HomeTeamID: tm, AwayTeamID: o, Status: league.StatusScheduled})
				f.Standing(o, 9, 3)
				return tm
			},
			want: 0,
		},
		{
			name: "no matches",
			setup: func(f *storetest.Fixture) league.TeamID {
				return f.Team(1, "T")
			},
			want: 0,
		},
		{
			name: "unknown team",
			setup: func(f *storetest.Fixture) league.TeamID {
				return 4040
			},
			want: 0,
		},
		{
			name: "rounded to three decimals",
			setup: func(f *storetest.Fixture) league.TeamID {
				tm, o1, o2 := f.Team(1, "T"), f.Team(2, "O1"), f.Team(3, "O2")
				f.Result(tm, o1, 1, 0)
				f.Result(tm, o2, 1, 0)
				f.Standing(o1, 7, 3)
				f.Standing(o2, 1, 3)
				return tm
			},
			want: 1.333,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := storetest.Seed(t)
			team := tt.setup(f)
			calc, _ := newCalculator(f.Store)

			got, err := calc.CalculateSolkoff(ctx, team)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !approx(got, tt.want) {
				t.Errorf("CalculateSolkoff = %v, want %v", got, tt.want)
			}
		})
	}
}

func seedGroup(f *storetest.Fixture) {
	a, b, c := f.Team(1, "Arsenal"), f.Team(2, "Barcelona"), f.Team(3, "Celtic")
	f.Result(a, b, 2, 1)
	f.Result(b, c, 3, 0)
	f.Result(c, a, 1, 1)
	f.Standing(a, 4, 2)
	f.Standing(b, 3, 2)
	f.Standing(c, 1, 2)
}

func TestCalculateAllIsIdempotent(t *testing.T) {
	f := storetest.Seed(t)
	seedGroup(f)
	calc, _ := newCalculator(f.Store)

	first, err := calc.CalculateAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Written != 3 || first.Skipped != 0 {
		t.Fatalf("report = %+v", first)
	}
	if first.CalculatedAt != "2026-03-01T09:00:00Z" {
		t.Errorf("CalculatedAt = %q", first.CalculatedAt)
	}
	before, err := f.Store.Coefficients(ctx)
	if err != nil {
		t.Fatal(err)
	}

	second, err := calc.CalculateAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second.RunID == first.RunID {
		t.Error("run IDs repeat across passes")
	}
	after, err := f.Store.Coefficients(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(after) != len(before) {
		t.Fatalf("row count changed from %d to %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("row %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}

	// Arsenal faced Barcelona (1.5) and Celtic (0.5)
	if !approx(after[0].Value, 1.0) {
		t.Errorf("Arsenal = %v, want 1.0", after[0].Value)
	}
}

// failingStore breaks opponent lookups for one team.
type failingStore struct {
	*store.Store
	broken league.TeamID
}

func (s failingStore) Opponents(ctx context.Context, team league.TeamID) ([]league.TeamID, error) {
	if team == s.broken {
		return nil, errors.New("connection reset")
	}
	return s.Store.Opponents(ctx, team)
}

func TestCalculateAllSkipsFailingTeam(t *testing.T) {
	f := storetest.Seed(t)
	seedGroup(f)
	calc, hook := newCalculator(failingStore{Store: f.Store, broken: 2})

	report, err := calc.CalculateAll(ctx)
	if err != nil {
		t.Fatalf("CalculateAll: %v", err)
	}
	if report.Written != 2 || report.Skipped != 1 {
		t.Errorf("report = %+v, want 2 written and 1 skipped", report)
	}
	for _, o := range report.Outcomes {
		if (o.TeamID == 2) == o.OK() {
			t.Errorf("outcome for team %d: err = %v", o.TeamID, o.Err)
		}
	}

	stored, err := f.Store.Coefficients(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d coefficients, want 2", len(stored))
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["team_id"] == league.TeamID(2) {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning logged for the skipped team")
	}
}

// rejectingStore fails the coefficient write of one team.
type rejectingStore struct {
	*store.Store
	rejected league.TeamID
}

func (s rejectingStore) SaveCoefficients(ctx context.Context, rows []store.Coefficient, at string) ([]error, error) {
	var kept []store.Coefficient
	var idx []int
	for i, r := range rows {
		if r.TeamID != s.rejected {
			kept = append(kept, r)
			idx = append(idx, i)
		}
	}
	keptErrs, err := s.Store.SaveCoefficients(ctx, kept, at)
	if err != nil {
		return nil, err
	}
	rowErrs := make([]error, len(rows))
	for i := range rows {
		if rows[i].TeamID == s.rejected {
			rowErrs[i] = errors.New("constraint violated")
		}
	}
	for j, e := range keptErrs {
		rowErrs[idx[j]] = e
	}
	return rowErrs, nil
}

func TestCalculateAllRecordsWriteFailure(t *testing.T) {
	f := storetest.Seed(t)
	seedGroup(f)
	calc, _ := newCalculator(rejectingStore{Store: f.Store, rejected: 3})

	report, err := calc.CalculateAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Written != 2 || report.Skipped != 1 {
		t.Errorf("report = %+v", report)
	}
	if o := report.Outcomes[2]; o.TeamID != 3 || o.OK() {
		t.Errorf("outcome = %+v, want team 3 failed", o)
	}
}
