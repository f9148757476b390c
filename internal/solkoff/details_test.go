package solkoff_test

import (
	"errors"
	"testing"

	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/solkoff"
	"github.com/utakatalp/ucl-solkoff/internal/store/storetest"
)

func TestDetails(t *testing.T) {
	f := storetest.Seed(t)
	tm, o1, o2, o3 := f.Team(1, "Milan"), f.Team(2, "Dortmund"), f.Team(3, "Club Brugge"), f.Team(4, "Benfica")
	f.Result(tm, o1, 1, 2)
	f.Result(o1, tm, 0, 0)
	f.Result(o2, tm, 1, 3)
	f.Result(tm, o3, 2, 2)
	f.Standing(o1, 12, 6)
	f.Standing(o2, 12, 6)
	f.Standing(o3, 0, 0)

	calc, _ := newCalculator(f.Store)
	if _, err := calc.CalculateAll(ctx); err != nil {
		t.Fatal(err)
	}

	b, err := calc.Details(ctx, tm)
	if err != nil {
		t.Fatal(err)
	}
	if b.TeamName != "Milan" || !approx(b.SolkoffCoefficient, 2.0) {
		t.Errorf("header = %s %v", b.TeamName, b.SolkoffCoefficient)
	}
	if b.OpponentsCount != 3 || b.MatchesCount != 4 || b.TotalOpponentPoints != 24 {
		t.Errorf("totals = %d opponents, %d matches, %d points", b.OpponentsCount, b.MatchesCount, b.TotalOpponentPoints)
	}

	// equal points fall back to name order
	names := []string{b.Opponents[0].TeamName, b.Opponents[1].TeamName, b.Opponents[2].TeamName}
	want := []string{"Club Brugge", "Dortmund", "Benfica"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("opponent order = %v, want %v", names, want)
		}
	}

	dortmund := b.Opponents[1]
	if dortmund.MatchesPlayed != 2 || dortmund.PPG == nil || !approx(*dortmund.PPG, 2.0) {
		t.Errorf("Dortmund = %+v", dortmund)
	}
	first := dortmund.Matches[0]
	if first.Outcome != league.OutcomeDraw && first.Outcome != league.OutcomeLoss {
		t.Errorf("Dortmund match outcome = %v", first.Outcome)
	}
	if benfica := b.Opponents[2]; benfica.PPG != nil {
		t.Errorf("Benfica ppg = %v, want nil for zero games", *benfica.PPG)
	}
	if brugge := b.Opponents[0]; brugge.Matches[0].IsHome || brugge.Matches[0].Outcome != league.OutcomeWin {
		t.Errorf("Brugge match = %+v", brugge.Matches[0])
	}
}

func TestDetailsUnknownTeam(t *testing.T) {
	f := storetest.Seed(t)
	calc, _ := newCalculator(f.Store)

	if _, err := calc.Details(ctx, 77); !errors.Is(err, solkoff.ErrTeamNotFound) {
		t.Errorf("err = %v, want ErrTeamNotFound", err)
	}
}

func TestRankings(t *testing.T) {
	f := storetest.Seed(t)
	seedGroup(f)
	calc, _ := newCalculator(f.Store)
	if _, err := calc.CalculateAll(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := calc.Rankings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].TeamName != "Arsenal" || rows[0].Points != 4 {
		t.Errorf("leader = %+v", rows[0])
	}
	for _, r := range rows {
		if !approx(r.StrengthScore, float64(r.Points)*r.SolkoffCoefficient) {
			t.Errorf("%s strength = %v, want points x solkoff", r.TeamName, r.StrengthScore)
		}
	}
}
