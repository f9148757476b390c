package league

import (
	"math"
	"strings"
)

// Stage is a competition phase, ordered by progression.
type Stage int

const (
	StageLeague Stage = iota
	StageKnockoutPlayoff
	StageRoundOf16
	StageQuarterFinal
	StageSemiFinal
	StageFinal
)

var stageCodes = [...]string{
	StageLeague:          "LEAGUE",
	StageKnockoutPlayoff: "KNOCKOUT_PLAYOFF",
	StageRoundOf16:       "ROUND_OF_16",
	StageQuarterFinal:    "QUARTER_FINAL",
	StageSemiFinal:       "SEMI_FINAL",
	StageFinal:           "FINAL",
}

var stageNames = [...]string{
	StageLeague:          "League",
	StageKnockoutPlayoff: "Knockout Round Play-off",
	StageRoundOf16:       "Round of 16",
	StageQuarterFinal:    "Quarter-finals",
	StageSemiFinal:       "Semi-finals",
	StageFinal:           "Final",
}

// String returns the stage code, e.g. "ROUND_OF_16".
func (s Stage) String() string {
	if s < StageLeague || s > StageFinal {
		return "UNKNOWN"
	}
	return stageCodes[s]
}

// DisplayName returns the human label, e.g. "Round of 16".
func (s Stage) DisplayName() string {
	if s < StageLeague || s > StageFinal {
		return "Unknown"
	}
	return stageNames[s]
}

// ParseStage maps a stage code back to its Stage.
func ParseStage(code string) (Stage, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, c := range stageCodes {
		if c == code {
			return Stage(i), true
		}
	}
	return StageLeague, false
}

// LeagueStageLabel is the upstream stage value of league-phase matches.
const LeagueStageLabel = "LEAGUE_STAGE"

// Signal names the match field a classification was read from. The order of
// the constants is the precedence order of Classify.
type Signal int

const (
	SignalNone Signal = iota
	SignalRound
	SignalStage
	SignalMatchday
)

func (s Signal) String() string {
	switch s {
	case SignalRound:
		return "round"
	case SignalStage:
		return "stage"
	case SignalMatchday:
		return "matchday"
	}
	return "none"
}

// Classification is the knockout stage assigned to a match and the signal
// that decided it. Signal is SignalNone for matches that are not knockout.
type Classification struct {
	Stage  Stage
	Signal Signal
}

// Knockout reports whether the match was classified into a knockout stage.
func (c Classification) Knockout() bool { return c.Signal != SignalNone }

// MatchdayRange maps an inclusive matchday span to a stage.
type MatchdayRange struct {
	Stage Stage
	Min   int
	Max   int
}

// MatchdayRanges is the matchday fallback table, consulted in order.
type MatchdayRanges []MatchdayRange

// Lookup returns the stage of the first range containing md.
func (r MatchdayRanges) Lookup(md int) (Stage, bool) {
	for _, rg := range r {
		if md >= rg.Min && md <= rg.Max {
			return rg.Stage, true
		}
	}
	return StageLeague, false
}

// For returns the range registered for stage.
func (r MatchdayRanges) For(stage Stage) (MatchdayRange, bool) {
	for _, rg := range r {
		if rg.Stage == stage {
			return rg, true
		}
	}
	return MatchdayRange{}, false
}

// AllPairsRanges is the fallback used when listing every knockout pair and
// when detecting the current stage. Matchdays below 7 stay unclassified.
var AllPairsRanges = MatchdayRanges{
	{StageKnockoutPlayoff, 7, 8},
	{StageRoundOf16, 9, 10},
	{StageQuarterFinal, 11, 12},
	{StageSemiFinal, 13, 14},
	{StageFinal, 15, math.MaxInt},
}

// ByStageRanges is the fallback used when pairs of one requested stage are
// listed. The play-off span starts at matchday 1 so that sparse early data
// still surfaces; it overlaps the round of 16 on 9-10. This differs from
// AllPairsRanges and both are kept as they are.
var ByStageRanges = MatchdayRanges{
	{StageKnockoutPlayoff, 1, 10},
	{StageRoundOf16, 9, 10},
	{StageQuarterFinal, 11, 12},
	{StageSemiFinal, 13, 14},
	{StageFinal, 15, 999},
}

type marker struct {
	stage   Stage
	needles []string
}

// Marker lists are checked top to bottom, so "SEMI_FINAL" resolves to the
// semi-final before the bare FINAL marker is tried.
var roundMarkers = []marker{
	{StageKnockoutPlayoff, []string{"PLAY_OFF", "PLAYOFF"}},
	{StageRoundOf16, []string{"ROUND_OF_16", "ROUND OF 16", "LAST_16"}},
	{StageQuarterFinal, []string{"QUARTER"}},
	{StageSemiFinal, []string{"SEMI"}},
	{StageFinal, []string{"FINAL"}},
}

var stageMarkers = []marker{
	{StageKnockoutPlayoff, []string{"KNOCKOUT", "PLAY_OFF"}},
	{StageRoundOf16, []string{"ROUND_OF_16", "LAST_16"}},
	{StageQuarterFinal, []string{"QUARTER"}},
	{StageSemiFinal, []string{"SEMI"}},
	{StageFinal, []string{"FINAL"}},
}

func matchMarkers(text string, markers []marker) (Stage, bool) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return StageLeague, false
	}
	for _, m := range markers {
		for _, n := range m.needles {
			if strings.Contains(text, n) {
				return m.stage, true
			}
		}
	}
	return StageLeague, false
}

// ClassifyRound reads a stage from free-text round metadata.
func ClassifyRound(round string) (Stage, bool) { return matchMarkers(round, roundMarkers) }

// ClassifyStageText reads a stage from free-text stage metadata.
func ClassifyStageText(stage string) (Stage, bool) { return matchMarkers(stage, stageMarkers) }

// Excluded reports whether m is a league-phase match, which is never
// classified as knockout whatever its matchday.
func Excluded(m Match) bool {
	return strings.EqualFold(strings.TrimSpace(m.Stage), LeagueStageLabel) ||
		strings.TrimSpace(m.GroupName) != ""
}

// Classify assigns a knockout stage to m. Precedence, first hit wins:
//
//  1. league-phase exclusion (stage LEAGUE_STAGE or a group name)
//  2. round text markers
//  3. stage text markers
//  4. matchday ranges
func Classify(m Match, ranges MatchdayRanges) Classification {
	if Excluded(m) {
		return Classification{}
	}
	if st, ok := ClassifyRound(m.Round); ok {
		return Classification{Stage: st, Signal: SignalRound}
	}
	if st, ok := ClassifyStageText(m.Stage); ok {
		return Classification{Stage: st, Signal: SignalStage}
	}
	if m.Matchday != nil {
		if st, ok := ranges.Lookup(*m.Matchday); ok {
			return Classification{Stage: st, Signal: SignalMatchday}
		}
	}
	return Classification{}
}

// InStage reports whether m belongs to want when pairs of one stage are
// requested. Text signals keep their precedence and must name want; only
// when both are silent does the matchday range registered for want decide,
// so overlapping ranges may admit one match to two stages.
func InStage(m Match, want Stage, ranges MatchdayRanges) bool {
	if Excluded(m) {
		return false
	}
	if st, ok := ClassifyRound(m.Round); ok {
		return st == want
	}
	if st, ok := ClassifyStageText(m.Stage); ok {
		return st == want
	}
	rg, ok := ranges.For(want)
	if !ok || m.Matchday == nil {
		return false
	}
	md := *m.Matchday
	return md >= rg.Min && md <= rg.Max
}
