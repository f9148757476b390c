package league

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// IDs live in two namespaces sharing one int64 column: official IDs issued
// by the upstream data provider are positive, synthetic IDs derived for
// records that have no official ID are negative.

var (
	ErrInvalidID   = errors.New("league: official id must be positive")
	ErrIDCollision = errors.New("league: synthetic id collision")
)

// IDKind tells which namespace an ID belongs to.
type IDKind int

const (
	KindOfficial IDKind = iota
	KindSynthetic
)

func (k IDKind) String() string {
	if k == KindSynthetic {
		return "synthetic"
	}
	return "official"
}

// TeamID identifies a team.
type TeamID int64

// MatchID identifies a match.
type MatchID int64

func (id TeamID) Kind() IDKind  { return kindOf(int64(id)) }
func (id MatchID) Kind() IDKind { return kindOf(int64(id)) }

func kindOf(v int64) IDKind {
	if v < 0 {
		return KindSynthetic
	}
	return KindOfficial
}

// OfficialTeamID validates an upstream team ID.
func OfficialTeamID(n int64) (TeamID, error) {
	if n <= 0 {
		return 0, fmt.Errorf("team %d: %w", n, ErrInvalidID)
	}
	return TeamID(n), nil
}

// OfficialMatchID validates an upstream match ID.
func OfficialMatchID(n int64) (MatchID, error) {
	if n <= 0 {
		return 0, fmt.Errorf("match %d: %w", n, ErrInvalidID)
	}
	return MatchID(n), nil
}

var (
	teamNamespace  = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ucl-solkoff/team"))
	matchNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ucl-solkoff/match"))
)

// TeamKey normalizes a team name into the key its synthetic ID is derived
// from: lower case, trimmed, inner whitespace collapsed.
func TeamKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// MatchKey is the key a synthetic match ID is derived from.
func MatchKey(home, away TeamID, date string) string {
	return fmt.Sprintf("%d|%d|%s", home, away, strings.TrimSpace(date))
}

// SyntheticTeamID derives the synthetic ID for a team known only by name.
func SyntheticTeamID(name string) TeamID {
	return TeamID(synthetic(teamNamespace, TeamKey(name)))
}

// SyntheticMatchID derives the synthetic ID for a match without an official
// ID.
func SyntheticMatchID(home, away TeamID, date string) MatchID {
	return MatchID(synthetic(matchNamespace, MatchKey(home, away, date)))
}

// synthetic maps a UUIDv5 of key into [-2^62, -1].
func synthetic(ns uuid.UUID, key string) int64 {
	u := uuid.NewSHA1(ns, []byte(key))
	v := binary.BigEndian.Uint64(u[:8]) & (1<<62 - 1)
	return -int64(v) - 1
}

// TeamSet is a set of team IDs.
type TeamSet map[TeamID]struct{}

// NewTeamSet builds a set from ids.
func NewTeamSet(ids ...TeamID) TeamSet {
	s := make(TeamSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s TeamSet) Add(id TeamID) { s[id] = struct{}{} }

func (s TeamSet) Has(id TeamID) bool {
	_, ok := s[id]
	return ok
}

// Intersect returns the members present in both s and o.
func (s TeamSet) Intersect(o TeamSet) TeamSet {
	out := make(TeamSet)
	for id := range s {
		if o.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s TeamSet) Sorted() []TeamID {
	ids := make([]TeamID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
