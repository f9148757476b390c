// Package api exposes rankings, pair analyses and knockout views over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/utakatalp/ucl-solkoff/internal/analyzer"
	"github.com/utakatalp/ucl-solkoff/internal/knockout"
	"github.com/utakatalp/ucl-solkoff/internal/league"
	"github.com/utakatalp/ucl-solkoff/internal/solkoff"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Solkoff interface {
	Rankings(ctx context.Context) ([]solkoff.RankingEntry, error)
	Details(ctx context.Context, team league.TeamID) (*solkoff.Breakdown, error)
	CalculateAll(ctx context.Context) (*solkoff.Report, error)
}

type Analyzer interface {
	AnalyzePair(ctx context.Context, team1, team2 league.TeamID) (*analyzer.PairAnalysis, error)
	TeamHistory(ctx context.Context, team league.TeamID, years int) ([]analyzer.HistoricalMatch, error)
}

type Knockout interface {
	Pairs(ctx context.Context, stage string) ([]knockout.Pair, error)
	CurrentStage(ctx context.Context) (league.Stage, error)
}

type StandingsBuilder interface {
	Rebuild(ctx context.Context, competitionID string) ([]league.Standing, error)
}

// Deps are the services behind the handlers. Rebuilder is nil when the
// table is imported rather than rebuilt from results.
type Deps struct {
	DB            Pinger
	Solkoff       Solkoff
	Analyzer      Analyzer
	Knockout      Knockout
	Rebuilder     StandingsBuilder
	CompetitionID string
	Log           *logrus.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
	refreshMu sync.Mutex
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d}
}

// Health reports service and database status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Ping(r.Context()); err != nil {
		h.Log.WithError(err).Error("database ping failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unavailable",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "connected",
	})
}

// Standings returns the main table with Solkoff coefficients.
func (h *Handler) Standings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Solkoff.Rankings(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to load standings")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// SolkoffDetails explains one team's coefficient.
func (h *Handler) SolkoffDetails(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r, "id")
	if !ok {
		return
	}
	b, err := h.Solkoff.Details(r.Context(), team)
	if errors.Is(err, solkoff.ErrTeamNotFound) {
		respondError(w, http.StatusNotFound, "team not found")
		return
	}
	if err != nil {
		h.internalError(w, err, "failed to load solkoff details")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// TeamHistory lists a team's recent results. ?years=N narrows the window.
func (h *Handler) TeamHistory(w http.ResponseWriter, r *http.Request) {
	team, ok := teamParam(w, r, "id")
	if !ok {
		return
	}
	years := 0
	if v := r.URL.Query().Get("years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
		years = n
	}
	history, err := h.Analyzer.TeamHistory(r.Context(), team, years)
	if err != nil {
		h.internalError(w, err, "failed to load team history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// PlayoffPairs lists knockout ties, optionally for one ?stage=CODE.
func (h *Handler) PlayoffPairs(w http.ResponseWriter, r *http.Request) {
	pairs, err := h.Knockout.Pairs(r.Context(), r.URL.Query().Get("stage"))
	if err != nil {
		h.internalError(w, err, "failed to load playoff pairs")
		return
	}
	respondJSON(w, http.StatusOK, pairs)
}

// CurrentStage reports the furthest stage the competition has reached.
func (h *Handler) CurrentStage(w http.ResponseWriter, r *http.Request) {
	st, err := h.Knockout.CurrentStage(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to detect current stage")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"stage":       st.String(),
		"displayName": st.DisplayName(),
	})
}

// Analyze runs the common-opponents analysis of two teams.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	team1, ok := teamParam(w, r, "team1")
	if !ok {
		return
	}
	team2, ok := teamParam(w, r, "team2")
	if !ok {
		return
	}
	if team1 == team2 {
		respondError(w, http.StatusBadRequest, "teams must differ")
		return
	}
	res, err := h.Analyzer.AnalyzePair(r.Context(), team1, team2)
	if err != nil {
		h.internalError(w, err, "failed to analyze pair")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Refresh rebuilds the standings (when they come from results) and
// recomputes every coefficient. Concurrent refreshes run one at a time.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	resp := map[string]any{"status": "success"}
	if h.Rebuilder != nil {
		table, err := h.Rebuilder.Rebuild(r.Context(), h.CompetitionID)
		if err != nil {
			h.internalError(w, err, "failed to rebuild standings")
			return
		}
		resp["standingsRebuilt"] = len(table)
	}

	report, err := h.Solkoff.CalculateAll(r.Context())
	if err != nil {
		h.internalError(w, err, "failed to recalculate coefficients")
		return
	}
	resp["runId"] = report.RunID
	resp["calculatedAt"] = report.CalculatedAt
	resp["written"] = report.Written
	resp["skipped"] = report.Skipped
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) internalError(w http.ResponseWriter, err error, msg string) {
	h.Log.WithError(err).Error(msg)
	respondError(w, http.StatusInternalServerError, msg)
}

// teamParam reads a team ID path variable, answering 400 when it is not a
// non-zero integer. Synthetic teams have negative IDs.
func teamParam(w http.ResponseWriter, r *http.Request, name string) (league.TeamID, bool) {
	n, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || n == 0 {
		respondError(w, http.StatusBadRequest, "invalid team id")
		return 0, false
	}
	return league.TeamID(n), true
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
