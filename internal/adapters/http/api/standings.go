package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/moodmarket/internal/adapters/repository"
)

// Entry is one predictor standings row.
type Entry = repository.Entry

// StandingsDependencies reads the predictor standings.
type StandingsDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, user string) (Entry, error)
}

// StandingsHandler serves predictor rankings by total winnings.
type StandingsHandler struct {
	deps     StandingsDependencies
	maxLimit int
}

// NewStandingsHandler creates a handler capping leaderboard pages at maxLimit.
func NewStandingsHandler(deps StandingsDependencies, maxLimit int) *StandingsHandler {
	return &StandingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleTop handles GET /leaderboard?limit=N.
func (h *StandingsHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	n, code, err := h.limitOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, code, WrapKind(op, ErrBadRequest, err))
		return
	}
	top, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	if top == nil {
		top = []Entry{}
	}
	writeJSON(w, http.StatusOK, top)
}

// limitOf parses the mandatory page size, returning the error code to report.
func (h *StandingsHandler) limitOf(r *http.Request) (int, string, error) {
	raw := r.URL.Query().Get("limit")
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil || n < 1:
		return 0, "bad_request", fmt.Errorf("limit %q", raw)
	case n > h.maxLimit:
		return 0, "limit_exceeded", fmt.Errorf("limit %d above %d", n, h.maxLimit)
	}
	return n, "", nil
}

// HandleRank handles GET /rank/{user}.
func (h *StandingsHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.rank"
	user, ok := userOf(w, r, op)
	if !ok {
		return
	}
	entry, err := h.deps.Rank(r.Context(), string(user))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case err != nil:
		writeFailure(w, op, err)
	default:
		writeJSON(w, http.StatusOK, entry)
	}
}
