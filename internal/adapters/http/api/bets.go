package api

import (
	"context"
	"net/http"

	"github.com/okian/moodmarket/internal/domain/betting"
	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/payout"
)

// BetDependencies defines staking and settlement operations.
type BetDependencies interface {
	PlaceBet(ctx context.Context, caller model.Identity, id model.MarketID, side model.Side, amount uint64) (betting.Receipt, error)
	Position(ctx context.Context, id model.MarketID, user model.Identity) (model.Position, error)
	Claim(ctx context.Context, caller model.Identity, id model.MarketID) (payout.Quote, error)
	Quote(ctx context.Context, id model.MarketID, user model.Identity) (payout.Quote, error)
}

// BetsHandler handles bet and claim requests.
type BetsHandler struct {
	deps BetDependencies
}

// NewBetsHandler creates a new bets handler.
func NewBetsHandler(deps BetDependencies) *BetsHandler {
	return &BetsHandler{deps: deps}
}

type betRequest struct {
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
}

// HandlePlace handles POST /markets/{id}/bets requests.
func (h *BetsHandler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	const op = "api.place_bet"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	var req betRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	side, err := model.ParseSide(req.Side)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	receipt, err := h.deps.PlaceBet(r.Context(), caller, id, side, req.Amount)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// HandleClaim handles POST /markets/{id}/claim requests.
func (h *BetsHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	const op = "api.claim"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	q, err := h.deps.Claim(r.Context(), caller, id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleQuote handles GET /markets/{id}/quote/{user} requests.
func (h *BetsHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	const op = "api.quote"
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	user, ok := userOf(w, r, op)
	if !ok {
		return
	}
	q, err := h.deps.Quote(r.Context(), id, user)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandlePosition handles GET /markets/{id}/positions/{user} requests.
func (h *BetsHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_position"
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	user, ok := userOf(w, r, op)
	if !ok {
		return
	}
	pos, err := h.deps.Position(r.Context(), id, user)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}
