package api

import (
	"context"
	"net/http"

	service "github.com/okian/moodmarket/internal/app"
	"github.com/okian/moodmarket/internal/domain/model"
)

// MarketDependencies defines the market lifecycle operations.
type MarketDependencies interface {
	CreateMarket(ctx context.Context, caller model.Identity, in service.CreateMarketInput) (service.MarketView, error)
	Market(ctx context.Context, id model.MarketID) (service.MarketView, error)
	Markets(ctx context.Context) ([]service.MarketView, error)
	Odds(ctx context.Context, id model.MarketID) (model.Odds, error)
	CanResolve(ctx context.Context, id model.MarketID) (bool, error)
	Resolve(ctx context.Context, caller model.Identity, id model.MarketID) (service.MarketView, error)
}

// MarketsHandler handles market requests.
type MarketsHandler struct {
	deps MarketDependencies
}

// NewMarketsHandler creates a new markets handler.
func NewMarketsHandler(deps MarketDependencies) *MarketsHandler {
	return &MarketsHandler{deps: deps}
}

type createMarketRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Threshold        uint64 `json:"threshold"`
	ResolutionSource string `json:"resolution_source"`
}

type resolvableResponse struct {
	MarketID   model.MarketID `json:"market_id"`
	CanResolve bool           `json:"can_resolve"`
}

// HandleCreate handles POST /markets requests.
func (h *MarketsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_market"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	var req createMarketRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	view, err := h.deps.CreateMarket(r.Context(), caller, service.CreateMarketInput{
		Title:            req.Title,
		Description:      req.Description,
		Threshold:        req.Threshold,
		ResolutionSource: req.ResolutionSource,
	})
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// HandleList handles GET /markets requests.
func (h *MarketsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.deps.Markets(r.Context())
	if err != nil {
		writeFailure(w, "api.list_markets", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGet handles GET /markets/{id} requests.
func (h *MarketsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_market"
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	view, err := h.deps.Market(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleOdds handles GET /markets/{id}/odds requests.
func (h *MarketsHandler) HandleOdds(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_odds"
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	odds, err := h.deps.Odds(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, odds)
}

// HandleCanResolve handles GET /markets/{id}/resolvable requests.
func (h *MarketsHandler) HandleCanResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.can_resolve"
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	can, err := h.deps.CanResolve(r.Context(), id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, resolvableResponse{MarketID: id, CanResolve: can})
}

// HandleResolve handles POST /markets/{id}/resolve requests.
func (h *MarketsHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	const op = "api.resolve_market"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	id, ok := marketIDOf(w, r, op)
	if !ok {
		return
	}
	view, err := h.deps.Resolve(r.Context(), caller, id)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
