package api

import (
	"context"
	"net/http"

	service "github.com/okian/moodmarket/internal/app"
	"github.com/okian/moodmarket/internal/domain/model"
)

// FundDependencies defines the community fund and owner operations.
type FundDependencies interface {
	Fund(ctx context.Context) (service.FundView, error)
	Withdraw(ctx context.Context, caller model.Identity, amount uint64, recipient model.Identity) (service.FundView, error)
	TogglePause(ctx context.Context, caller model.Identity) (service.FundView, error)
	RegisterOracle(ctx context.Context, caller, oracle model.Identity) error
}

// FundHandler handles fund and admin requests.
type FundHandler struct {
	deps FundDependencies
}

// NewFundHandler creates a new fund handler.
func NewFundHandler(deps FundDependencies) *FundHandler {
	return &FundHandler{deps: deps}
}

type withdrawRequest struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

type oracleRequest struct {
	Oracle string `json:"oracle"`
}

// HandleGet handles GET /fund requests.
func (h *FundHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.Fund(r.Context())
	if err != nil {
		writeFailure(w, "api.get_fund", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleWithdraw handles POST /fund/withdraw requests.
func (h *FundHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "api.withdraw_fund"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	var req withdrawRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	view, err := h.deps.Withdraw(r.Context(), caller, req.Amount, model.Identity(req.Recipient))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleTogglePause handles POST /admin/pause requests.
func (h *FundHandler) HandleTogglePause(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_pause"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	view, err := h.deps.TogglePause(r.Context(), caller)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleRegisterOracle handles POST /admin/oracle requests.
func (h *FundHandler) HandleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_oracle"
	caller, ok := callerOf(w, r, op)
	if !ok {
		return
	}
	var req oracleRequest
	if !decodeBody(w, r, op, &req) {
		return
	}
	if err := h.deps.RegisterOracle(r.Context(), caller, model.Identity(req.Oracle)); err != nil {
		writeFailure(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
