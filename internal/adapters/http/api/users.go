package api

import (
	"context"
	"net/http"

	"github.com/okian/moodmarket/internal/domain/model"
)

// UserDependencies defines per-account reads.
type UserDependencies interface {
	UserStats(ctx context.Context, user model.Identity) (model.UserStats, error)
	Balance(ctx context.Context, user model.Identity) (uint64, error)
}

// UsersHandler handles account requests.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type balanceResponse struct {
	User    model.Identity `json:"user"`
	Balance uint64         `json:"balance"`
}

// HandleStats handles GET /users/{user}/stats requests.
func (h *UsersHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_stats"
	user, ok := userOf(w, r, op)
	if !ok {
		return
	}
	stats, err := h.deps.UserStats(r.Context(), user)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleBalance handles GET /users/{user}/balance requests.
func (h *UsersHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "api.user_balance"
	user, ok := userOf(w, r, op)
	if !ok {
		return
	}
	bal, err := h.deps.Balance(r.Context(), user)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{User: user, Balance: bal})
}
