// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/moodmarket/internal/app"
	"github.com/okian/moodmarket/internal/domain/dedupe"
	"github.com/okian/moodmarket/internal/domain/model"
)

// CallerHeader carries the identity of the account issuing a request.
const CallerHeader = "X-Caller-Identity"

// IdempotencyHeader deduplicates retried POST requests.
const IdempotencyHeader = "Idempotency-Key"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper
	MarketDependencies
	BetDependencies
	SampleDependencies
	UserDependencies
	FundDependencies
	StandingsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	ops       *OpsHandler
	markets   *MarketsHandler
	bets      *BetsHandler
	samples   *SamplesHandler
	users     *UsersHandler
	fund      *FundHandler
	standings *StandingsHandler

	deduper dedupe.Deduper
	limiter *RateLimiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimiter throttles every business route with l.
func WithRateLimiter(l *RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int, opts ...ServerOption) *Server {
	s := &Server{
		ops:       NewOpsHandler(statsProvider),
		markets:   NewMarketsHandler(deps),
		bets:      NewBetsHandler(deps),
		samples:   NewSamplesHandler(deps),
		users:     NewUsersHandler(deps),
		fund:      NewFundHandler(deps),
		standings: NewStandingsHandler(deps, maxLimit),
		deduper:   deps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.ops.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.ops.HandleStats, "stats"))

	s.handle(mux, "POST /markets", "create_market", s.idempotent("create_market", s.markets.HandleCreate))
	s.handle(mux, "GET /markets", "list_markets", s.markets.HandleList)
	s.handle(mux, "GET /markets/{id}", "get_market", s.markets.HandleGet)
	s.handle(mux, "GET /markets/{id}/odds", "get_odds", s.markets.HandleOdds)
	s.handle(mux, "GET /markets/{id}/resolvable", "can_resolve", s.markets.HandleCanResolve)
	s.handle(mux, "POST /markets/{id}/resolve", "resolve_market", s.idempotent("resolve_market", s.markets.HandleResolve))

	s.handle(mux, "POST /markets/{id}/bets", "place_bet", s.idempotent("place_bet", s.bets.HandlePlace))
	s.handle(mux, "POST /markets/{id}/claim", "claim", s.idempotent("claim", s.bets.HandleClaim))
	s.handle(mux, "GET /markets/{id}/quote/{user}", "quote", s.bets.HandleQuote)
	s.handle(mux, "GET /markets/{id}/positions/{user}", "get_position", s.bets.HandlePosition)

	s.handle(mux, "POST /samples", "submit_sample", s.idempotent("submit_sample", s.samples.HandleSubmit))
	s.handle(mux, "GET /samples/{ts}", "get_sample", s.samples.HandleGet)

	s.handle(mux, "GET /users/{user}/stats", "user_stats", s.users.HandleStats)
	s.handle(mux, "GET /users/{user}/balance", "user_balance", s.users.HandleBalance)

	s.handle(mux, "GET /fund", "get_fund", s.fund.HandleGet)
	s.handle(mux, "POST /fund/withdraw", "withdraw_fund", s.idempotent("withdraw_fund", s.fund.HandleWithdraw))
	s.handle(mux, "POST /admin/pause", "toggle_pause", s.idempotent("toggle_pause", s.fund.HandleTogglePause))
	s.handle(mux, "POST /admin/oracle", "register_oracle", s.idempotent("register_oracle", s.fund.HandleRegisterOracle))

	s.handle(mux, "GET /leaderboard", "leaderboard", s.standings.HandleTop)
	s.handle(mux, "GET /rank/{user}", "rank", s.standings.HandleRank)
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	if s.limiter != nil {
		h = s.limiter.Middleware(h, endpoint)
	}
	mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
}

// idempotent rejects a replayed Idempotency-Key with 409. The key is
// forgotten again only when the request was rejected without being applied:
// a 4xx, or a 5xx the handler marked as never enqueued. Any other 5xx keeps
// the key since its command may have run.
func (s *Server) idempotent(op string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		if key == "" {
			next(w, r)
			return
		}
		scoped := strings.Join([]string{r.Header.Get(CallerHeader), op, key}, "|")
		if s.deduper.SeenAndRecord(r.Context(), scoped) {
			writeError(w, http.StatusConflict, "duplicate", NewKind("api."+op, ErrDuplicate))
			return
		}
		wrapped := &keyWriter{responseWriter: &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}}
		next(wrapped, r)
		if wrapped.releasable() {
			s.deduper.Unrecord(r.Context(), scoped)
		}
	}
}

// keyWriter tracks whether a failed idempotent request left state untouched.
type keyWriter struct {
	*responseWriter
	unapplied bool
}

func (kw *keyWriter) releasable() bool {
	switch {
	case kw.statusCode < http.StatusBadRequest:
		return false
	case kw.statusCode < http.StatusInternalServerError:
		return true
	default:
		return kw.unapplied
	}
}

// markUnapplied flags a failure that happened before any command was queued.
func markUnapplied(w http.ResponseWriter) {
	if kw, ok := w.(*keyWriter); ok {
		kw.unapplied = true
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a service error onto a status and wire code.
func writeFailure(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, err))
		return
	case errors.Is(err, service.ErrAbandoned):
		writeError(w, http.StatusServiceUnavailable, "abandoned", Wrap(op, err))
		return
	case errors.Is(err, service.ErrNotStarted):
		markUnapplied(w)
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	case errors.Is(err, service.ErrStopped),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	kind := model.KindOf(err)
	if kind == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeError(w, statusOf(kind), model.Code(kind), Wrap(op, err))
}

func statusOf(kind error) int {
	switch kind {
	case model.ErrUnauthorized:
		return http.StatusForbidden
	case model.ErrInvalidMarket:
		return http.StatusNotFound
	case model.ErrInvalidAmount, model.ErrInvalidInput:
		return http.StatusBadRequest
	case model.ErrInsufficientBalance, model.ErrOracle:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

// callerOf returns the caller identity or writes 401.
func callerOf(w http.ResponseWriter, r *http.Request, op string) (model.Identity, bool) {
	id := model.Identity(strings.TrimSpace(r.Header.Get(CallerHeader)))
	if !id.Valid() {
		writeError(w, http.StatusUnauthorized, "missing_caller", NewKind(op, ErrMissingCaller))
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return false
	}
	return true
}

func marketIDOf(w http.ResponseWriter, r *http.Request, op string) (model.MarketID, bool) {
	v, err := uintPath(r, "id")
	if err != nil || v == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("market id %q", r.PathValue("id"))))
		return 0, false
	}
	return model.MarketID(v), true
}

func uintPath(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func userOf(w http.ResponseWriter, r *http.Request, op string) (model.Identity, bool) {
	id := model.Identity(r.PathValue("user"))
	if !id.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("empty user")))
		return "", false
	}
	return id, true
}
