package model

import "errors"

// Sentinel kinds for market operations. Every operation fails with exactly one
// of these (possibly wrapped); callers match with errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidMarket       = errors.New("invalid market")
	ErrMarketClosed        = errors.New("market closed")
	ErrMarketExpired       = errors.New("market expired")
	ErrMarketNotExpired    = errors.New("market not expired")
	ErrAlreadyResolved     = errors.New("market already resolved")
	ErrMarketNotResolved   = errors.New("market not resolved")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOracle              = errors.New("oracle error")
	ErrAlreadyClaimed      = errors.New("already claimed")
)

// Kinds lists every sentinel in a stable order.
var Kinds = []error{
	ErrUnauthorized,
	ErrInvalidMarket,
	ErrMarketClosed,
	ErrMarketExpired,
	ErrMarketNotExpired,
	ErrAlreadyResolved,
	ErrMarketNotResolved,
	ErrInvalidAmount,
	ErrInvalidInput,
	ErrInsufficientBalance,
	ErrOracle,
	ErrAlreadyClaimed,
}

// KindOf returns the sentinel err wraps, or nil when err is not a market error.
func KindOf(err error) error {
	for _, k := range Kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var codes = map[error]string{
	ErrUnauthorized:        "unauthorized",
	ErrInvalidMarket:       "invalid_market",
	ErrMarketClosed:        "market_closed",
	ErrMarketExpired:       "market_expired",
	ErrMarketNotExpired:    "market_not_expired",
	ErrAlreadyResolved:     "already_resolved",
	ErrMarketNotResolved:   "market_not_resolved",
	ErrInvalidAmount:       "invalid_amount",
	ErrInvalidInput:        "invalid_input",
	ErrInsufficientBalance: "insufficient_balance",
	ErrOracle:              "oracle_error",
	ErrAlreadyClaimed:      "already_claimed",
}

// Code returns the wire code of the market error err wraps, or "" when err
// is not a market error.
func Code(err error) string {
	return codes[KindOf(err)]
}
