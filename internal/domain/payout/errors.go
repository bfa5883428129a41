package payout

import "errors"

// Construction errors.
var (
	ErrMissingDependency = errors.New("payout calculator requires markets, positions, transfers and stats")
	ErrNoCustody         = errors.New("payout calculator requires a custody account")
)
