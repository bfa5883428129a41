package betting

import "errors"

// Construction errors.
var (
	ErrMissingDependency = errors.New("betting ledger requires a gate, markets, transfers, a fund and a position store")
	ErrNoCustody         = errors.New("betting ledger requires a custody account")
	ErrInvalidFeeRate    = errors.New("fee rate exceeds 1000 parts per thousand")
)
