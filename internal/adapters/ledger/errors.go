package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrInvalidAccount = errors.New("invalid ledger account")
	ErrZeroAmount     = errors.New("transfer amount must be positive")
	ErrOverflow       = errors.New("balance overflow")
	ErrContention     = errors.New("ledger transaction kept conflicting")
	ErrNoClient       = errors.New("redis ledger requires a client")
)
