package market

import "errors"

// Construction errors.
var (
	ErrNoGate          = errors.New("market registry requires a pause gate")
	ErrNoStore         = errors.New("market registry requires a market store")
	ErrInvalidSchedule = errors.New("market duration and resolution window must be positive")
)
