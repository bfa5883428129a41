package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrBackpressure = errors.New("command queue full")
	ErrNotStarted   = errors.New("service not started")
	ErrStopped      = errors.New("service stopped")
	// ErrAbandoned reports a caller that stopped waiting after its command
	// was enqueued. The command may still be applied.
	ErrAbandoned = errors.New("request abandoned after enqueue")
)
