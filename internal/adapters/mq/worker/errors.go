package worker

import "errors"

// ErrPanicked is returned to the caller of a command that panicked.
var ErrPanicked = errors.New("command panicked")
