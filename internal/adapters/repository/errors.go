package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("predictor not found")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
)
