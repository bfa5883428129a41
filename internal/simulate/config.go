// Package simulate drives a running market service over HTTP: it opens a
// market, places concurrent bets, settles it and checks the accounting.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Owner        string        // Owner identity; creates and resolves the market
	Oracle       string        // Oracle identity; submits the closing sample
	Accounts     []string      // Funded bettor identities
	Bets         int           // Number of bets to place
	Workers      int           // Number of concurrent bettors
	MinimumBet   uint64        // Smallest stake the service accepts
	Threshold    uint64        // Market threshold
	Settle       bool          // Wait for close, resolve and claim
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // How often to poll while waiting for close
	Seed         uint64        // Seed for the bet generator; zero picks one
	Verbose      bool          // Enable verbose logging
}

// Bet is one generated stake.
type Bet struct {
	User   string `json:"-"`
	Key    string `json:"-"`
	Side   string `json:"side"`
	Amount uint64 `json:"amount"`
}

// Market is the subset of the market view the simulator reads.
type Market struct {
	ID           uint64  `json:"id"`
	ClosesAt     uint64  `json:"closes_at"`
	ResolvesAt   uint64  `json:"resolves_at"`
	Threshold    uint64  `json:"threshold"`
	TotalPool    uint64  `json:"total_pool"`
	PositivePool uint64  `json:"positive_pool"`
	NegativePool uint64  `json:"negative_pool"`
	Resolved     bool    `json:"resolved"`
	ActualScore  *uint64 `json:"actual_score"`
	Phase        string  `json:"phase"`
}

type receipt struct {
	Fee uint64 `json:"fee"`
	Net uint64 `json:"net"`
}

type quote struct {
	Payout  uint64 `json:"payout"`
	Correct bool   `json:"correct"`
}

type fund struct {
	Balance uint64 `json:"balance"`
	Paused  bool   `json:"paused"`
}

// Entry is one standings row.
type Entry struct {
	Rank     int    `json:"rank"`
	User     string `json:"user"`
	Winnings uint64 `json:"winnings"`
}

// Report summarises a run.
type Report struct {
	MarketID    uint64
	BetsPlaced  int
	BetsFailed  int
	Staked      uint64
	Fees        uint64
	TotalPool   uint64
	Score       uint64
	Winner      string
	WinningPool uint64
	Claims      int
	Payouts     uint64
	Dust        uint64
	Leaderboard []Entry
	StartTime   time.Time
	Duration    time.Duration
}
