// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// MoodScaleMax is the upper bound of every mood score and market threshold.
const MoodScaleMax = 100

// MarketID identifies a market. IDs start at 1 and strictly increase.
type MarketID uint64

// Side is the direction of a stake.
type Side uint8

// Stake sides. Positive predicts the resolved score lands at or above the
// market threshold.
const (
	Positive Side = iota + 1
	Negative
)

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the two market sides.
func (s Side) Valid() bool { return s == Positive || s == Negative }

// ParseSide parses a wire side name. "above"/"yes" and "below"/"no" are
// accepted as aliases.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "positive", "above", "yes":
		return Positive, nil
	case "negative", "below", "no":
		return Negative, nil
	}
	return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidInput, v)
}

// Phase is the derived lifecycle stage of a market at a given height.
type Phase string

// Lifecycle phases. Expired marks a market whose resolution window elapsed
// without a resolution; its stakes stay locked.
const (
	PhaseOpen     Phase = "open"
	PhaseClosed   Phase = "closed"
	PhaseResolved Phase = "resolved"
	PhaseExpired  Phase = "expired"
)

// Market is a binary market on the composite mood score.
type Market struct {
	ID               MarketID `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Creator          Identity `json:"creator"`
	CreatedAt        uint64   `json:"created_at"`
	ClosesAt         uint64   `json:"closes_at"`
	ResolvesAt       uint64   `json:"resolves_at"`
	Threshold        uint64   `json:"threshold"`
	TotalPool        uint64   `json:"total_pool"`
	PositivePool     uint64   `json:"positive_pool"`
	NegativePool     uint64   `json:"negative_pool"`
	Resolved         bool     `json:"resolved"`
	ActualScore      *uint64  `json:"actual_score,omitempty"`
	ResolutionSource string   `json:"resolution_source"`
}

// Phase derives the lifecycle stage at height now.
func (m *Market) Phase(now uint64) Phase {
	switch {
	case m.Resolved:
		return PhaseResolved
	case now < m.ClosesAt:
		return PhaseOpen
	case now < m.ResolvesAt:
		return PhaseClosed
	default:
		return PhaseExpired
	}
}

// Pool returns the pool of the given side.
func (m *Market) Pool(side Side) uint64 {
	if side == Positive {
		return m.PositivePool
	}
	return m.NegativePool
}

// WinningSide returns the side that won a resolved market. Equality with the
// threshold counts as positive.
func (m *Market) WinningSide() (Side, bool) {
	if !m.Resolved || m.ActualScore == nil {
		return 0, false
	}
	if *m.ActualScore >= m.Threshold {
		return Positive, true
	}
	return Negative, true
}

// Odds is the share of the pool staked on each side, in percent.
type Odds struct {
	PositiveOdds uint64 `json:"positive_odds"`
	NegativeOdds uint64 `json:"negative_odds"`
}

// OddsOf computes the odds of m. An empty pool reports 50/50; otherwise each
// side is floored independently.
func OddsOf(m *Market) Odds {
	if m.TotalPool == 0 {
		return Odds{PositiveOdds: 50, NegativeOdds: 50}
	}
	return Odds{
		PositiveOdds: MulDiv(m.PositivePool, 100, m.TotalPool),
		NegativeOdds: MulDiv(m.NegativePool, 100, m.TotalPool),
	}
}
