package model

// PositionKey addresses a user's position in one market.
type PositionKey struct {
	MarketID MarketID
	User     Identity
}

// Position holds a user's net stakes on both sides of a market.
type Position struct {
	PositiveAmount uint64 `json:"positive_amount"`
	NegativeAmount uint64 `json:"negative_amount"`
	Claimed        bool   `json:"claimed"`
}

// Amount returns the stake on side.
func (p Position) Amount(side Side) uint64 {
	if side == Positive {
		return p.PositiveAmount
	}
	return p.NegativeAmount
}

// UserStats are monotonic per-user counters.
type UserStats struct {
	TotalBets             uint64 `json:"total_bets"`
	SuccessfulPredictions uint64 `json:"successful_predictions"`
	TotalWinnings         uint64 `json:"total_winnings"`
	FundContributions     uint64 `json:"fund_contributions"`
}
