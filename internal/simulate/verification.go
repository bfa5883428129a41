package simulate

import (
	"errors"
	"fmt"
)

// ErrInvariant reports accounting that does not add up.
var ErrInvariant = errors.New("invariant violated")

// verifyPools checks the market pools against accepted receipts and the
// fund growth against collected fees.
func verifyPools(m Market, net, fees, fundDelta uint64) error {
	if m.PositivePool+m.NegativePool != m.TotalPool {
		return fmt.Errorf("%w: pools %d+%d != total %d", ErrInvariant, m.PositivePool, m.NegativePool, m.TotalPool)
	}
	if m.TotalPool != net {
		return fmt.Errorf("%w: total pool %d != accepted net stakes %d", ErrInvariant, m.TotalPool, net)
	}
	if fundDelta != fees {
		return fmt.Errorf("%w: fund grew %d, fees collected %d", ErrInvariant, fundDelta, fees)
	}
	return nil
}

// verifyConservation checks that payouts never exceed the pool and that
// rounding loses less than one unit per claim. It returns the dust.
func verifyConservation(m Market, payouts uint64, claims int) (uint64, error) {
	if payouts > m.TotalPool {
		return 0, fmt.Errorf("%w: payouts %d exceed pool %d", ErrInvariant, payouts, m.TotalPool)
	}
	winning := m.NegativePool
	if winner(m) == "positive" {
		winning = m.PositivePool
	}
	if winning == 0 {
		if payouts != 0 {
			return 0, fmt.Errorf("%w: paid %d from an empty winning side", ErrInvariant, payouts)
		}
		return m.TotalPool, nil
	}
	dust := m.TotalPool - payouts
	if dust >= uint64(max(claims, 1)) {
		return dust, fmt.Errorf("%w: %d left in pool after %d claims", ErrInvariant, dust, claims)
	}
	return dust, nil
}

// verifyLeaderboard checks that standings are ranked by winnings.
func verifyLeaderboard(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if cur.Winnings > prev.Winnings {
			return fmt.Errorf("%w: %s (%d) ranked below %s (%d)",
				ErrInvariant, cur.User, cur.Winnings, prev.User, prev.Winnings)
		}
		if cur.Rank < prev.Rank {
			return fmt.Errorf("%w: rank %d after rank %d", ErrInvariant, cur.Rank, prev.Rank)
		}
	}
	return nil
}
