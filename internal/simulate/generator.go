package simulate

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// maxStakeMultiple bounds a generated stake at this many minimum bets.
const maxStakeMultiple = 5

// NewAccounts returns n fresh bettor identities.
func NewAccounts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "sim-" + uuid.NewString()
	}
	return out
}

// generateBets spreads n bets over accounts with random sides and stakes of
// one to maxStakeMultiple minimum bets.
func generateBets(cfg *Config, n int) []Bet {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1)) //nolint:gosec // load generation

	bets := make([]Bet, n)
	for i := range bets {
		side := "positive"
		if rng.IntN(2) == 1 {
			side = "negative"
		}
		bets[i] = Bet{
			User:   cfg.Accounts[rng.IntN(len(cfg.Accounts))],
			Key:    uuid.NewString(),
			Side:   side,
			Amount: cfg.MinimumBet * (1 + rng.Uint64N(maxStakeMultiple)),
		}
	}
	return bets
}

// sampleFor draws closing mood inputs.
func sampleFor(cfg *Config) (biometric, sentiment uint64, weather, event int64) {
	rng := rand.New(rand.NewPCG(cfg.Seed+1, cfg.Seed+2)) //nolint:gosec // load generation
	return rng.Uint64N(101), rng.Uint64N(101), rng.Int64N(41) - 20, rng.Int64N(41) - 20
}
