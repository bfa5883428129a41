package repository

// Option applies a configuration option to the Standings.
type Option func(*Standings)

// WithSeed fixes the treap priority seed, making tree shape reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Standings) {
		s.seed = seed
	}
}
