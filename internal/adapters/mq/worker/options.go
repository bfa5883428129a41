package worker

import (
	"github.com/okian/moodmarket/pkg/logger"
)

// Option applies a configuration option to the Sequencer.
type Option func(*Sequencer)

// WithName sets the sequencer name used in logs.
func WithName(name string) Option {
	return func(s *Sequencer) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the sequencer.
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}
