// Package mood turns oracle mood inputs into a bounded composite score and
// keeps the submitted samples keyed by block height.
package mood

import (
	"context"
	"fmt"

	"github.com/okian/moodmarket/internal/domain/model"
	"github.com/okian/moodmarket/internal/domain/store"
)

// Authorizer decides whether a caller may submit samples.
type Authorizer interface {
	IsOracle(id model.Identity) bool
}

// Aggregator computes composite scores and stores the samples.
type Aggregator struct {
	auth    Authorizer
	samples store.KeyValue[uint64, model.MoodSample]
}

// NewAggregator creates an aggregator keeping samples in the given store.
func NewAggregator(auth Authorizer, samples store.KeyValue[uint64, model.MoodSample]) *Aggregator {
	return &Aggregator{auth: auth, samples: samples}
}

// Submission is a raw oracle sample.
type Submission struct {
	Timestamp     uint64
	Biometric     uint64
	Sentiment     uint64
	WeatherImpact int64
	EventImpact   int64
	// SourceMask flags the inputs that were available; zero means all.
	SourceMask model.SourceMask
}

// Submit validates and stores a sample, returning its composite score.
// Re-submitting a timestamp replaces the earlier sample.
func (a *Aggregator) Submit(_ context.Context, caller model.Identity, in Submission) (uint64, error) {
	if !a.auth.IsOracle(caller) {
		return 0, fmt.Errorf("submit sample: %w", model.ErrUnauthorized)
	}
	if in.Biometric > model.MoodScaleMax || in.Sentiment > model.MoodScaleMax {
		return 0, fmt.Errorf("submit sample: biometric %d sentiment %d: %w",
			in.Biometric, in.Sentiment, model.ErrInvalidInput)
	}
	if in.SourceMask&^model.SourceAll != 0 {
		return 0, fmt.Errorf("submit sample: source mask %#x: %w", in.SourceMask, model.ErrInvalidInput)
	}

	score := Composite(in.Biometric, in.Sentiment, in.WeatherImpact, in.EventImpact)
	mask := in.SourceMask
	if mask == 0 {
		mask = model.SourceAll
	}
	a.samples.Put(in.Timestamp, model.MoodSample{
		Timestamp:      in.Timestamp,
		BiometricScore: in.Biometric,
		SentimentScore: in.Sentiment,
		WeatherImpact:  in.WeatherImpact,
		EventImpact:    in.EventImpact,
		CompositeScore: score,
		SourceMask:     mask,
	})
	return score, nil
}

// CompositeScore returns the score stored at exactly ts.
func (a *Aggregator) CompositeScore(ts uint64) (uint64, error) {
	s, err := a.Sample(ts)
	if err != nil {
		return 0, err
	}
	return s.CompositeScore, nil
}

// Sample returns the sample stored at exactly ts.
func (a *Aggregator) Sample(ts uint64) (model.MoodSample, error) {
	s, ok := a.samples.Get(ts)
	if !ok {
		return model.MoodSample{}, fmt.Errorf("no sample at %d: %w", ts, model.ErrOracle)
	}
	return s, nil
}

// Composite folds the inputs: the mean of biometric and sentiment, then the
// weather and event deltas, each saturating in [0, MoodScaleMax].
// Biometric and sentiment must already be within the scale.
func Composite(biometric, sentiment uint64, weather, event int64) uint64 {
	base := (biometric + sentiment) / 2
	return ApplyDelta(ApplyDelta(base, weather), event)
}

// ApplyDelta adds a signed delta to v and clamps the result to
// [0, MoodScaleMax]. v must be within the scale.
func ApplyDelta(v uint64, delta int64) uint64 {
	const top = model.MoodScaleMax
	if delta >= 0 {
		if uint64(delta) >= top-v {
			return top
		}
		return v + uint64(delta)
	}
	// -(delta+1)+1 avoids overflow on math.MinInt64.
	down := uint64(-(delta + 1)) + 1
	if down >= v {
		return 0
	}
	return v - down
}
