package model

// SourceMask flags which inputs contributed to a mood sample.
type SourceMask uint8

// Mood input sources.
const (
	SourceBiometric SourceMask = 1 << iota
	SourceSentiment
	SourceWeather
	SourceEvent

	SourceAll = SourceBiometric | SourceSentiment | SourceWeather | SourceEvent
)

// Has reports whether every bit of s is set in m.
func (m SourceMask) Has(s SourceMask) bool { return m&s == s }

// MoodSample is one oracle submission keyed by block height.
type MoodSample struct {
	Timestamp      uint64     `json:"timestamp"`
	BiometricScore uint64     `json:"biometric_score"`
	SentimentScore uint64     `json:"sentiment_score"`
	WeatherImpact  int64      `json:"weather_impact"`
	EventImpact    int64      `json:"event_impact"`
	CompositeScore uint64     `json:"composite_score"`
	SourceMask     SourceMask `json:"source_mask"`
}
