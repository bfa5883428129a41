package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*memoryDeduper)

// WithMaxSize sets the maximum number of keys kept in memory. Values <= 0
// disable eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		d.maxSize = maxSize
	}
}
