package sessioncache

import "time"

// Option is a function type for configuring the session cache.
type Option func(*Options)

// Options contains configuration options for the session cache.
type Options struct {
	// TTL is the entry lease duration.
	TTL time.Duration

	// MaxMessages caps the ranked recent-message buffer.
	MaxMessages int

	// Decay is the per-update multiplier applied to buffered scores.
	Decay float64

	// Clock supplies the current time; tests inject a fake.
	Clock func() time.Time
}

// WithTTL sets the entry lease duration.
func WithTTL(ttl time.Duration) Option {
	return func(opts *Options) {
		opts.TTL = ttl
	}
}

// WithMaxMessages caps the ranked recent-message buffer.
func WithMaxMessages(n int) Option {
	return func(opts *Options) {
		opts.MaxMessages = n
	}
}

// WithDecay sets the per-update score decay multiplier.
func WithDecay(decay float64) Option {
	return func(opts *Options) {
		opts.Decay = decay
	}
}

// WithClock injects a time source.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

func applyOptions(opts []Option) *Options {
	options := &Options{
		TTL:         30 * time.Minute,
		MaxMessages: 15,
		Decay:       0.9,
		Clock:       time.Now,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
