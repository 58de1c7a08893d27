package extractor

// Option is a function type for configuring the extractor.
type Option func(*Options)

// Options contains configuration options for the extractor.
type Options struct {
	// MinTurns is the minimum number of conversation turns required before
	// an extraction run proceeds.
	MinTurns int

	// WindowTurns is how many recent turns the extraction stage reads.
	WindowTurns int

	// DecisionTopK is how many nearest existing facts each candidate is
	// reconciled against.
	DecisionTopK int
}

// WithMinTurns sets the minimum turn count for a run to proceed.
func WithMinTurns(n int) Option {
	return func(opts *Options) {
		opts.MinTurns = n
	}
}

// WithWindowTurns sets how many recent turns the extraction stage reads.
func WithWindowTurns(n int) Option {
	return func(opts *Options) {
		opts.WindowTurns = n
	}
}

// WithDecisionTopK sets how many nearest facts each candidate is
// reconciled against.
func WithDecisionTopK(k int) Option {
	return func(opts *Options) {
		opts.DecisionTopK = k
	}
}

func applyOptions(opts []Option) *Options {
	options := &Options{
		MinTurns:     2,
		WindowTurns:  20,
		DecisionTopK: 5,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
