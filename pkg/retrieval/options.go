package retrieval

// Option is a function type for configuring the retrieval engine.
type Option func(*Options)

// Options contains configuration options for the retrieval engine.
type Options struct {
	// SummaryTopK is the summary tier's result limit (complex intent).
	SummaryTopK int

	// VectorTopK is the vector tier's result limit (complex intent).
	VectorTopK int

	// KeywordTopK is the keyword tier's result limit.
	KeywordTopK int

	// RecentWindow is how many raw conversation messages the recent tier
	// pulls.
	RecentWindow int

	// MediumVectorTopK is the vector tier's result limit on the medium
	// fallback path.
	MediumVectorTopK int

	// KeywordMinimum is the keyword result count below which the medium
	// path escalates to vector search.
	KeywordMinimum int
}

// WithSummaryTopK sets the summary tier's result limit.
func WithSummaryTopK(k int) Option {
	return func(opts *Options) {
		opts.SummaryTopK = k
	}
}

// WithVectorTopK sets the vector tier's result limit for complex intent.
func WithVectorTopK(k int) Option {
	return func(opts *Options) {
		opts.VectorTopK = k
	}
}

// WithKeywordTopK sets the keyword tier's result limit.
func WithKeywordTopK(k int) Option {
	return func(opts *Options) {
		opts.KeywordTopK = k
	}
}

// WithRecentWindow sets how many raw messages the recent tier pulls.
func WithRecentWindow(n int) Option {
	return func(opts *Options) {
		opts.RecentWindow = n
	}
}

// WithMediumVectorTopK sets the vector limit on the medium fallback path.
func WithMediumVectorTopK(k int) Option {
	return func(opts *Options) {
		opts.MediumVectorTopK = k
	}
}

// WithKeywordMinimum sets the keyword result count below which the medium
// path escalates to vector search.
func WithKeywordMinimum(n int) Option {
	return func(opts *Options) {
		opts.KeywordMinimum = n
	}
}

func applyOptions(opts []Option) *Options {
	options := &Options{
		SummaryTopK:      2,
		VectorTopK:       10,
		KeywordTopK:      3,
		RecentWindow:     5,
		MediumVectorTopK: 3,
		KeywordMinimum:   2,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
