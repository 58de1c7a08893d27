package core

import (
	"github.com/mealmind/memtier/pkg/extractor"
	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/sessioncache"
)

// ClientOption is a function type for configuring the client.
type ClientOption func(*ClientOptions)

// ClientOptions contains configuration options for the client.
type ClientOptions struct {
	// RetrievalOptions are forwarded to the retrieval engine.
	RetrievalOptions []retrieval.Option

	// ExtractorOptions are forwarded to the preference extractor.
	ExtractorOptions []extractor.Option

	// CacheOptions are forwarded to the session cache, after the options
	// derived from CacheConfig.
	CacheOptions []sessioncache.Option
}

// WithRetrievalOptions forwards options to the retrieval engine.
func WithRetrievalOptions(opts ...retrieval.Option) ClientOption {
	return func(options *ClientOptions) {
		options.RetrievalOptions = append(options.RetrievalOptions, opts...)
	}
}

// WithExtractorOptions forwards options to the preference extractor.
func WithExtractorOptions(opts ...extractor.Option) ClientOption {
	return func(options *ClientOptions) {
		options.ExtractorOptions = append(options.ExtractorOptions, opts...)
	}
}

// WithCacheOptions forwards options to the session cache.
func WithCacheOptions(opts ...sessioncache.Option) ClientOption {
	return func(options *ClientOptions) {
		options.CacheOptions = append(options.CacheOptions, opts...)
	}
}

func applyClientOptions(opts []ClientOption) *ClientOptions {
	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
