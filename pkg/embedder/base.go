// Package embedder provides interfaces for text embedding providers.
//
// Embeddings back the vector tier of retrieval and the near-duplicate
// search performed before every extractor decision. Failures are treated
// as retryable by callers: the whole invocation is retried, not the call.
package embedder

import "context"

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - text: The input text to embed
	//
	// Returns the embedding vector and any error.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings.
	//
	// More efficient than calling Embed per text; the extractor uses it
	// to embed a whole batch of candidate facts at once.
	//
	// Returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of embedding vectors produced by this provider.
	Dimensions() int

	// Model returns the identifier of the embedding model, stored on every
	// fact so a model migration can re-embed stale rows.
	Model() string

	// Close closes the provider and releases resources.
	Close() error
}
