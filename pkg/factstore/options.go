package factstore

import "github.com/mealmind/memtier/pkg/storage"

// AddOption is a function type for configuring AddFact operations.
type AddOption func(*AddOptions)

// AddOptions contains configuration options for AddFact.
type AddOptions struct {
	// ScopeID scopes the fact to an assistant persona.
	ScopeID string

	// Category is a free-form category tag.
	Category string

	// Tags holds the structured tag sets.
	Tags storage.FactTags

	// Favorite marks the fact as pinned by the user.
	Favorite bool

	// Embedding is a precomputed embedding of the text. When set, the
	// store skips its own embedding call; the extractor uses this to reuse
	// embeddings computed during the decision phase.
	Embedding []float64

	// Trigger describes what caused the add, recorded in history.
	Trigger string
}

// WithScope scopes the fact to an assistant persona.
func WithScope(scopeID string) AddOption {
	return func(opts *AddOptions) {
		opts.ScopeID = scopeID
	}
}

// WithCategory sets the fact's category tag.
func WithCategory(category string) AddOption {
	return func(opts *AddOptions) {
		opts.Category = category
	}
}

// WithTags sets the fact's structured tag sets.
func WithTags(tags storage.FactTags) AddOption {
	return func(opts *AddOptions) {
		opts.Tags = tags
	}
}

// WithFavorite marks the fact as pinned.
func WithFavorite() AddOption {
	return func(opts *AddOptions) {
		opts.Favorite = true
	}
}

// WithEmbedding supplies a precomputed embedding for the text.
func WithEmbedding(embedding []float64) AddOption {
	return func(opts *AddOptions) {
		opts.Embedding = embedding
	}
}

// WithTrigger records what caused the add in the history row.
func WithTrigger(trigger string) AddOption {
	return func(opts *AddOptions) {
		opts.Trigger = trigger
	}
}

func applyAddOptions(opts []AddOption) *AddOptions {
	options := &AddOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// UpdateOption is a function type for configuring UpdateFact operations.
type UpdateOption func(*UpdateOptions)

// UpdateOptions contains configuration options for UpdateFact.
type UpdateOptions struct {
	// Tags replaces the fact's structured tag sets when non-nil.
	Tags *storage.FactTags

	// Embedding is a precomputed embedding of the new text.
	Embedding []float64

	// Trigger describes what caused the update, recorded in history.
	Trigger string
}

// WithTagsForUpdate replaces the fact's structured tag sets.
func WithTagsForUpdate(tags storage.FactTags) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Tags = &tags
	}
}

// WithEmbeddingForUpdate supplies a precomputed embedding for the new text.
func WithEmbeddingForUpdate(embedding []float64) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Embedding = embedding
	}
}

// WithTriggerForUpdate records what caused the update in the history row.
func WithTriggerForUpdate(trigger string) UpdateOption {
	return func(opts *UpdateOptions) {
		opts.Trigger = trigger
	}
}

func applyUpdateOptions(opts []UpdateOption) *UpdateOptions {
	options := &UpdateOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// DeleteOption is a function type for configuring DeleteFact operations.
type DeleteOption func(*DeleteOptions)

// DeleteOptions contains configuration options for DeleteFact.
type DeleteOptions struct {
	// Trigger describes what caused the delete, recorded in history.
	Trigger string
}

// WithTriggerForDelete records what caused the delete in the history row.
func WithTriggerForDelete(trigger string) DeleteOption {
	return func(opts *DeleteOptions) {
		opts.Trigger = trigger
	}
}

func applyDeleteOptions(opts []DeleteOption) *DeleteOptions {
	options := &DeleteOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
