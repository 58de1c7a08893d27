// Package storage provides record types and interfaces for the document store
// backing the memory system.
//
// It defines one store interface per record kind (facts, profiles,
// conversation summaries, session cache entries) plus a combined Store that
// backends implement. Record types are defined here rather than in core to
// avoid circular dependencies; core converts them to its public types.
package storage

import (
	"context"
	"time"
)

// FactTags holds the structured tag sets attached to a fact.
//
// Tags drive keyword search (tag matches outweigh free-text matches) and
// conflict detection against profile dietary restrictions.
type FactTags struct {
	// Proteins lists protein ingredients mentioned by the fact.
	Proteins []string `json:"proteins,omitempty"`

	// Restrictions lists inferred dietary restrictions.
	Restrictions []string `json:"restrictions,omitempty"`

	// Preferences lists liked/disliked ingredients or dishes.
	Preferences []string `json:"preferences,omitempty"`

	// TimeConstraints lists cooking-time constraints ("quick", "under 30 min").
	TimeConstraints []string `json:"time_constraints,omitempty"`

	// DietTags lists diet styles ("keto", "vegetarian").
	DietTags []string `json:"diet_tags,omitempty"`

	// Equipment lists kitchen equipment mentioned.
	Equipment []string `json:"equipment,omitempty"`
}

// All returns every tag term across all sets.
func (t FactTags) All() []string {
	out := make([]string, 0,
		len(t.Proteins)+len(t.Restrictions)+len(t.Preferences)+
			len(t.TimeConstraints)+len(t.DietTags)+len(t.Equipment))
	out = append(out, t.Proteins...)
	out = append(out, t.Restrictions...)
	out = append(out, t.Preferences...)
	out = append(out, t.TimeConstraints...)
	out = append(out, t.DietTags...)
	out = append(out, t.Equipment...)
	return out
}

// FactRecord is a single durable memory atom about a user.
type FactRecord struct {
	// ID is the unique identifier of the fact.
	ID int64

	// UserID identifies the user who owns this fact.
	UserID string

	// ScopeID identifies the assistant persona this fact is scoped to (optional).
	ScopeID string

	// Content is the fact statement text.
	Content string

	// Category is a free-form category tag ("preference", "restriction", ...).
	Category string

	// Tags holds the structured tag sets.
	Tags FactTags

	// Embedding is the vector embedding of Content.
	Embedding []float64

	// EmbeddingModel identifies the model that produced Embedding.
	EmbeddingModel string

	// ContentHash is the stable hash of the normalized content,
	// unique per user among non-deleted facts.
	ContentHash string

	// Version is incremented on every content update. New facts start at 1.
	Version int

	// Favorite marks facts the user pinned.
	Favorite bool

	// Deleted marks soft-deleted facts. Deleted facts keep their hash
	// reserved but are excluded from search and dedup.
	Deleted bool

	// CreatedAt is when the fact was created.
	CreatedAt time.Time

	// UpdatedAt is when the fact was last updated.
	UpdatedAt time.Time

	// Score is the similarity or keyword score from search operations.
	Score float64
}

// Fact mutation events recorded in history.
const (
	EventAdd    = "ADD"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// FactHistoryRecord captures a before/after snapshot of a fact mutation.
//
// Backends must write the history row in the same transaction as the fact
// mutation so a torn write is never silently unaudited.
type FactHistoryRecord struct {
	// ID is the unique identifier of the history entry.
	ID int64

	// FactID is the mutated fact.
	FactID int64

	// UserID identifies the owning user.
	UserID string

	// Event is ADD, UPDATE, or DELETE.
	Event string

	// Before is the fact content prior to the mutation (empty for ADD).
	Before string

	// After is the fact content after the mutation (empty for DELETE).
	After string

	// Trigger describes what caused the mutation (extraction run ID,
	// voice tooling, manual edit).
	Trigger string

	// CreatedAt is when the mutation happened.
	CreatedAt time.Time
}

// ProfileRecord is the authoritative, user-edited profile.
//
// Mutated only by explicit user action, never by the memory pipeline.
// DietaryRestrictions is the single source of truth for safety-critical
// restrictions and may never be overridden by inferred facts.
type ProfileRecord struct {
	// UserID identifies the user. One profile per user.
	UserID string

	// Name is the user's display name.
	Name string

	// PrimaryGoal is the user's stated goal ("eat healthier", "meal prep").
	PrimaryGoal string

	// Cuisines lists cultural/cuisine backgrounds.
	Cuisines []string

	// Preferences is free-form preference text.
	Preferences string

	// DietaryRestrictions lists restrictions and allergies.
	DietaryRestrictions []string

	// FamilySize is the number of people cooked for.
	FamilySize int

	// SkillLevel is the cooking skill level ("beginner", "intermediate", "advanced").
	SkillLevel string

	// Equipment lists available kitchen equipment.
	Equipment []string

	// UpdatedAt is when the profile was last edited.
	UpdatedAt time.Time
}

// SummaryRecord is a compressed representation of one conversation.
//
// One summary per conversation ID; created once, then overwritten
// (not versioned) if regenerated.
type SummaryRecord struct {
	// ConversationID identifies the summarized conversation.
	ConversationID string

	// UserID identifies the owning user.
	UserID string

	// Summary is the compressed summary text.
	Summary string

	// Topics lists the topics covered.
	Topics []string

	// Decisions lists recipes and decisions mentioned.
	Decisions []string

	// StartedAt and EndedAt bound the time range covered.
	StartedAt time.Time
	EndedAt   time.Time

	// MessageCount is the number of messages summarized.
	MessageCount int

	// Embedding is the vector embedding of Summary.
	Embedding []float64

	// Score is the similarity score from search operations.
	Score float64
}

// RankedMessage is one buffered raw message with a decaying relevance score.
type RankedMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Score is the current relevance score. New messages enter at 1.0 and
	// decay multiplicatively on every subsequent update.
	Score float64 `json:"score"`

	// AddedAt is when the message entered the buffer.
	AddedAt time.Time `json:"added_at"`
}

// SessionRecord is one session cache entry per (user, conversation) pair.
//
// It is a derived, rebuildable artifact and must never be treated as a
// source of truth.
type SessionRecord struct {
	// UserID and SessionID identify the owning pair.
	UserID    string
	SessionID string

	// Context is the fully merged context string ready for prompt injection.
	Context string

	// Version is 0 for a profile-only entry and incremented on every
	// content update.
	Version int

	// MessageCount is the number of messages folded into Context so far.
	MessageCount int

	// Messages is the ranked recent-message buffer, highest score first.
	Messages []RankedMessage

	// LastActivity is the time of the last content update.
	LastActivity time.Time

	// ExpiresAt is always LastActivity + TTL. Reads never advance it.
	ExpiresAt time.Time

	// Hits and Misses count cache lookups.
	Hits   int64
	Misses int64
}

// FactSearchOptions contains options for fact vector search.
type FactSearchOptions struct {
	// UserID restricts results to a user (required by all callers).
	UserID string

	// ScopeID restricts results to an assistant persona (optional).
	ScopeID string

	// Limit sets the maximum number of results to return.
	Limit int

	// MinScore sets the minimum similarity score for results.
	MinScore float64
}

// FactStore persists facts and their mutation history.
type FactStore interface {
	// InsertFact inserts a fact and its ADD history row in one transaction.
	InsertFact(ctx context.Context, fact *FactRecord, history *FactHistoryRecord) error

	// GetFact retrieves a fact by ID, including soft-deleted facts.
	// Returns ErrNotFound if no such fact exists.
	GetFact(ctx context.Context, id int64) (*FactRecord, error)

	// GetFactByHash retrieves the user's non-deleted fact with the given
	// content hash, or nil if none exists.
	GetFactByHash(ctx context.Context, userID, hash string) (*FactRecord, error)

	// UpdateFact replaces content, embedding, tags, and version of an
	// existing fact, writing the UPDATE history row in the same transaction.
	UpdateFact(ctx context.Context, fact *FactRecord, history *FactHistoryRecord) error

	// DeleteFact soft-deletes a fact, writing the DELETE history row in the
	// same transaction. The content hash stays reserved.
	DeleteFact(ctx context.Context, id int64, history *FactHistoryRecord) error

	// SearchFacts performs approximate-nearest-neighbor search over the
	// user's non-deleted facts. Results are sorted by similarity,
	// highest first, with Score populated.
	SearchFacts(ctx context.Context, embedding []float64, opts *FactSearchOptions) ([]*FactRecord, error)

	// ListRecentFacts returns the user's most recent non-deleted facts,
	// newest first, bounded by limit.
	ListRecentFacts(ctx context.Context, userID string, limit int) ([]*FactRecord, error)

	// ListFactHistory returns the audit trail for a fact, oldest first.
	ListFactHistory(ctx context.Context, factID int64) ([]*FactHistoryRecord, error)
}

// ProfileStore persists authoritative user profiles.
type ProfileStore interface {
	// GetProfile returns the user's profile, or nil if none exists.
	GetProfile(ctx context.Context, userID string) (*ProfileRecord, error)

	// SaveProfile creates or replaces the user's profile.
	SaveProfile(ctx context.Context, profile *ProfileRecord) error
}

// SummaryStore persists conversation summaries.
type SummaryStore interface {
	// UpsertSummary creates or overwrites the summary for a conversation.
	UpsertSummary(ctx context.Context, summary *SummaryRecord) error

	// GetSummary returns the summary for a conversation, or nil if none exists.
	GetSummary(ctx context.Context, conversationID string) (*SummaryRecord, error)

	// SearchSummaries performs vector search over the user's summaries.
	SearchSummaries(ctx context.Context, embedding []float64, userID string, limit int) ([]*SummaryRecord, error)
}

// SessionStore persists session cache entries.
type SessionStore interface {
	// GetSession returns the entry for a (user, session) pair, or nil if
	// none exists. The read is a single consistent snapshot.
	GetSession(ctx context.Context, userID, sessionID string) (*SessionRecord, error)

	// PutSession creates or replaces an entry. Last-writer-wins: staleness
	// costs a cache miss, never correctness.
	PutSession(ctx context.Context, record *SessionRecord) error

	// RecordHit atomically increments the hit counter without touching
	// ExpiresAt or LastActivity.
	RecordHit(ctx context.Context, userID, sessionID string) error

	// RecordMiss atomically increments the miss counter without touching
	// ExpiresAt or LastActivity.
	RecordMiss(ctx context.Context, userID, sessionID string) error

	// DeleteSession removes an entry.
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// DeleteExpiredSessions removes entries whose ExpiresAt is before
	// cutoff. Returns the number of entries removed.
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is the combined interface backends implement.
type Store interface {
	FactStore
	ProfileStore
	SummaryStore
	SessionStore

	// Close closes the store and releases resources.
	Close() error
}
