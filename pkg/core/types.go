package core

import (
	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/storage"
)

// Intent levels re-exported for callers that only import core.
const (
	IntentSimple  = retrieval.IntentSimple
	IntentMedium  = retrieval.IntentMedium
	IntentComplex = retrieval.IntentComplex
)

// TurnRequest describes one user turn needing context.
type TurnRequest struct {
	// UserID identifies the user.
	UserID string

	// SessionID identifies the conversation.
	SessionID string

	// Message is the user's message for this turn.
	Message string

	// Intent is the upstream classifier's verdict on how much retrieval
	// effort the message warrants.
	Intent retrieval.Intent

	// ScopeID optionally restricts retrieval to one assistant persona.
	ScopeID string
}

// TurnContext is the context produced for one turn.
type TurnContext struct {
	// Context is the merged, prompt-ready context string.
	Context string

	// FromCache reports whether the context was served from the session
	// cache without retrieval.
	FromCache bool

	// CacheReason is the cache's hit or miss reason for this turn.
	CacheReason string

	// Retrieval is the raw tier output; nil when served from cache.
	Retrieval *retrieval.Result
}

// Profile is the authoritative user-edited profile record.
//
// Profiles are mutated only by explicit user action, never by the memory
// pipeline, and their dietary restrictions override any inferred fact.
type Profile = storage.ProfileRecord

// Fact is a durable memory record about a user.
type Fact = storage.FactRecord

// ConversationSummary is a compressed representation of one conversation.
type ConversationSummary = storage.SummaryRecord
