// Package sessioncache caches the merged context string per conversation.
//
// An entry moves through three states: absent, profile-only (version 0,
// created when a conversation opens), and warm (version incremented on
// every content update). Entries carry a TTL lease: only a content update
// extends it. A hit never does, so a conversation that only ever reads the
// cache will still expire — that asymmetry bounds session lifetime and is
// deliberate.
//
// The cache is a derived artifact. Losing an entry costs one miss and a
// rebuild from profile, facts, and summaries; it never costs correctness.
package sessioncache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mealmind/memtier/pkg/storage"
)

// Miss reasons reported by Check.
const (
	ReasonHit     = "hit"
	ReasonNoEntry = "no_entry"
	ReasonExpired = "expired"
)

// Cache is the session context cache.
type Cache struct {
	store       storage.SessionStore
	ttl         time.Duration
	maxMessages int
	decay       float64

	// now is injectable for expiry tests.
	now func() time.Time
}

// New creates a session cache over the given store.
func New(store storage.SessionStore, opts ...Option) *Cache {
	options := applyOptions(opts)

	return &Cache{
		store:       store,
		ttl:         options.TTL,
		maxMessages: options.MaxMessages,
		decay:       options.Decay,
		now:         options.Clock,
	}
}

// CheckResult is the outcome of a cache lookup.
type CheckResult struct {
	// Hit reports whether a fresh entry was found.
	Hit bool

	// Context is the cached merged context; empty on a miss.
	Context string

	// Reason is one of ReasonHit, ReasonNoEntry, ReasonExpired.
	Reason string

	// Stats carries the entry's counters at read time; zero on ReasonNoEntry.
	Stats Stats
}

// Stats is a snapshot of an entry's counters.
type Stats struct {
	Hits         int64
	Misses       int64
	Version      int
	MessageCount int
}

// Initialize creates a profile-only entry (version 0) for the conversation
// if none exists. An existing entry, fresh or expired, is left untouched.
func (c *Cache) Initialize(ctx context.Context, userID, sessionID, profileContext string) error {
	existing, err := c.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	if existing != nil {
		return nil
	}

	now := c.now()
	entry := &storage.SessionRecord{
		UserID:       userID,
		SessionID:    sessionID,
		Context:      profileContext,
		Version:      0,
		Messages:     []storage.RankedMessage{},
		LastActivity: now,
		ExpiresAt:    now.Add(c.ttl),
	}

	if err := c.store.PutSession(ctx, entry); err != nil {
		return fmt.Errorf("Initialize: %w", err)
	}
	return nil
}

// Check looks up the conversation's entry and decides hit or miss from a
// single read, so an entry expiring mid-call cannot be served as fresh.
//
// A hit bumps the hit counter but never extends the lease; an expired
// entry bumps the miss counter. Counter bumps are best-effort.
func (c *Cache) Check(ctx context.Context, userID, sessionID string) (*CheckResult, error) {
	entry, err := c.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}
	if entry == nil {
		return &CheckResult{Reason: ReasonNoEntry}, nil
	}

	stats := Stats{
		Hits:         entry.Hits,
		Misses:       entry.Misses,
		Version:      entry.Version,
		MessageCount: entry.MessageCount,
	}

	if c.now().After(entry.ExpiresAt) {
		if err := c.store.RecordMiss(ctx, userID, sessionID); err != nil {
			log.Printf("[sessioncache] miss counter for %s/%s: %v", userID, sessionID, err)
		} else {
			stats.Misses++
		}
		return &CheckResult{Reason: ReasonExpired, Stats: stats}, nil
	}

	if err := c.store.RecordHit(ctx, userID, sessionID); err != nil {
		log.Printf("[sessioncache] hit counter for %s/%s: %v", userID, sessionID, err)
	} else {
		stats.Hits++
	}

	return &CheckResult{
		Hit:     true,
		Context: entry.Context,
		Reason:  ReasonHit,
		Stats:   stats,
	}, nil
}

// Update replaces the cached context with a freshly merged one, folds the
// new message into the ranked buffer, increments the version, and renews
// the lease. This is the only operation that extends expiresAt.
//
// Updating a conversation with no entry creates one, so an expired and
// swept session warms back up transparently.
func (c *Cache) Update(ctx context.Context, userID, sessionID, role, message, mergedContext string) error {
	existing, err := c.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	now := c.now()
	entry := &storage.SessionRecord{
		UserID:       userID,
		SessionID:    sessionID,
		Context:      mergedContext,
		Version:      1,
		MessageCount: 1,
		Messages:     decayAndInsert(nil, role, message, c.decay, c.maxMessages, now),
		LastActivity: now,
		ExpiresAt:    now.Add(c.ttl),
	}

	if existing != nil {
		entry.Version = existing.Version + 1
		entry.MessageCount = existing.MessageCount + 1
		entry.Messages = decayAndInsert(existing.Messages, role, message, c.decay, c.maxMessages, now)
		entry.Hits = existing.Hits
		entry.Misses = existing.Misses
	}

	if err := c.store.PutSession(ctx, entry); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

// Delete removes the conversation's entry. Missing entries are a no-op:
// the cache is derived state.
func (c *Cache) Delete(ctx context.Context, userID, sessionID string) error {
	if err := c.store.DeleteSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// Sweep deletes every entry whose lease has passed and returns how many
// were removed. Intended to run periodically from a scheduler.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	removed, err := c.store.DeleteExpiredSessions(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("Sweep: %w", err)
	}
	return removed, nil
}
