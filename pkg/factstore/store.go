// Package factstore implements durable, deduplicated long-term memory facts.
//
// A fact is a single statement about a user ("Prefers spicy food", "Cooks
// for a family of four"). Facts carry a content hash over their normalized
// text so adds are idempotent, a version counter incremented on every
// update, and a full mutation history for audit and rollback.
package factstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mealmind/memtier/pkg/embedder"
	"github.com/mealmind/memtier/pkg/storage"
)

// Store is the fact store component.
//
// It wraps the record-level storage.FactStore with the domain rules:
// hash-based dedup on add, re-embedding and version bumps on update,
// soft delete, and a history row for every mutation.
type Store struct {
	records  storage.FactStore
	embedder embedder.Provider
	node     *snowflake.Node
}

// New creates a fact store on top of the given record store and embedder.
func New(records storage.FactStore, emb embedder.Provider) (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("factstore.New: %w", err)
	}

	return &Store{
		records:  records,
		embedder: emb,
		node:     node,
	}, nil
}

// AddResult is the outcome of an AddFact call.
type AddResult struct {
	// FactID is the new fact's ID, or the existing fact's ID when the add
	// was a duplicate.
	FactID int64

	// Duplicate reports whether an existing fact with the same normalized
	// content absorbed the add.
	Duplicate bool
}

// AddFact adds a fact for the user, deduplicating on normalized content.
//
// If a non-deleted fact with the same content hash already exists for the
// user, the existing ID is returned and no write happens (idempotent add).
// Otherwise the text is embedded, the fact is inserted at version 1, and an
// ADD history row is written in the same transaction.
//
// Embedding failures are returned to the caller as retryable errors.
// Hash collisions are accepted as a false-duplicate risk, not an error.
func (s *Store) AddFact(ctx context.Context, userID, text string, opts ...AddOption) (*AddResult, error) {
	addOpts := applyAddOptions(opts)

	hash := ContentHash(text)

	existing, err := s.records.GetFactByHash(ctx, userID, hash)
	if err != nil {
		return nil, fmt.Errorf("AddFact: %w", err)
	}
	if existing != nil {
		return &AddResult{FactID: existing.ID, Duplicate: true}, nil
	}

	emb := addOpts.Embedding
	if emb == nil {
		emb, err = s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("AddFact: embed: %w", err)
		}
	}

	now := time.Now().UTC()
	fact := &storage.FactRecord{
		ID:             s.node.Generate().Int64(),
		UserID:         userID,
		ScopeID:        addOpts.ScopeID,
		Content:        text,
		Category:       addOpts.Category,
		Tags:           addOpts.Tags,
		Embedding:      emb,
		EmbeddingModel: s.embedder.Model(),
		ContentHash:    hash,
		Version:        1,
		Favorite:       addOpts.Favorite,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	history := &storage.FactHistoryRecord{
		ID:        s.node.Generate().Int64(),
		FactID:    fact.ID,
		UserID:    userID,
		Event:     storage.EventAdd,
		After:     text,
		Trigger:   addOpts.Trigger,
		CreatedAt: now,
	}

	if err := s.records.InsertFact(ctx, fact, history); err != nil {
		return nil, fmt.Errorf("AddFact: %w", err)
	}

	return &AddResult{FactID: fact.ID}, nil
}

// UpdateFact replaces a fact's text, re-embeds it, and increments its
// version. An UPDATE history row with before/after snapshots is written in
// the same transaction.
//
// The returned ID is the fact that carries the content afterwards. That is
// normally factID itself — but when the new text normalizes to another live
// fact of the same user, the updated fact is retired into that fact instead
// and the survivor's ID is returned, so the content hash stays unique per
// user. The survivor keeps its own text, mirroring the add-dedup rule.
//
// A missing or deleted fact is a hard error: the ID came from the caller.
func (s *Store) UpdateFact(ctx context.Context, factID int64, newText string, opts ...UpdateOption) (int64, error) {
	updateOpts := applyUpdateOptions(opts)

	existing, err := s.records.GetFact(ctx, factID)
	if err != nil {
		return 0, fmt.Errorf("UpdateFact: %w", err)
	}
	if existing.Deleted {
		return 0, fmt.Errorf("UpdateFact: fact %d: %w", factID, storage.ErrNotFound)
	}

	hash := ContentHash(newText)
	if hash != existing.ContentHash {
		other, err := s.records.GetFactByHash(ctx, existing.UserID, hash)
		if err != nil {
			return 0, fmt.Errorf("UpdateFact: %w", err)
		}
		if other != nil && other.ID != factID {
			return s.mergeInto(ctx, existing, other, updateOpts.Trigger)
		}
	}

	emb := updateOpts.Embedding
	if emb == nil {
		emb, err = s.embedder.Embed(ctx, newText)
		if err != nil {
			return 0, fmt.Errorf("UpdateFact: embed: %w", err)
		}
	}

	now := time.Now().UTC()
	updated := *existing
	updated.Content = newText
	updated.Embedding = emb
	updated.EmbeddingModel = s.embedder.Model()
	updated.ContentHash = hash
	updated.Version = existing.Version + 1
	updated.UpdatedAt = now
	if updateOpts.Tags != nil {
		updated.Tags = *updateOpts.Tags
	}

	history := &storage.FactHistoryRecord{
		ID:        s.node.Generate().Int64(),
		FactID:    factID,
		UserID:    existing.UserID,
		Event:     storage.EventUpdate,
		Before:    existing.Content,
		After:     newText,
		Trigger:   updateOpts.Trigger,
		CreatedAt: now,
	}

	if err := s.records.UpdateFact(ctx, &updated, history); err != nil {
		return 0, fmt.Errorf("UpdateFact: %w", err)
	}

	return factID, nil
}

// mergeInto retires a fact whose new text collapsed into another live fact
// of the same user. A DELETE history row records the retired text and the
// surviving text; the survivor itself is untouched.
func (s *Store) mergeInto(ctx context.Context, retired, survivor *storage.FactRecord, trigger string) (int64, error) {
	history := &storage.FactHistoryRecord{
		ID:        s.node.Generate().Int64(),
		FactID:    retired.ID,
		UserID:    retired.UserID,
		Event:     storage.EventDelete,
		Before:    retired.Content,
		After:     survivor.Content,
		Trigger:   trigger,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.records.DeleteFact(ctx, retired.ID, history); err != nil {
		return 0, fmt.Errorf("UpdateFact: merge: %w", err)
	}

	return survivor.ID, nil
}

// DeleteFact soft-deletes a fact, keeping its content hash reserved, and
// writes a DELETE history row with the prior snapshot.
func (s *Store) DeleteFact(ctx context.Context, factID int64, opts ...DeleteOption) error {
	deleteOpts := applyDeleteOptions(opts)

	existing, err := s.records.GetFact(ctx, factID)
	if err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}
	if existing.Deleted {
		return fmt.Errorf("DeleteFact: fact %d: %w", factID, storage.ErrNotFound)
	}

	history := &storage.FactHistoryRecord{
		ID:        s.node.Generate().Int64(),
		FactID:    factID,
		UserID:    existing.UserID,
		Event:     storage.EventDelete,
		Before:    existing.Content,
		Trigger:   deleteOpts.Trigger,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.records.DeleteFact(ctx, factID, history); err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}

	return nil
}

// Get retrieves a fact by ID.
func (s *Store) Get(ctx context.Context, factID int64) (*storage.FactRecord, error) {
	fact, err := s.records.GetFact(ctx, factID)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return fact, nil
}

// SearchByVector performs nearest-neighbor search over the user's facts.
//
// The query embedding is supplied by the caller so retrieval can reuse one
// embedding across the fact and summary tiers.
func (s *Store) SearchByVector(ctx context.Context, userID string, queryEmbedding []float64, topK int, scopeID string) ([]*storage.FactRecord, error) {
	facts, err := s.records.SearchFacts(ctx, queryEmbedding, &storage.FactSearchOptions{
		UserID:  userID,
		ScopeID: scopeID,
		Limit:   topK,
	})
	if err != nil {
		return nil, fmt.Errorf("SearchByVector: %w", err)
	}
	return facts, nil
}

// History returns the audit trail for a fact, oldest first.
func (s *Store) History(ctx context.Context, factID int64) ([]*storage.FactHistoryRecord, error) {
	history, err := s.records.ListFactHistory(ctx, factID)
	if err != nil {
		return nil, fmt.Errorf("History: %w", err)
	}
	return history, nil
}
