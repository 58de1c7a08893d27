// Package sqlite provides the SQLite implementation of the memory store.
//
// SQLite is a lightweight, file-based database suitable for local
// development and single-node deployments. Vectors are stored as JSON
// strings in TEXT fields and similarity search runs in memory with cosine
// similarity over the user's rows, which is acceptable because search is
// always scoped to one user's facts.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mealmind/memtier/pkg/storage"
)

// Client implements storage.Store using SQLite as the backend.
type Client struct {
	db *sql.DB
}

// Config contains configuration for creating a SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// NewClient creates a new SQLite store client and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{db: db}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the database table structure.
func (c *Client) initTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS facts (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			scope_id TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '{}',
			embedding TEXT NOT NULL,
			embedding_model TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			favorite INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_user_hash ON facts(user_id, content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_user_recent ON facts(user_id, deleted, created_at)`,
		`CREATE TABLE IF NOT EXISTS fact_history (
			id INTEGER PRIMARY KEY,
			fact_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			event TEXT NOT NULL,
			before_content TEXT NOT NULL DEFAULT '',
			after_content TEXT NOT NULL DEFAULT '',
			trigger_context TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_history_fact ON fact_history(fact_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			primary_goal TEXT NOT NULL DEFAULT '',
			cuisines TEXT NOT NULL DEFAULT '[]',
			preferences TEXT NOT NULL DEFAULT '',
			dietary_restrictions TEXT NOT NULL DEFAULT '[]',
			family_size INTEGER NOT NULL DEFAULT 0,
			skill_level TEXT NOT NULL DEFAULT '',
			equipment TEXT NOT NULL DEFAULT '[]',
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_summaries (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			summary TEXT NOT NULL,
			topics TEXT NOT NULL DEFAULT '[]',
			decisions TEXT NOT NULL DEFAULT '[]',
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			embedding TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_user ON conversation_summaries(user_id)`,
		`CREATE TABLE IF NOT EXISTS session_cache (
			user_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			messages TEXT NOT NULL DEFAULT '[]',
			last_activity DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0,
			misses INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_cache_expiry ON session_cache(expires_at)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initTables: %w", err)
		}
	}

	return nil
}

// InsertFact inserts a fact and its ADD history row in one transaction.
func (c *Client) InsertFact(ctx context.Context, fact *storage.FactRecord, history *storage.FactHistoryRecord) error {
	tagsJSON, embeddingJSON, err := encodeFactFields(fact)
	if err != nil {
		return fmt.Errorf("InsertFact: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InsertFact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO facts
		(id, user_id, scope_id, content, category, tags, embedding, embedding_model,
		 content_hash, version, favorite, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		fact.ID, fact.UserID, fact.ScopeID, fact.Content, fact.Category,
		tagsJSON, embeddingJSON, fact.EmbeddingModel, fact.ContentHash,
		fact.Version, boolToInt(fact.Favorite), boolToInt(fact.Deleted),
		fact.CreatedAt, fact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("InsertFact: %w", err)
	}

	if err := insertHistoryTx(ctx, tx, history); err != nil {
		return fmt.Errorf("InsertFact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("InsertFact: %w", err)
	}

	return nil
}

// GetFact retrieves a fact by ID, including soft-deleted facts.
func (c *Client) GetFact(ctx context.Context, id int64) (*storage.FactRecord, error) {
	row := c.db.QueryRowContext(ctx, factSelect+` WHERE id = ?`, id)

	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("GetFact: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GetFact: %w", err)
	}

	return fact, nil
}

// GetFactByHash retrieves the user's non-deleted fact with the given content
// hash, or nil if none exists.
func (c *Client) GetFactByHash(ctx context.Context, userID, hash string) (*storage.FactRecord, error) {
	row := c.db.QueryRowContext(ctx,
		factSelect+` WHERE user_id = ? AND content_hash = ? AND deleted = 0`,
		userID, hash,
	)

	fact, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetFactByHash: %w", err)
	}

	return fact, nil
}

// UpdateFact replaces content, embedding, tags, and version of an existing
// fact, writing the UPDATE history row in the same transaction.
func (c *Client) UpdateFact(ctx context.Context, fact *storage.FactRecord, history *storage.FactHistoryRecord) error {
	tagsJSON, embeddingJSON, err := encodeFactFields(fact)
	if err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE facts
		SET content = ?, category = ?, tags = ?, embedding = ?, embedding_model = ?,
		    content_hash = ?, version = ?, favorite = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`,
		fact.Content, fact.Category, tagsJSON, embeddingJSON, fact.EmbeddingModel,
		fact.ContentHash, fact.Version, boolToInt(fact.Favorite), fact.UpdatedAt,
		fact.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("UpdateFact: %w", storage.ErrNotFound)
	}

	if err := insertHistoryTx(ctx, tx, history); err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("UpdateFact: %w", err)
	}

	return nil
}

// DeleteFact soft-deletes a fact, writing the DELETE history row in the same
// transaction. The row stays so the content hash remains reserved.
func (c *Client) DeleteFact(ctx context.Context, id int64, history *storage.FactHistoryRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE facts SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("DeleteFact: %w", storage.ErrNotFound)
	}

	if err := insertHistoryTx(ctx, tx, history); err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}

	return nil
}

// SearchFacts performs vector similarity search using cosine similarity.
//
// SQLite has no native vector operations, so similarity is calculated in
// memory after loading the user's non-deleted rows.
func (c *Client) SearchFacts(ctx context.Context, embedding []float64, opts *storage.FactSearchOptions) ([]*storage.FactRecord, error) {
	query := factSelect + ` WHERE user_id = ? AND deleted = 0`
	args := []interface{}{opts.UserID}

	if opts.ScopeID != "" {
		query += ` AND scope_id = ?`
		args = append(args, opts.ScopeID)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchFacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []*storage.FactRecord
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchFacts: %w", err)
		}

		score := cosineSimilarity(embedding, fact.Embedding)
		if score < opts.MinScore {
			continue
		}
		fact.Score = score
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchFacts: %w", err)
	}

	return sortByScore(facts, opts.Limit), nil
}

// ListRecentFacts returns the user's most recent non-deleted facts, newest first.
func (c *Client) ListRecentFacts(ctx context.Context, userID string, limit int) ([]*storage.FactRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		factSelect+` WHERE user_id = ? AND deleted = 0 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListRecentFacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []*storage.FactRecord
	for rows.Next() {
		fact, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecentFacts: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecentFacts: %w", err)
	}

	return facts, nil
}

// ListFactHistory returns the audit trail for a fact, oldest first.
func (c *Client) ListFactHistory(ctx context.Context, factID int64) ([]*storage.FactHistoryRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, fact_id, user_id, event, before_content, after_content, trigger_context, created_at
		FROM fact_history
		WHERE fact_id = ?
		ORDER BY created_at ASC, id ASC
	`, factID)
	if err != nil {
		return nil, fmt.Errorf("ListFactHistory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []*storage.FactHistoryRecord
	for rows.Next() {
		var h storage.FactHistoryRecord
		if err := rows.Scan(&h.ID, &h.FactID, &h.UserID, &h.Event, &h.Before, &h.After, &h.Trigger, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListFactHistory: %w", err)
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListFactHistory: %w", err)
	}

	return history, nil
}

// GetProfile returns the user's profile, or nil if none exists.
func (c *Client) GetProfile(ctx context.Context, userID string) (*storage.ProfileRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT user_id, name, primary_goal, cuisines, preferences, dietary_restrictions,
		       family_size, skill_level, equipment, updated_at
		FROM profiles
		WHERE user_id = ?
	`, userID)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProfile: %w", err)
	}

	return profile, nil
}

// SaveProfile creates or replaces the user's profile.
func (c *Client) SaveProfile(ctx context.Context, profile *storage.ProfileRecord) error {
	cuisines, restrictions, equipment, err := encodeProfileFields(profile)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO profiles
		(user_id, name, primary_goal, cuisines, preferences, dietary_restrictions,
		 family_size, skill_level, equipment, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			name = excluded.name,
			primary_goal = excluded.primary_goal,
			cuisines = excluded.cuisines,
			preferences = excluded.preferences,
			dietary_restrictions = excluded.dietary_restrictions,
			family_size = excluded.family_size,
			skill_level = excluded.skill_level,
			equipment = excluded.equipment,
			updated_at = excluded.updated_at
	`,
		profile.UserID, profile.Name, profile.PrimaryGoal, cuisines,
		profile.Preferences, restrictions, profile.FamilySize,
		profile.SkillLevel, equipment, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}

	return nil
}

// UpsertSummary creates or overwrites the summary for a conversation.
func (c *Client) UpsertSummary(ctx context.Context, summary *storage.SummaryRecord) error {
	topics, decisions, embedding, err := encodeSummaryFields(summary)
	if err != nil {
		return fmt.Errorf("UpsertSummary: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO conversation_summaries
		(conversation_id, user_id, summary, topics, decisions, started_at, ended_at, message_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			summary = excluded.summary,
			topics = excluded.topics,
			decisions = excluded.decisions,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			message_count = excluded.message_count,
			embedding = excluded.embedding
	`,
		summary.ConversationID, summary.UserID, summary.Summary, topics,
		decisions, summary.StartedAt, summary.EndedAt, summary.MessageCount, embedding,
	)
	if err != nil {
		return fmt.Errorf("UpsertSummary: %w", err)
	}

	return nil
}

// GetSummary returns the summary for a conversation, or nil if none exists.
func (c *Client) GetSummary(ctx context.Context, conversationID string) (*storage.SummaryRecord, error) {
	row := c.db.QueryRowContext(ctx, summarySelect+` WHERE conversation_id = ?`, conversationID)

	summary, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSummary: %w", err)
	}

	return summary, nil
}

// SearchSummaries performs vector search over the user's summaries.
func (c *Client) SearchSummaries(ctx context.Context, embedding []float64, userID string, limit int) ([]*storage.SummaryRecord, error) {
	rows, err := c.db.QueryContext(ctx, summarySelect+` WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("SearchSummaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*storage.SummaryRecord
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchSummaries: %w", err)
		}
		summary.Score = cosineSimilarity(embedding, summary.Embedding)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSummaries: %w", err)
	}

	return sortSummariesByScore(summaries, limit), nil
}

// GetSession returns the entry for a (user, session) pair, or nil if none exists.
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*storage.SessionRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT user_id, session_id, context, version, message_count, messages,
		       last_activity, expires_at, hits, misses
		FROM session_cache
		WHERE user_id = ? AND session_id = ?
	`, userID, sessionID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetSession: %w", err)
	}

	return session, nil
}

// PutSession creates or replaces an entry. Last-writer-wins.
func (c *Client) PutSession(ctx context.Context, record *storage.SessionRecord) error {
	messages, err := encodeMessages(record.Messages)
	if err != nil {
		return fmt.Errorf("PutSession: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO session_cache
		(user_id, session_id, context, version, message_count, messages,
		 last_activity, expires_at, hits, misses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			context = excluded.context,
			version = excluded.version,
			message_count = excluded.message_count,
			messages = excluded.messages,
			last_activity = excluded.last_activity,
			expires_at = excluded.expires_at,
			hits = excluded.hits,
			misses = excluded.misses
	`,
		record.UserID, record.SessionID, record.Context, record.Version,
		record.MessageCount, messages, record.LastActivity, record.ExpiresAt,
		record.Hits, record.Misses,
	)
	if err != nil {
		return fmt.Errorf("PutSession: %w", err)
	}

	return nil
}

// RecordHit atomically increments the hit counter without touching ExpiresAt.
func (c *Client) RecordHit(ctx context.Context, userID, sessionID string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE session_cache SET hits = hits + 1 WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("RecordHit: %w", err)
	}
	return nil
}

// RecordMiss atomically increments the miss counter without touching ExpiresAt.
func (c *Client) RecordMiss(ctx context.Context, userID, sessionID string) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE session_cache SET misses = misses + 1 WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("RecordMiss: %w", err)
	}
	return nil
}

// DeleteSession removes an entry.
func (c *Client) DeleteSession(ctx context.Context, userID, sessionID string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM session_cache WHERE user_id = ? AND session_id = ?`,
		userID, sessionID,
	)
	if err != nil {
		return fmt.Errorf("DeleteSession: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes entries whose ExpiresAt is before cutoff.
func (c *Client) DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM session_cache WHERE expires_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("DeleteExpiredSessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteExpiredSessions: %w", err)
	}

	return deleted, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// insertHistoryTx inserts a history row inside an open transaction.
func insertHistoryTx(ctx context.Context, tx *sql.Tx, history *storage.FactHistoryRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fact_history
		(id, fact_id, user_id, event, before_content, after_content, trigger_context, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		history.ID, history.FactID, history.UserID, history.Event,
		history.Before, history.After, history.Trigger, history.CreatedAt,
	)
	return err
}

const factSelect = `
	SELECT id, user_id, scope_id, content, category, tags, embedding, embedding_model,
	       content_hash, version, favorite, deleted, created_at, updated_at
	FROM facts`

const summarySelect = `
	SELECT conversation_id, user_id, summary, topics, decisions,
	       started_at, ended_at, message_count, embedding
	FROM conversation_summaries`
