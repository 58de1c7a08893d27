// Package postgres provides the PostgreSQL + pgvector implementation of the
// memory store.
//
// Fact and summary embeddings use pgvector's vector type, so nearest-neighbor
// search runs inside the database with the <=> cosine-distance operator
// instead of in application memory. Tag sets and the ranked-message buffer
// are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/mealmind/memtier/pkg/storage"
)

// Client implements storage.Store using PostgreSQL with pgvector.
type Client struct {
	db         *sql.DB
	dimensions int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	DBName             string
	EmbeddingModelDims int
	SSLMode            string
}

// NewClient creates a new PostgreSQL store client and initializes the schema.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{
		db:         db,
		dimensions: cfg.EmbeddingModelDims,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables enables pgvector and initializes the table structure.
func (c *Client) initTables(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS facts (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			scope_id VARCHAR(255) NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			category VARCHAR(64) NOT NULL DEFAULT '',
			tags JSONB NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL,
			embedding_model VARCHAR(128) NOT NULL DEFAULT '',
			content_hash VARCHAR(64) NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, c.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_facts_user_hash ON facts(user_id, content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_user_recent ON facts(user_id, deleted, created_at)`,
		`CREATE TABLE IF NOT EXISTS fact_history (
			id BIGINT PRIMARY KEY,
			fact_id BIGINT NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			event VARCHAR(16) NOT NULL,
			before_content TEXT NOT NULL DEFAULT '',
			after_content TEXT NOT NULL DEFAULT '',
			trigger_context TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_history_fact ON fact_history(fact_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id VARCHAR(255) PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			primary_goal TEXT NOT NULL DEFAULT '',
			cuisines JSONB NOT NULL DEFAULT '[]',
			preferences TEXT NOT NULL DEFAULT '',
			dietary_restrictions JSONB NOT NULL DEFAULT '[]',
			family_size INTEGER NOT NULL DEFAULT 0,
			skill_level VARCHAR(32) NOT NULL DEFAULT '',
			equipment JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversation_summaries (
			conversation_id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			summary TEXT NOT NULL,
			topics JSONB NOT NULL DEFAULT '[]',
			decisions JSONB NOT NULL DEFAULT '[]',
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			message_count INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d) NOT NULL
		)`, c.dimensions),
		`CREATE INDEX IF NOT EXISTS idx_summaries_user ON conversation_summaries(user_id)`,
		`CREATE TABLE IF NOT EXISTS session_cache (
			user_id VARCHAR(255) NOT NULL,
			session_id VARCHAR(255) NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			messages JSONB NOT NULL DEFAULT '[]',
			last_activity TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			hits BIGINT NOT NULL DEFAULT 0,
			misses BIGINT NOT NULL DEFAULT 0,
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
	tagsJSON, err := marshalTags(fact.Tags)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		fact.ID, fact.UserID, fact.ScopeID, fact.Content, fact.Category,
		tagsJSON, vectorToString(fact.Embedding), fact.EmbeddingModel,
		fact.ContentHash, fact.Version, fact.Favorite, fact.Deleted,
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
	row := c.db.QueryRowContext(ctx, factSelect+` WHERE id = $1`, id)

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
		factSelect+` WHERE user_id = $1 AND content_hash = $2 AND NOT deleted`,
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
	tagsJSON, err := marshalTags(fact.Tags)
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
		SET content = $1, category = $2, tags = $3, embedding = $4, embedding_model = $5,
		    content_hash = $6, version = $7, favorite = $8, updated_at = $9
		WHERE id = $10 AND NOT deleted
	`,
		fact.Content, fact.Category, tagsJSON, vectorToString(fact.Embedding),
		fact.EmbeddingModel, fact.ContentHash, fact.Version, fact.Favorite,
		fact.UpdatedAt, fact.ID,
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
// transaction.
func (c *Client) DeleteFact(ctx context.Context, id int64, history *storage.FactHistoryRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("DeleteFact: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE facts SET deleted = TRUE, updated_at = $1 WHERE id = $2 AND NOT deleted`,
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

// SearchFacts performs vector search using pgvector's cosine-distance operator.
func (c *Client) SearchFacts(ctx context.Context, embedding []float64, opts *storage.FactSearchOptions) ([]*storage.FactRecord, error) {
	query := factSelectWithScore + ` WHERE user_id = $2 AND NOT deleted`
	args := []interface{}{vectorToString(embedding), opts.UserID}

	if opts.ScopeID != "" {
		query += fmt.Sprintf(` AND scope_id = $%d`, len(args)+1)
		args = append(args, opts.ScopeID)
	}
	if opts.MinScore > 0 {
		query += fmt.Sprintf(` AND 1 - (embedding <=> $1) >= $%d`, len(args)+1)
		args = append(args, opts.MinScore)
	}

	query += ` ORDER BY embedding <=> $1`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, opts.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchFacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var facts []*storage.FactRecord
	for rows.Next() {
		fact, err := scanFactWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchFacts: %w", err)
		}
		facts = append(facts, fact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchFacts: %w", err)
	}

	return facts, nil
}

// ListRecentFacts returns the user's most recent non-deleted facts, newest first.
func (c *Client) ListRecentFacts(ctx context.Context, userID string, limit int) ([]*storage.FactRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		factSelect+` WHERE user_id = $1 AND NOT deleted ORDER BY created_at DESC, id DESC LIMIT $2`,
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
		WHERE fact_id = $1
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
		WHERE user_id = $1
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
	cuisines, restrictions, equipment, err := marshalProfileFields(profile)
	if err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO profiles
		(user_id, name, primary_goal, cuisines, preferences, dietary_restrictions,
		 family_size, skill_level, equipment, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			primary_goal = EXCLUDED.primary_goal,
			cuisines = EXCLUDED.cuisines,
			preferences = EXCLUDED.preferences,
			dietary_restrictions = EXCLUDED.dietary_restrictions,
			family_size = EXCLUDED.family_size,
			skill_level = EXCLUDED.skill_level,
			equipment = EXCLUDED.equipment,
			updated_at = EXCLUDED.updated_at
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
	topics, decisions, err := marshalSummaryFields(summary)
	if err != nil {
		return fmt.Errorf("UpsertSummary: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO conversation_summaries
		(conversation_id, user_id, summary, topics, decisions, started_at, ended_at, message_count, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (conversation_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			topics = EXCLUDED.topics,
			decisions = EXCLUDED.decisions,
			started_at = EXCLUDED.started_at,
			ended_at = EXCLUDED.ended_at,
			message_count = EXCLUDED.message_count,
			embedding = EXCLUDED.embedding
	`,
		summary.ConversationID, summary.UserID, summary.Summary, topics,
		decisions, summary.StartedAt, summary.EndedAt, summary.MessageCount,
		vectorToString(summary.Embedding),
	)
	if err != nil {
		return fmt.Errorf("UpsertSummary: %w", err)
	}

	return nil
}

// GetSummary returns the summary for a conversation, or nil if none exists.
func (c *Client) GetSummary(ctx context.Context, conversationID string) (*storage.SummaryRecord, error) {
	row := c.db.QueryRowContext(ctx, summarySelect+` WHERE conversation_id = $1`, conversationID)

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
	rows, err := c.db.QueryContext(ctx,
		summarySelectWithScore+` WHERE user_id = $2 ORDER BY embedding <=> $1 LIMIT $3`,
		vectorToString(embedding), userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("SearchSummaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []*storage.SummaryRecord
	for rows.Next() {
		summary, err := scanSummaryWithScore(rows)
		if err != nil {
			return nil, fmt.Errorf("SearchSummaries: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchSummaries: %w", err)
	}

	return summaries, nil
}

// GetSession returns the entry for a (user, session) pair, or nil if none exists.
func (c *Client) GetSession(ctx context.Context, userID, sessionID string) (*storage.SessionRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT user_id, session_id, context, version, message_count, messages,
		       last_activity, expires_at, hits, misses
		FROM session_cache
		WHERE user_id = $1 AND session_id = $2
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
	messages, err := marshalMessages(record.Messages)
	if err != nil {
		return fmt.Errorf("PutSession: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO session_cache
		(user_id, session_id, context, version, message_count, messages,
		 last_activity, expires_at, hits, misses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			context = EXCLUDED.context,
			version = EXCLUDED.version,
			message_count = EXCLUDED.message_count,
			messages = EXCLUDED.messages,
			last_activity = EXCLUDED.last_activity,
			expires_at = EXCLUDED.expires_at,
			hits = EXCLUDED.hits,
			misses = EXCLUDED.misses
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
		`UPDATE session_cache SET hits = hits + 1 WHERE user_id = $1 AND session_id = $2`,
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
		`UPDATE session_cache SET misses = misses + 1 WHERE user_id = $1 AND session_id = $2`,
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
		`DELETE FROM session_cache WHERE user_id = $1 AND session_id = $2`,
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
		`DELETE FROM session_cache WHERE expires_at < $1`, cutoff,
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		history.ID, history.FactID, history.UserID, history.Event,
		history.Before, history.After, history.Trigger, history.CreatedAt,
	)
	return err
}

const factSelect = `
	SELECT id, user_id, scope_id, content, category, tags, embedding::text, embedding_model,
	       content_hash, version, favorite, deleted, created_at, updated_at
	FROM facts`

const factSelectWithScore = `
	SELECT id, user_id, scope_id, content, category, tags, embedding::text, embedding_model,
	       content_hash, version, favorite, deleted, created_at, updated_at,
	       1 - (embedding <=> $1) AS similarity
	FROM facts`

const summarySelect = `
	SELECT conversation_id, user_id, summary, topics, decisions,
	       started_at, ended_at, message_count, embedding::text
	FROM conversation_summaries`

const summarySelectWithScore = `
	SELECT conversation_id, user_id, summary, topics, decisions,
	       started_at, ended_at, message_count, embedding::text,
	       1 - (embedding <=> $1) AS similarity
	FROM conversation_summaries`
