package core

import (
	"context"
	"log"
	"time"

	"github.com/mealmind/memtier/pkg/contextmerge"
	"github.com/mealmind/memtier/pkg/conversation"
	"github.com/mealmind/memtier/pkg/embedder"
	embedderopenai "github.com/mealmind/memtier/pkg/embedder/openai"
	"github.com/mealmind/memtier/pkg/extractor"
	"github.com/mealmind/memtier/pkg/factstore"
	"github.com/mealmind/memtier/pkg/llm"
	llmopenai "github.com/mealmind/memtier/pkg/llm/openai"
	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/sessioncache"
	"github.com/mealmind/memtier/pkg/storage"
	"github.com/mealmind/memtier/pkg/storage/postgres"
	"github.com/mealmind/memtier/pkg/storage/sqlite"
)

// cacheWriteTimeout bounds the asynchronous cache write that outlives the
// turn it belongs to.
const cacheWriteTimeout = 10 * time.Second

// Client is the memtier client.
//
// It owns the storage backend and the LLM/embedding providers and exposes
// the turn-level operations: producing merged context for a turn, running
// preference extraction over a session, and managing profiles, summaries,
// and the session cache.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config, conversations)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	turn, err := client.ContextForTurn(ctx, &core.TurnRequest{
//	    UserID:    "user-1",
//	    SessionID: "session-1",
//	    Message:   "what should I cook tonight?",
//	    Intent:    core.IntentComplex,
//	})
type Client struct {
	store    storage.Store
	llm      llm.Provider
	embedder embedder.Provider

	facts     *factstore.Store
	extractor *extractor.Extractor
	engine    *retrieval.Engine
	cache     *sessioncache.Cache
}

// NewClient creates a memtier client from the given configuration.
//
// The conversation provider supplies raw turn history and is treated as
// read-only; it is typically backed by the application's chat store.
func NewClient(config *Config, conversations conversation.Provider, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	options := applyClientOptions(opts)

	store, err := newStore(config)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	llmClient, err := llmopenai.NewClient(&llmopenai.Config{
		APIKey:  config.LLM.APIKey,
		Model:   config.LLM.Model,
		BaseURL: config.LLM.BaseURL,
	})
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	embedderClient, err := embedderopenai.NewClient(&embedderopenai.Config{
		APIKey:     config.Embedder.APIKey,
		Model:      config.Embedder.Model,
		BaseURL:    config.Embedder.BaseURL,
		Dimensions: config.Embedder.Dimensions,
	})
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	facts, err := factstore.New(store, embedderClient)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}

	cacheOpts := []sessioncache.Option{}
	if config.Cache.TTL > 0 {
		cacheOpts = append(cacheOpts, sessioncache.WithTTL(config.Cache.TTL))
	}
	if config.Cache.MaxMessages > 0 {
		cacheOpts = append(cacheOpts, sessioncache.WithMaxMessages(config.Cache.MaxMessages))
	}
	cacheOpts = append(cacheOpts, options.CacheOptions...)

	return &Client{
		store:     store,
		llm:       llmClient,
		embedder:  embedderClient,
		facts:     facts,
		extractor: extractor.New(conversations, llmClient, embedderClient, facts, options.ExtractorOptions...),
		engine:    retrieval.New(facts, store, conversations, embedderClient, options.RetrievalOptions...),
		cache:     sessioncache.New(store, cacheOpts...),
	}, nil
}

// newStore builds the storage backend selected by the configuration.
func newStore(config *Config) (storage.Store, error) {
	switch config.Database.Provider {
	case "postgres":
		return postgres.NewClient(&postgres.Config{
			Host:               config.Database.Host,
			Port:               config.Database.Port,
			User:               config.Database.User,
			Password:           config.Database.Password,
			DBName:             config.Database.DBName,
			SSLMode:            config.Database.SSLMode,
			EmbeddingModelDims: config.Embedder.Dimensions,
		})
	default:
		return sqlite.NewClient(&sqlite.Config{
			DBPath: config.Database.SQLitePath,
		})
	}
}

// ContextForTurn produces the merged context for one user turn.
//
// The session cache is consulted first; a hit returns the cached context
// with no retrieval. On a miss, the profile is loaded, retrieval runs at
// the requested intent, the two are merged, and the result is returned
// immediately — the cache write happens asynchronously off the caller's
// critical path, and its failure only logs a warning.
func (c *Client) ContextForTurn(ctx context.Context, req *TurnRequest) (*TurnContext, error) {
	if req.UserID == "" || req.SessionID == "" {
		return nil, NewMemoryError("ContextForTurn", ErrInvalidInput)
	}

	check, err := c.cache.Check(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, NewMemoryError("ContextForTurn", err)
	}
	if check.Hit {
		return &TurnContext{
			Context:     check.Context,
			FromCache:   true,
			CacheReason: check.Reason,
		}, nil
	}

	profile, err := c.store.GetProfile(ctx, req.UserID)
	if err != nil {
		return nil, NewMemoryError("ContextForTurn", err)
	}

	result, err := c.engine.Retrieve(ctx, &retrieval.Query{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Text:      req.Message,
		Intent:    req.Intent,
		ScopeID:   req.ScopeID,
	})
	if err != nil {
		return nil, NewMemoryError("ContextForTurn", err)
	}

	merged := contextmerge.Merge(profile, result)

	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := c.cache.Update(cctx, req.UserID, req.SessionID, "user", req.Message, merged); err != nil {
			log.Printf("[core] cache update for %s/%s failed, next turn will rebuild: %v", req.UserID, req.SessionID, err)
		}
	}()

	return &TurnContext{
		Context:     merged,
		CacheReason: check.Reason,
		Retrieval:   result,
	}, nil
}

// OpenSession creates the session's profile-only cache entry if none
// exists, so the first turn has the profile block available instantly.
func (c *Client) OpenSession(ctx context.Context, userID, sessionID string) error {
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return NewMemoryError("OpenSession", err)
	}

	profileBlock := contextmerge.Merge(profile, nil)
	return NewMemoryError("OpenSession", c.cache.Initialize(ctx, userID, sessionID, profileBlock))
}

// ExtractPreferences runs the preference extraction pipeline over a
// session's recent turns. Intended to be called after a conversation goes
// idle or from a scheduled job.
func (c *Client) ExtractPreferences(ctx context.Context, userID, sessionID string) (*extractor.Result, error) {
	result, err := c.extractor.Process(ctx, userID, sessionID)
	if err != nil {
		return nil, NewMemoryError("ExtractPreferences", err)
	}
	return result, nil
}

// GetProfile returns the user's profile, or nil if none exists.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, NewMemoryError("GetProfile", err)
	}
	return profile, nil
}

// SaveProfile stores the user's profile. Profiles change only through
// explicit user action, so this is a plain upsert with no merge logic.
func (c *Client) SaveProfile(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.UserID == "" {
		return NewMemoryError("SaveProfile", ErrInvalidInput)
	}
	profile.UpdatedAt = time.Now().UTC()
	return NewMemoryError("SaveProfile", c.store.SaveProfile(ctx, profile))
}

// SaveConversationSummary stores a conversation summary, embedding its
// text first when no embedding is attached. Regenerating a summary for the
// same conversation overwrites the previous one.
func (c *Client) SaveConversationSummary(ctx context.Context, summary *ConversationSummary) error {
	if summary == nil || summary.ConversationID == "" || summary.UserID == "" {
		return NewMemoryError("SaveConversationSummary", ErrInvalidInput)
	}

	if summary.Embedding == nil {
		embedding, err := c.embedder.Embed(ctx, summary.Summary)
		if err != nil {
			return NewMemoryError("SaveConversationSummary", err)
		}
		summary.Embedding = embedding
	}

	return NewMemoryError("SaveConversationSummary", c.store.UpsertSummary(ctx, summary))
}

// SweepSessions deletes expired session cache entries and returns how many
// were removed.
func (c *Client) SweepSessions(ctx context.Context) (int64, error) {
	removed, err := c.cache.Sweep(ctx)
	if err != nil {
		return 0, NewMemoryError("SweepSessions", err)
	}
	return removed, nil
}

// Facts exposes the fact store for direct fact management, such as
// promoting a fact from voice tooling or pinning a favorite.
func (c *Client) Facts() *factstore.Store {
	return c.facts
}

// Close releases the storage backend and provider connections.
func (c *Client) Close() error {
	if err := c.llm.Close(); err != nil {
		return NewMemoryError("Close", err)
	}
	if err := c.embedder.Close(); err != nil {
		return NewMemoryError("Close", err)
	}
	return NewMemoryError("Close", c.store.Close())
}
