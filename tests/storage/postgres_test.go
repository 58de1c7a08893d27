package storage_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/storage"
	postgresStore "github.com/mealmind/memtier/pkg/storage/postgres"
)

const postgresTestDims = 4

// pgID hands out IDs unique across runs: the test database persists, so
// fixed IDs would collide with rows from a previous run.
var pgID atomic.Int64

func init() {
	pgID.Store(time.Now().UnixNano())
}

func nextPgID() int64 {
	return pgID.Add(1)
}

// setupPostgresTest connects to the database described by the POSTGRES_*
// environment variables and skips the test when none is reachable. It
// returns the store and a user ID unique to this test run.
func setupPostgresTest(t *testing.T) (storage.Store, string) {
	t.Helper()

	_ = godotenv.Load(filepath.Join("..", "..", ".env"))

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "127.0.0.1"
	}

	portStr := os.Getenv("POSTGRES_PORT")
	if portStr == "" {
		portStr = "5432"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: invalid POSTGRES_PORT: %s", portStr)
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		t.Skip("Skipping PostgreSQL test: POSTGRES_PASSWORD not set")
	}

	dbName := os.Getenv("POSTGRES_DATABASE")
	if dbName == "" {
		dbName = "memtier_test"
	}

	store, err := postgresStore.NewClient(&postgresStore.Config{
		Host:               host,
		Port:               port,
		User:               user,
		Password:           password,
		DBName:             dbName,
		EmbeddingModelDims: postgresTestDims,
		SSLMode:            "disable",
	})
	if err != nil {
		t.Skipf("Skipping PostgreSQL test: failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store, fmt.Sprintf("pg_user_%d", nextPgID())
}

func pgFact(id int64, userID, content string, embedding []float64) *storage.FactRecord {
	now := time.Now().UTC()
	return &storage.FactRecord{
		ID:             id,
		UserID:         userID,
		Content:        content,
		Tags:           storage.FactTags{Preferences: []string{"spicy"}},
		Embedding:      embedding,
		EmbeddingModel: "test-model",
		ContentHash:    content + "-hash",
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func pgHistory(factID int64, userID, event string) *storage.FactHistoryRecord {
	return &storage.FactHistoryRecord{
		ID:        nextPgID(),
		FactID:    factID,
		UserID:    userID,
		Event:     event,
		After:     "after text",
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgresFactRoundTrip(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	id := nextPgID()
	fact := pgFact(id, userID, "Loves spicy food", []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, store.InsertFact(ctx, fact, pgHistory(id, userID, storage.EventAdd)))

	retrieved, err := store.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Loves spicy food", retrieved.Content)
	assert.Equal(t, userID, retrieved.UserID)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, retrieved.Embedding)
	assert.Equal(t, []string{"spicy"}, retrieved.Tags.Preferences)
	assert.Equal(t, 1, retrieved.Version)
	assert.False(t, retrieved.Deleted)

	byHash, err := store.GetFactByHash(ctx, userID, "Loves spicy food-hash")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, id, byHash.ID)

	missing, err := store.GetFactByHash(ctx, userID, "no-such-hash")
	require.NoError(t, err)
	assert.Nil(t, missing)

	history, err := store.ListFactHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, storage.EventAdd, history[0].Event)
}

func TestPostgresFactUpdate(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	id := nextPgID()
	fact := pgFact(id, userID, "Prefers mild food", []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, store.InsertFact(ctx, fact, pgHistory(id, userID, storage.EventAdd)))

	fact.Content = "Prefers spicy food"
	fact.Version = 2
	fact.Embedding = []float64{0.4, 0.5, 0.6, 0.7}
	require.NoError(t, store.UpdateFact(ctx, fact, pgHistory(id, userID, storage.EventUpdate)))

	retrieved, err := store.GetFact(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Prefers spicy food", retrieved.Content)
	assert.Equal(t, 2, retrieved.Version)
	assert.Equal(t, []float64{0.4, 0.5, 0.6, 0.7}, retrieved.Embedding)

	history, err := store.ListFactHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPostgresFactUpdateNotFound(t *testing.T) {
	store, userID := setupPostgresTest(t)

	id := nextPgID()
	fact := pgFact(id, userID, "No such fact", []float64{0.1, 0, 0, 0})
	err := store.UpdateFact(context.Background(), fact, pgHistory(id, userID, storage.EventUpdate))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostgresFactSoftDelete(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	id := nextPgID()
	fact := pgFact(id, userID, "Dislikes cilantro", []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, store.InsertFact(ctx, fact, pgHistory(id, userID, storage.EventAdd)))
	require.NoError(t, store.DeleteFact(ctx, id, pgHistory(id, userID, storage.EventDelete)))

	// The row survives with the deleted flag set; hash lookups skip it.
	retrieved, err := store.GetFact(ctx, id)
	require.NoError(t, err)
	assert.True(t, retrieved.Deleted)

	byHash, err := store.GetFactByHash(ctx, userID, "Dislikes cilantro-hash")
	require.NoError(t, err)
	assert.Nil(t, byHash)

	// Deleting again reports not found.
	err = store.DeleteFact(ctx, id, pgHistory(id, userID, storage.EventDelete))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostgresSearchFacts(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	exact := nextPgID()
	off := nextPgID()
	near := nextPgID()
	facts := []*storage.FactRecord{
		pgFact(exact, userID, "Loves thai curry", []float64{1, 0, 0, 0}),
		pgFact(off, userID, "Owns an air fryer", []float64{0, 1, 0, 0}),
		pgFact(near, userID, "Cooks for four", []float64{0.9, 0.1, 0, 0}),
	}
	for _, fact := range facts {
		require.NoError(t, store.InsertFact(ctx, fact, pgHistory(fact.ID, userID, storage.EventAdd)))
	}

	results, err := store.SearchFacts(ctx, []float64{1, 0, 0, 0}, &storage.FactSearchOptions{
		UserID: userID,
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, exact, results[0].ID, "exact match ranks first")
	assert.Equal(t, near, results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestPostgresListRecentFacts(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	olderID := nextPgID()
	newerID := nextPgID()
	older := pgFact(olderID, userID, "Older fact", []float64{0.1, 0, 0, 0})
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := pgFact(newerID, userID, "Newer fact", []float64{0.2, 0, 0, 0})

	require.NoError(t, store.InsertFact(ctx, older, pgHistory(olderID, userID, storage.EventAdd)))
	require.NoError(t, store.InsertFact(ctx, newer, pgHistory(newerID, userID, storage.EventAdd)))

	results, err := store.ListRecentFacts(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newerID, results[0].ID, "newest first")
}

func TestPostgresProfileUpsert(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	missing, err := store.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &storage.ProfileRecord{
		UserID:              userID,
		Name:                "Jamie",
		Cuisines:            []string{"thai"},
		DietaryRestrictions: []string{"dairy"},
		FamilySize:          4,
		UpdatedAt:           time.Now().UTC(),
	}
	require.NoError(t, store.SaveProfile(ctx, profile))

	profile.Name = "Jamie Q"
	require.NoError(t, store.SaveProfile(ctx, profile))

	retrieved, err := store.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "Jamie Q", retrieved.Name)
	assert.Equal(t, []string{"dairy"}, retrieved.DietaryRestrictions)
	assert.Equal(t, 4, retrieved.FamilySize)
}

func TestPostgresSummaryUpsert(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	conversationID := fmt.Sprintf("conv_%d", nextPgID())
	summary := &storage.SummaryRecord{
		ConversationID: conversationID,
		UserID:         userID,
		Summary:        "Planned taco night",
		Topics:         []string{"tacos"},
		StartedAt:      now.Add(-time.Hour),
		EndedAt:        now,
		MessageCount:   12,
		Embedding:      []float64{0.5, 0.5, 0, 0},
	}
	require.NoError(t, store.UpsertSummary(ctx, summary))

	// Regenerating overwrites in place.
	summary.Summary = "Planned taco night and picked a salsa recipe"
	require.NoError(t, store.UpsertSummary(ctx, summary))

	retrieved, err := store.GetSummary(ctx, conversationID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "Planned taco night and picked a salsa recipe", retrieved.Summary)

	results, err := store.SearchSummaries(ctx, []float64{0.5, 0.5, 0, 0}, userID, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, conversationID, results[0].ConversationID)
}

func TestPostgresSessionRoundTrip(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	missing, err := store.GetSession(ctx, userID, "s-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC()
	entry := &storage.SessionRecord{
		UserID:       userID,
		SessionID:    "s-1",
		Context:      "merged context",
		Version:      1,
		MessageCount: 1,
		Messages: []storage.RankedMessage{
			{Role: "user", Content: "hi", Score: 1.0, AddedAt: now},
		},
		LastActivity: now,
		ExpiresAt:    now.Add(30 * time.Minute),
	}
	require.NoError(t, store.PutSession(ctx, entry))
	require.NoError(t, store.RecordHit(ctx, userID, "s-1"))
	require.NoError(t, store.RecordHit(ctx, userID, "s-1"))
	require.NoError(t, store.RecordMiss(ctx, userID, "s-1"))

	retrieved, err := store.GetSession(ctx, userID, "s-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "merged context", retrieved.Context)
	assert.Equal(t, int64(2), retrieved.Hits)
	assert.Equal(t, int64(1), retrieved.Misses)
	require.Len(t, retrieved.Messages, 1)
	assert.Equal(t, 1.0, retrieved.Messages[0].Score)
}

func TestPostgresDeleteExpiredSessions(t *testing.T) {
	store, userID := setupPostgresTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := &storage.SessionRecord{
		UserID: userID, SessionID: "stale", Context: "old",
		Messages: []storage.RankedMessage{}, LastActivity: now.Add(-time.Hour),
		ExpiresAt: now.Add(-30 * time.Minute),
	}
	fresh := &storage.SessionRecord{
		UserID: userID, SessionID: "fresh", Context: "new",
		Messages: []storage.RankedMessage{}, LastActivity: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
	require.NoError(t, store.PutSession(ctx, stale))
	require.NoError(t, store.PutSession(ctx, fresh))

	// The sweep may also collect leftovers from earlier runs, so only a
	// lower bound is asserted.
	removed, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	gone, err := store.GetSession(ctx, userID, "stale")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetSession(ctx, userID, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
