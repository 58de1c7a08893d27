package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/storage"
	sqliteStore "github.com/mealmind/memtier/pkg/storage/sqlite"
)

func setupSQLiteTest(t *testing.T) storage.Store {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "memtier_test.db"),
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testFact(id int64, content string, embedding []float64) *storage.FactRecord {
	now := time.Now().UTC()
	return &storage.FactRecord{
		ID:             id,
		UserID:         "test_user",
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

func testHistory(id, factID int64, event string) *storage.FactHistoryRecord {
	return &storage.FactHistoryRecord{
		ID:        id,
		FactID:    factID,
		UserID:    "test_user",
		Event:     event,
		After:     "after text",
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLiteFactRoundTrip(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	fact := testFact(1, "Loves spicy food", []float64{0.1, 0.2, 0.3})
	require.NoError(t, store.InsertFact(ctx, fact, testHistory(100, 1, storage.EventAdd)))

	retrieved, err := store.GetFact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Loves spicy food", retrieved.Content)
	assert.Equal(t, "test_user", retrieved.UserID)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, retrieved.Embedding)
	assert.Equal(t, []string{"spicy"}, retrieved.Tags.Preferences)
	assert.Equal(t, 1, retrieved.Version)
	assert.False(t, retrieved.Deleted)

	byHash, err := store.GetFactByHash(ctx, "test_user", "Loves spicy food-hash")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, int64(1), byHash.ID)

	missing, err := store.GetFactByHash(ctx, "test_user", "no-such-hash")
	require.NoError(t, err)
	assert.Nil(t, missing)

	history, err := store.ListFactHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, storage.EventAdd, history[0].Event)
}

func TestSQLiteFactUpdate(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	fact := testFact(2, "Prefers mild food", []float64{0.1, 0.2, 0.3})
	require.NoError(t, store.InsertFact(ctx, fact, testHistory(101, 2, storage.EventAdd)))

	fact.Content = "Prefers spicy food"
	fact.Version = 2
	fact.Embedding = []float64{0.4, 0.5, 0.6}
	require.NoError(t, store.UpdateFact(ctx, fact, testHistory(102, 2, storage.EventUpdate)))

	retrieved, err := store.GetFact(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Prefers spicy food", retrieved.Content)
	assert.Equal(t, 2, retrieved.Version)

	history, err := store.ListFactHistory(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSQLiteFactUpdateNotFound(t *testing.T) {
	store := setupSQLiteTest(t)

	fact := testFact(404, "No such fact", []float64{0.1})
	err := store.UpdateFact(context.Background(), fact, testHistory(103, 404, storage.EventUpdate))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteFactSoftDelete(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	fact := testFact(3, "Dislikes cilantro", []float64{0.1, 0.2, 0.3})
	require.NoError(t, store.InsertFact(ctx, fact, testHistory(104, 3, storage.EventAdd)))
	require.NoError(t, store.DeleteFact(ctx, 3, testHistory(105, 3, storage.EventDelete)))

	// The row survives with the deleted flag set; hash lookups skip it.
	retrieved, err := store.GetFact(ctx, 3)
	require.NoError(t, err)
	assert.True(t, retrieved.Deleted)

	byHash, err := store.GetFactByHash(ctx, "test_user", "Dislikes cilantro-hash")
	require.NoError(t, err)
	assert.Nil(t, byHash)

	// Deleting again reports not found.
	err = store.DeleteFact(ctx, 3, testHistory(106, 3, storage.EventDelete))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteSearchFacts(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	facts := []*storage.FactRecord{
		testFact(10, "Loves thai curry", []float64{1, 0, 0}),
		testFact(11, "Owns an air fryer", []float64{0, 1, 0}),
		testFact(12, "Cooks for four", []float64{0.9, 0.1, 0}),
	}
	for i, fact := range facts {
		require.NoError(t, store.InsertFact(ctx, fact, testHistory(int64(110+i), fact.ID, storage.EventAdd)))
	}

	results, err := store.SearchFacts(ctx, []float64{1, 0, 0}, &storage.FactSearchOptions{
		UserID: "test_user",
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(10), results[0].ID, "exact match ranks first")
	assert.Equal(t, int64(12), results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSQLiteListRecentFacts(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	older := testFact(20, "Older fact", []float64{0.1})
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := testFact(21, "Newer fact", []float64{0.2})

	require.NoError(t, store.InsertFact(ctx, older, testHistory(120, 20, storage.EventAdd)))
	require.NoError(t, store.InsertFact(ctx, newer, testHistory(121, 21, storage.EventAdd)))

	results, err := store.ListRecentFacts(ctx, "test_user", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(21), results[0].ID, "newest first")
}

func TestSQLiteProfileUpsert(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	missing, err := store.GetProfile(ctx, "test_user")
	require.NoError(t, err)
	assert.Nil(t, missing)

	profile := &storage.ProfileRecord{
		UserID:              "test_user",
		Name:                "Jamie",
		Cuisines:            []string{"thai"},
		DietaryRestrictions: []string{"dairy"},
		FamilySize:          4,
		UpdatedAt:           time.Now().UTC(),
	}
	require.NoError(t, store.SaveProfile(ctx, profile))

	profile.Name = "Jamie Q"
	require.NoError(t, store.SaveProfile(ctx, profile))

	retrieved, err := store.GetProfile(ctx, "test_user")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "Jamie Q", retrieved.Name)
	assert.Equal(t, []string{"dairy"}, retrieved.DietaryRestrictions)
	assert.Equal(t, 4, retrieved.FamilySize)
}

func TestSQLiteSummaryUpsert(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	summary := &storage.SummaryRecord{
		ConversationID: "conv-1",
		UserID:         "test_user",
		Summary:        "Planned taco night",
		Topics:         []string{"tacos"},
		StartedAt:      now.Add(-time.Hour),
		EndedAt:        now,
		MessageCount:   12,
		Embedding:      []float64{0.5, 0.5, 0},
	}
	require.NoError(t, store.UpsertSummary(ctx, summary))

	// Regenerating overwrites in place.
	summary.Summary = "Planned taco night and picked a salsa recipe"
	require.NoError(t, store.UpsertSummary(ctx, summary))

	retrieved, err := store.GetSummary(ctx, "conv-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "Planned taco night and picked a salsa recipe", retrieved.Summary)

	results, err := store.SearchSummaries(ctx, []float64{0.5, 0.5, 0}, "test_user", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "conv-1", results[0].ConversationID)
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	missing, err := store.GetSession(ctx, "test_user", "s-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	now := time.Now().UTC()
	entry := &storage.SessionRecord{
		UserID:       "test_user",
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
	require.NoError(t, store.RecordHit(ctx, "test_user", "s-1"))
	require.NoError(t, store.RecordHit(ctx, "test_user", "s-1"))
	require.NoError(t, store.RecordMiss(ctx, "test_user", "s-1"))

	retrieved, err := store.GetSession(ctx, "test_user", "s-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.Equal(t, "merged context", retrieved.Context)
	assert.Equal(t, int64(2), retrieved.Hits)
	assert.Equal(t, int64(1), retrieved.Misses)
	require.Len(t, retrieved.Messages, 1)
	assert.Equal(t, 1.0, retrieved.Messages[0].Score)
}

func TestSQLiteDeleteExpiredSessions(t *testing.T) {
	store := setupSQLiteTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := &storage.SessionRecord{
		UserID: "test_user", SessionID: "stale", Context: "old",
		Messages: []storage.RankedMessage{}, LastActivity: now.Add(-time.Hour),
		ExpiresAt: now.Add(-30 * time.Minute),
	}
	fresh := &storage.SessionRecord{
		UserID: "test_user", SessionID: "fresh", Context: "new",
		Messages: []storage.RankedMessage{}, LastActivity: now,
		ExpiresAt: now.Add(30 * time.Minute),
	}
	require.NoError(t, store.PutSession(ctx, stale))
	require.NoError(t, store.PutSession(ctx, fresh))

	removed, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	gone, err := store.GetSession(ctx, "test_user", "stale")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetSession(ctx, "test_user", "fresh")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
