package factstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/factstore"
	"github.com/mealmind/memtier/pkg/storage"
)

func TestSearchByKeywordTagWeighting(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	// "chicken" appears only in the tags of the first fact and only in the
	// free text of the second. The tag match must outrank the text match.
	_, err := store.AddFact(ctx, "user-1", "Prefers lean protein for dinner",
		factstore.WithTags(storage.FactTags{Proteins: []string{"chicken"}}),
	)
	require.NoError(t, err)
	_, err = store.AddFact(ctx, "user-1", "Made chicken soup last winter")
	require.NoError(t, err)

	results, err := store.SearchByKeyword(ctx, "user-1", []string{"chicken"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Prefers lean protein for dinner", results[0].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchByKeywordExcludesNonMatches(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddFact(ctx, "user-1", "Loves spicy food")
	require.NoError(t, err)
	_, err = store.AddFact(ctx, "user-1", "Owns an air fryer")
	require.NoError(t, err)

	results, err := store.SearchByKeyword(ctx, "user-1", []string{"spicy"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Loves spicy food", results[0].Content)
}

func TestSearchByKeywordRecencyTieBreak(t *testing.T) {
	store, records, _ := newTestStore(t)
	ctx := context.Background()

	older, err := store.AddFact(ctx, "user-1", "Enjoys thai curry on weekends")
	require.NoError(t, err)
	newer, err := store.AddFact(ctx, "user-1", "Wants a new thai curry recipe")
	require.NoError(t, err)

	// Same single-keyword score; force distinct creation times.
	records.facts[older.FactID].CreatedAt = time.Now().Add(-time.Hour)
	records.facts[newer.FactID].CreatedAt = time.Now()

	results, err := store.SearchByKeyword(ctx, "user-1", []string{"thai"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, newer.FactID, results[0].ID, "ties break newest first")
}

func TestSearchByKeywordLimit(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	for _, text := range []string{
		"Likes spicy ramen",
		"Likes spicy tacos",
		"Likes spicy curry",
	} {
		_, err := store.AddFact(ctx, "user-1", text)
		require.NoError(t, err)
	}

	results, err := store.SearchByKeyword(ctx, "user-1", []string{"spicy"}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchByKeywordEmptyKeywords(t *testing.T) {
	store, _, _ := newTestStore(t)

	results, err := store.SearchByKeyword(context.Background(), "user-1", []string{"", "a"}, 10)
	require.NoError(t, err)
	assert.Empty(t, results, "empty and one-letter keywords are dropped")
}
