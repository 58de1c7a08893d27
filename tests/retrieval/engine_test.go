package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/conversation"
	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/storage"
)

// fakeFacts implements retrieval.FactSearcher with call counting. The
// counters are mutex-guarded because complex retrieval runs tiers in
// parallel.
type fakeFacts struct {
	mu           sync.Mutex
	vectorCalls  int
	keywordCalls int

	vectorResults  []*storage.FactRecord
	keywordResults []*storage.FactRecord
	vectorErr      error
	keywordErr     error
}

func (f *fakeFacts) SearchByVector(_ context.Context, _ string, _ []float64, _ int, _ string) ([]*storage.FactRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorCalls++
	return f.vectorResults, f.vectorErr
}

func (f *fakeFacts) SearchByKeyword(_ context.Context, _ string, _ []string, _ int) ([]*storage.FactRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordCalls++
	return f.keywordResults, f.keywordErr
}

type fakeSummaries struct {
	mu      sync.Mutex
	calls   int
	results []*storage.SummaryRecord
	err     error
}

func (f *fakeSummaries) SearchSummaries(_ context.Context, _ []float64, _ string, _ int) ([]*storage.SummaryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, f.err
}

type fakeConversations struct {
	mu    sync.Mutex
	calls int
	turns []conversation.Turn
	err   error
}

func (f *fakeConversations) RecentTurns(_ context.Context, _ string, _ int) ([]conversation.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.turns, f.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func fact(id int64, content string) *storage.FactRecord {
	return &storage.FactRecord{ID: id, UserID: "user-1", Content: content}
}

func query(intent retrieval.Intent) *retrieval.Query {
	return &retrieval.Query{
		UserID:    "user-1",
		SessionID: "s-1",
		Text:      "what should I cook for dinner tonight",
		Intent:    intent,
	}
}

func TestSimpleIntentRetrievesNothing(t *testing.T) {
	facts := &fakeFacts{vectorResults: []*storage.FactRecord{fact(1, "Loves spicy food")}}
	summaries := &fakeSummaries{}
	conversations := &fakeConversations{}
	emb := &fakeEmbedder{}
	engine := retrieval.New(facts, summaries, conversations, emb)

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentSimple))
	require.NoError(t, err)

	assert.True(t, result.Empty())
	assert.Equal(t, 0, emb.calls, "simple intent must make no embedding call")
	assert.Equal(t, 0, facts.vectorCalls)
	assert.Equal(t, 0, facts.keywordCalls)
	assert.Equal(t, 0, summaries.calls)
	assert.Equal(t, 0, conversations.calls)
}

func TestComplexIntentRunsAllTiers(t *testing.T) {
	facts := &fakeFacts{
		vectorResults:  []*storage.FactRecord{fact(1, "Loves spicy food")},
		keywordResults: []*storage.FactRecord{fact(2, "Owns an air fryer")},
	}
	summaries := &fakeSummaries{results: []*storage.SummaryRecord{
		{ConversationID: "c-1", UserID: "user-1", Summary: "Planned taco night"},
	}}
	conversations := &fakeConversations{turns: []conversation.Turn{
		{Role: "user", Content: "hi", Timestamp: time.Now()},
	}}
	emb := &fakeEmbedder{}
	engine := retrieval.New(facts, summaries, conversations, emb)

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentComplex))
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "query embedded exactly once")
	assert.Equal(t, 1, facts.vectorCalls)
	assert.Equal(t, 1, facts.keywordCalls)
	assert.Equal(t, 1, summaries.calls)
	assert.Equal(t, 1, conversations.calls)

	assert.Len(t, result.Summaries, 1)
	assert.Len(t, result.VectorFacts, 1)
	assert.Len(t, result.KeywordFacts, 1)
	assert.Len(t, result.RecentMessages, 1)
}

func TestMediumIntentKeywordSufficient(t *testing.T) {
	facts := &fakeFacts{keywordResults: []*storage.FactRecord{
		fact(1, "Loves spicy food"),
		fact(2, "Weeknight dinners under 30 minutes"),
	}}
	emb := &fakeEmbedder{}
	engine := retrieval.New(facts, &fakeSummaries{}, &fakeConversations{}, emb)

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentMedium))
	require.NoError(t, err)

	assert.Equal(t, 0, emb.calls, "two keyword results satisfy the cheap path")
	assert.Equal(t, 0, facts.vectorCalls)
	assert.Len(t, result.KeywordFacts, 2)
}

func TestMediumIntentFallsBackToVector(t *testing.T) {
	facts := &fakeFacts{
		keywordResults: []*storage.FactRecord{fact(1, "Loves spicy food")},
		vectorResults:  []*storage.FactRecord{fact(2, "Cooks for four")},
	}
	emb := &fakeEmbedder{}
	engine := retrieval.New(facts, &fakeSummaries{}, &fakeConversations{}, emb)

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentMedium))
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, facts.vectorCalls, "fewer than two keyword hits escalates")
	assert.Len(t, result.VectorFacts, 1)
}

func TestTierFailureDoesNotFailOthers(t *testing.T) {
	facts := &fakeFacts{
		vectorErr:      errors.New("vector index offline"),
		keywordResults: []*storage.FactRecord{fact(1, "Owns an air fryer")},
	}
	summaries := &fakeSummaries{err: errors.New("summary table locked")}
	conversations := &fakeConversations{turns: []conversation.Turn{
		{Role: "user", Content: "hello"},
	}}
	engine := retrieval.New(facts, summaries, conversations, &fakeEmbedder{})

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentComplex))
	require.NoError(t, err, "partial tier failure is never a hard error")

	assert.Empty(t, result.Summaries)
	assert.Empty(t, result.VectorFacts)
	assert.Len(t, result.KeywordFacts, 1)
	assert.Len(t, result.RecentMessages, 1)
}

func TestEmbeddingFailureSkipsSemanticTiers(t *testing.T) {
	facts := &fakeFacts{keywordResults: []*storage.FactRecord{fact(1, "Loves spicy food")}}
	summaries := &fakeSummaries{}
	emb := &fakeEmbedder{err: errors.New("embedding service unavailable")}
	engine := retrieval.New(facts, summaries, &fakeConversations{}, emb)

	result, err := engine.Retrieve(context.Background(), query(retrieval.IntentComplex))
	require.NoError(t, err)

	assert.Equal(t, 0, facts.vectorCalls)
	assert.Equal(t, 0, summaries.calls)
	assert.Len(t, result.KeywordFacts, 1, "cheap tiers still run")
}

func TestRenderPriorityOrder(t *testing.T) {
	result := &retrieval.Result{
		Summaries: []*storage.SummaryRecord{
			{ConversationID: "c-1", Summary: "Planned taco night last week"},
		},
		VectorFacts:  []*storage.FactRecord{fact(1, "Loves spicy food")},
		KeywordFacts: []*storage.FactRecord{fact(2, "Owns an air fryer")},
		RecentMessages: []conversation.Turn{
			{Role: "user", Content: "what about tonight?"},
		},
	}

	rendered := result.Render()

	summaryIdx := strings.Index(rendered, "Planned taco night last week")
	vectorIdx := strings.Index(rendered, "Loves spicy food")
	keywordIdx := strings.Index(rendered, "Owns an air fryer")
	recentIdx := strings.Index(rendered, "what about tonight?")

	require.GreaterOrEqual(t, summaryIdx, 0)
	assert.Greater(t, vectorIdx, summaryIdx)
	assert.Greater(t, keywordIdx, vectorIdx)
	assert.Greater(t, recentIdx, keywordIdx)
}

func TestRenderDeduplicatesAcrossTiers(t *testing.T) {
	shared := fact(1, "Loves spicy food")
	result := &retrieval.Result{
		VectorFacts:  []*storage.FactRecord{shared},
		KeywordFacts: []*storage.FactRecord{shared, fact(2, "Owns an air fryer")},
	}

	rendered := result.Render()
	assert.Equal(t, 1, strings.Count(rendered, "Loves spicy food"))

	facts := result.Facts()
	require.Len(t, facts, 2)
	assert.Equal(t, int64(1), facts[0].ID, "vector results keep priority position")
}
