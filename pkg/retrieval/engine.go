// Package retrieval implements intent-gated, tiered context retrieval.
//
// The engine fans a query out to up to four tiers — conversation summaries,
// vector search over facts, keyword search over facts, and the raw tail of
// the current conversation — and merges them with explicit priority. How
// many tiers run is governed by the caller-supplied intent: trivial queries
// retrieve nothing, medium queries stay on the cheap path unless it comes
// up short, complex queries run everything in parallel.
package retrieval

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/mealmind/memtier/pkg/conversation"
	"github.com/mealmind/memtier/pkg/storage"
)

// Intent classifies how much retrieval effort a query warrants. It is
// supplied by the caller; classification itself happens upstream.
type Intent string

const (
	// IntentSimple retrieves nothing. Greetings and acknowledgements do
	// not justify retrieval latency.
	IntentSimple Intent = "simple"

	// IntentMedium runs keyword search first and falls back to a light
	// vector search only when keywords come up short.
	IntentMedium Intent = "medium"

	// IntentComplex runs all four tiers unconditionally, in parallel.
	IntentComplex Intent = "complex"
)

// FactSearcher is the fact-search surface the engine needs.
type FactSearcher interface {
	SearchByVector(ctx context.Context, userID string, queryEmbedding []float64, topK int, scopeID string) ([]*storage.FactRecord, error)
	SearchByKeyword(ctx context.Context, userID string, keywords []string, limit int) ([]*storage.FactRecord, error)
}

// SummarySearcher is the summary-search surface the engine needs.
type SummarySearcher interface {
	SearchSummaries(ctx context.Context, embedding []float64, userID string, limit int) ([]*storage.SummaryRecord, error)
}

// Embedder embeds query text. The engine embeds the query at most once per
// pass and shares the vector across tiers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Engine routes queries to retrieval tiers by intent.
type Engine struct {
	facts         FactSearcher
	summaries     SummarySearcher
	conversations conversation.Provider
	embedder      Embedder

	summaryTopK      int
	vectorTopK       int
	keywordTopK      int
	recentWindow     int
	mediumVectorTopK int
	keywordMinimum   int
}

// Query is one retrieval request.
type Query struct {
	UserID    string
	SessionID string
	Text      string
	Intent    Intent

	// ScopeID optionally restricts vector search to one assistant persona.
	ScopeID string
}

// New creates a retrieval engine.
func New(facts FactSearcher, summaries SummarySearcher, conversations conversation.Provider, emb Embedder, opts ...Option) *Engine {
	options := applyOptions(opts)

	return &Engine{
		facts:            facts,
		summaries:        summaries,
		conversations:    conversations,
		embedder:         emb,
		summaryTopK:      options.SummaryTopK,
		vectorTopK:       options.VectorTopK,
		keywordTopK:      options.KeywordTopK,
		recentWindow:     options.RecentWindow,
		mediumVectorTopK: options.MediumVectorTopK,
		keywordMinimum:   options.KeywordMinimum,
	}
}

// Retrieve runs the tiers selected by the query's intent and merges their
// output. A tier failing is logged and leaves its section empty; partial
// results never become a hard error. An unrecognized intent is treated as
// medium.
func (e *Engine) Retrieve(ctx context.Context, query *Query) (*Result, error) {
	switch query.Intent {
	case IntentSimple:
		return &Result{}, nil
	case IntentComplex:
		return e.retrieveComplex(ctx, query), nil
	case IntentMedium:
		return e.retrieveMedium(ctx, query), nil
	default:
		log.Printf("[retrieval] unknown intent %q, treating as medium", query.Intent)
		return e.retrieveMedium(ctx, query), nil
	}
}

// retrieveMedium runs the cheap path: keyword search, escalating to a
// light vector search only when keywords yield too little, plus the recent
// message tail.
func (e *Engine) retrieveMedium(ctx context.Context, query *Query) *Result {
	result := &Result{}

	keywordFacts, err := e.facts.SearchByKeyword(ctx, query.UserID, keywords(query.Text), e.keywordTopK)
	if err != nil {
		log.Printf("[retrieval] keyword tier failed for user %s: %v", query.UserID, err)
	}
	result.KeywordFacts = keywordFacts

	if len(keywordFacts) < e.keywordMinimum {
		if embedding, err := e.embedder.Embed(ctx, query.Text); err != nil {
			log.Printf("[retrieval] query embedding failed for user %s: %v", query.UserID, err)
		} else if facts, err := e.facts.SearchByVector(ctx, query.UserID, embedding, e.mediumVectorTopK, query.ScopeID); err != nil {
			log.Printf("[retrieval] vector tier failed for user %s: %v", query.UserID, err)
		} else {
			result.VectorFacts = facts
		}
	}

	result.RecentMessages = e.recentTail(ctx, query)

	return result
}

// retrieveComplex runs all four tiers in parallel. The query is embedded
// once up front; if that fails, the summary and vector tiers are skipped
// and the cheap tiers still run.
func (e *Engine) retrieveComplex(ctx context.Context, query *Query) *Result {
	result := &Result{}

	embedding, err := e.embedder.Embed(ctx, query.Text)
	if err != nil {
		log.Printf("[retrieval] query embedding failed for user %s, skipping semantic tiers: %v", query.UserID, err)
	}

	var wg sync.WaitGroup

	if embedding != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries, err := e.summaries.SearchSummaries(ctx, embedding, query.UserID, e.summaryTopK)
			if err != nil {
				log.Printf("[retrieval] summary tier failed for user %s: %v", query.UserID, err)
				return
			}
			result.Summaries = summaries
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			facts, err := e.facts.SearchByVector(ctx, query.UserID, embedding, e.vectorTopK, query.ScopeID)
			if err != nil {
				log.Printf("[retrieval] vector tier failed for user %s: %v", query.UserID, err)
				return
			}
			result.VectorFacts = facts
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		facts, err := e.facts.SearchByKeyword(ctx, query.UserID, keywords(query.Text), e.keywordTopK)
		if err != nil {
			log.Printf("[retrieval] keyword tier failed for user %s: %v", query.UserID, err)
			return
		}
		result.KeywordFacts = facts
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result.RecentMessages = e.recentTail(ctx, query)
	}()

	wg.Wait()

	return result
}

// recentTail pulls the bounded tail of the current conversation.
func (e *Engine) recentTail(ctx context.Context, query *Query) []conversation.Turn {
	if query.SessionID == "" {
		return nil
	}
	turns, err := e.conversations.RecentTurns(ctx, query.SessionID, e.recentWindow)
	if err != nil {
		log.Printf("[retrieval] recent-message tier failed for session %s: %v", query.SessionID, err)
		return nil
	}
	return turns
}

// stopwords are query tokens too common to be useful keyword terms.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true,
	"do": true, "for": true, "how": true, "i": true, "is": true,
	"it": true, "me": true, "my": true, "of": true, "or": true,
	"should": true, "some": true, "the": true, "to": true, "want": true,
	"we": true, "what": true, "with": true, "you": true,
}

// keywords tokenizes query text into keyword terms, dropping stopwords and
// punctuation.
func keywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
