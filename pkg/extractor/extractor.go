// Package extractor turns conversations into durable preference facts.
//
// The pipeline has four stages: collect a window of recent turns, extract
// candidate facts with the LLM, reconcile each candidate against the user's
// nearest existing facts (ADD/UPDATE/DELETE/NONE), and apply the verdicts
// through the fact store. The whole pipeline is best-effort: a malformed
// model response or a failed candidate degrades to a logged no-op, never a
// corrupted store.
package extractor

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mealmind/memtier/pkg/conversation"
	"github.com/mealmind/memtier/pkg/embedder"
	"github.com/mealmind/memtier/pkg/factstore"
	"github.com/mealmind/memtier/pkg/llm"
)

// Extractor runs the preference extraction pipeline.
type Extractor struct {
	conversations conversation.Provider
	llm           llm.Provider
	embedder      embedder.Provider
	facts         *factstore.Store

	minTurns     int
	windowTurns  int
	decisionTopK int
}

// Result summarizes one extraction run.
type Result struct {
	// RunID identifies the run; it is recorded as the trigger on every
	// history row the run produced.
	RunID string

	// Candidates is how many facts the extraction stage produced.
	Candidates int

	// Added, Updated, Deleted count applied mutations.
	Added   int
	Updated int
	Deleted int

	// Skipped counts NONE verdicts, duplicates absorbed by the fact
	// store's hash dedup, and malformed decisions.
	Skipped int

	// Failed counts candidates abandoned after an embedding, search, or
	// storage error.
	Failed int
}

// New creates an extractor over the given providers and fact store.
func New(conversations conversation.Provider, llmProvider llm.Provider, emb embedder.Provider, facts *factstore.Store, opts ...Option) *Extractor {
	options := applyOptions(opts)

	return &Extractor{
		conversations: conversations,
		llm:           llmProvider,
		embedder:      emb,
		facts:         facts,
		minTurns:      options.MinTurns,
		windowTurns:   options.WindowTurns,
		decisionTopK:  options.DecisionTopK,
	}
}

// Process runs the pipeline for one user session.
//
// Sessions shorter than the minimum turn count are skipped: a greeting
// carries no durable preferences and the LLM calls are not free. Candidates
// are reconciled and applied concurrently; one candidate's failure never
// aborts the run.
func (e *Extractor) Process(ctx context.Context, userID, sessionID string) (*Result, error) {
	runID := uuid.New().String()
	result := &Result{RunID: runID}

	turns, err := e.conversations.RecentTurns(ctx, sessionID, e.windowTurns)
	if err != nil {
		return nil, fmt.Errorf("Process: collect turns: %w", err)
	}
	if len(turns) < e.minTurns {
		log.Printf("[extractor] run %s: session %s has %d turns, below minimum %d, skipping", runID, sessionID, len(turns), e.minTurns)
		return result, nil
	}

	candidates, err := e.extract(ctx, turns)
	if err != nil {
		return nil, fmt.Errorf("Process: %w", err)
	}
	result.Candidates = len(candidates)
	if len(candidates) == 0 {
		log.Printf("[extractor] run %s: no durable facts in session %s", runID, sessionID)
		return result, nil
	}

	// One batch call covers every candidate; the vectors are reused for
	// neighbor search and, when the text survives verbatim, for the final
	// store write.
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	embeddings, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("Process: embed candidates: %w", err)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(c candidate, embedding []float64) {
			defer wg.Done()

			outcome, err := e.reconcile(ctx, userID, runID, c, embedding)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[extractor] run %s: candidate %q failed: %v", runID, c.Text, err)
				result.Failed++
				return
			}
			switch outcome {
			case eventAdd:
				result.Added++
			case eventUpdate:
				result.Updated++
			case eventDelete:
				result.Deleted++
			default:
				result.Skipped++
			}
		}(c, embeddings[i])
	}
	wg.Wait()

	log.Printf("[extractor] run %s: %d candidates, %d added, %d updated, %d deleted, %d skipped, %d failed",
		runID, result.Candidates, result.Added, result.Updated, result.Deleted, result.Skipped, result.Failed)

	return result, nil
}

// extract calls the LLM over the conversation window and parses candidates.
// A malformed response is a logged no-op, not an error.
func (e *Extractor) extract(ctx context.Context, turns []conversation.Turn) ([]candidate, error) {
	var parts []string
	for _, turn := range turns {
		if turn.Role == "system" || turn.Content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	if len(parts) == 0 {
		return nil, nil
	}

	response, err := e.llm.GenerateWithMessages(ctx, []llm.Message{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: "Input:\n" + strings.Join(parts, "\n")},
	}, llm.WithTemperature(0.1))
	if err != nil {
		return nil, fmt.Errorf("extract facts: %w", err)
	}

	candidates := parseCandidates(response)
	if candidates == nil && strings.TrimSpace(response) != "" {
		log.Printf("[extractor] unparseable extraction response, treating as empty")
	}
	return candidates, nil
}

// reconcile decides and applies the action for one candidate. It returns
// the applied event, with eventNone covering skips and absorbed duplicates.
func (e *Extractor) reconcile(ctx context.Context, userID, runID string, c candidate, embedding []float64) (string, error) {
	neighbors, err := e.facts.SearchByVector(ctx, userID, embedding, e.decisionTopK, "")
	if err != nil {
		return "", fmt.Errorf("search neighbors: %w", err)
	}

	// The model sees positional indexes, never real fact IDs.
	existing := make([]existingFact, len(neighbors))
	for i, n := range neighbors {
		existing[i] = existingFact{ID: strconv.Itoa(i), Text: n.Content}
	}

	response, err := e.llm.GenerateWithMessages(ctx, []llm.Message{
		{Role: "user", Content: decisionPrompt(c.Text, existing)},
	}, llm.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("decide action: %w", err)
	}

	d := parseDecision(response, len(existing))
	trigger := "extraction:" + runID

	switch d.Event {
	case eventAdd:
		opts := []factstore.AddOption{
			factstore.WithCategory(c.Category),
			factstore.WithTags(c.Tags),
			factstore.WithTrigger(trigger),
		}
		// The candidate's embedding is reusable only when the model kept
		// the text verbatim.
		if d.Text == c.Text {
			opts = append(opts, factstore.WithEmbedding(embedding))
		}
		added, err := e.facts.AddFact(ctx, userID, d.Text, opts...)
		if err != nil {
			return "", fmt.Errorf("apply add: %w", err)
		}
		if added.Duplicate {
			return eventNone, nil
		}
		return eventAdd, nil

	case eventUpdate:
		idx, _ := strconv.Atoi(d.ID)
		opts := []factstore.UpdateOption{
			factstore.WithTagsForUpdate(c.Tags),
			factstore.WithTriggerForUpdate(trigger),
		}
		if d.Text == c.Text {
			opts = append(opts, factstore.WithEmbeddingForUpdate(embedding))
		}
		if _, err := e.facts.UpdateFact(ctx, neighbors[idx].ID, d.Text, opts...); err != nil {
			return "", fmt.Errorf("apply update: %w", err)
		}
		return eventUpdate, nil

	case eventDelete:
		idx, _ := strconv.Atoi(d.ID)
		if err := e.facts.DeleteFact(ctx, neighbors[idx].ID, factstore.WithTriggerForDelete(trigger)); err != nil {
			return "", fmt.Errorf("apply delete: %w", err)
		}
		return eventDelete, nil
	}

	return eventNone, nil
}
