package factstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mealmind/memtier/pkg/storage"
)

const (
	// recentWindow bounds how many of the user's most recent facts a
	// keyword search scans. Keyword search is the cheap tier; scanning the
	// whole fact set would defeat its purpose.
	recentWindow = 100

	// tagMatchWeight is how much a structured-tag match counts relative to
	// a free-text substring match.
	tagMatchWeight = 3
)

// SearchByKeyword scores the user's recent facts against the given keywords.
//
// Scoring: each structured-tag term matching a keyword counts
// tagMatchWeight points; each keyword found as a substring of the fact text
// counts one point. Facts with zero matches are excluded. Ties break by
// recency, newest first. No embedding call is made.
func (s *Store) SearchByKeyword(ctx context.Context, userID string, keywords []string, limit int) ([]*storage.FactRecord, error) {
	normalized := normalizeKeywords(keywords)
	if len(normalized) == 0 {
		return nil, nil
	}

	recent, err := s.records.ListRecentFacts(ctx, userID, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("SearchByKeyword: %w", err)
	}

	var matched []*storage.FactRecord
	for _, fact := range recent {
		score := keywordScore(fact, normalized)
		if score == 0 {
			continue
		}
		fact.Score = float64(score)
		matched = append(matched, fact)
	}

	// ListRecentFacts returns newest first, so a stable sort preserves
	// recency order among equal scores.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Score > matched[j].Score
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

// keywordScore computes the match score of one fact against the keywords.
func keywordScore(fact *storage.FactRecord, keywords []string) int {
	score := 0

	for _, term := range fact.Tags.All() {
		term = strings.ToLower(term)
		for _, kw := range keywords {
			if strings.Contains(term, kw) || strings.Contains(kw, term) {
				score += tagMatchWeight
				break
			}
		}
	}

	content := strings.ToLower(fact.Content)
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			score++
		}
	}

	return score
}

// normalizeKeywords lower-cases, trims, and drops empty or one-letter terms.
func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if len(kw) < 2 {
			continue
		}
		out = append(out, kw)
	}
	return out
}
