package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/mealmind/memtier/pkg/storage"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFact scans a fact from a database row.
func scanFact(s scanner) (*storage.FactRecord, error) {
	var fact storage.FactRecord
	var tagsStr, embeddingStr string
	var favorite, deleted int

	err := s.Scan(
		&fact.ID, &fact.UserID, &fact.ScopeID, &fact.Content, &fact.Category,
		&tagsStr, &embeddingStr, &fact.EmbeddingModel, &fact.ContentHash,
		&fact.Version, &favorite, &deleted, &fact.CreatedAt, &fact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsStr), &fact.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}
	if err := json.Unmarshal([]byte(embeddingStr), &fact.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}

	fact.Favorite = favorite != 0
	fact.Deleted = deleted != 0

	return &fact, nil
}

// scanProfile scans a profile from a database row.
func scanProfile(s scanner) (*storage.ProfileRecord, error) {
	var profile storage.ProfileRecord
	var cuisinesStr, restrictionsStr, equipmentStr string

	err := s.Scan(
		&profile.UserID, &profile.Name, &profile.PrimaryGoal, &cuisinesStr,
		&profile.Preferences, &restrictionsStr, &profile.FamilySize,
		&profile.SkillLevel, &equipmentStr, &profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cuisinesStr), &profile.Cuisines); err != nil {
		return nil, fmt.Errorf("parse cuisines: %w", err)
	}
	if err := json.Unmarshal([]byte(restrictionsStr), &profile.DietaryRestrictions); err != nil {
		return nil, fmt.Errorf("parse dietary restrictions: %w", err)
	}
	if err := json.Unmarshal([]byte(equipmentStr), &profile.Equipment); err != nil {
		return nil, fmt.Errorf("parse equipment: %w", err)
	}

	return &profile, nil
}

// scanSummary scans a conversation summary from a database row.
func scanSummary(s scanner) (*storage.SummaryRecord, error) {
	var summary storage.SummaryRecord
	var topicsStr, decisionsStr, embeddingStr string

	err := s.Scan(
		&summary.ConversationID, &summary.UserID, &summary.Summary,
		&topicsStr, &decisionsStr, &summary.StartedAt, &summary.EndedAt,
		&summary.MessageCount, &embeddingStr,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(topicsStr), &summary.Topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if err := json.Unmarshal([]byte(decisionsStr), &summary.Decisions); err != nil {
		return nil, fmt.Errorf("parse decisions: %w", err)
	}
	if err := json.Unmarshal([]byte(embeddingStr), &summary.Embedding); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}

	return &summary, nil
}

// scanSession scans a session cache entry from a database row.
func scanSession(s scanner) (*storage.SessionRecord, error) {
	var session storage.SessionRecord
	var messagesStr string

	err := s.Scan(
		&session.UserID, &session.SessionID, &session.Context, &session.Version,
		&session.MessageCount, &messagesStr, &session.LastActivity,
		&session.ExpiresAt, &session.Hits, &session.Misses,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messagesStr), &session.Messages); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}

	return &session, nil
}

// encodeFactFields marshals the JSON-encoded columns of a fact.
func encodeFactFields(fact *storage.FactRecord) (tagsJSON, embeddingJSON string, err error) {
	tags, err := json.Marshal(fact.Tags)
	if err != nil {
		return "", "", err
	}
	embedding, err := json.Marshal(fact.Embedding)
	if err != nil {
		return "", "", err
	}
	return string(tags), string(embedding), nil
}

// encodeProfileFields marshals the JSON-encoded columns of a profile.
func encodeProfileFields(profile *storage.ProfileRecord) (cuisines, restrictions, equipment string, err error) {
	c, err := marshalStrings(profile.Cuisines)
	if err != nil {
		return "", "", "", err
	}
	r, err := marshalStrings(profile.DietaryRestrictions)
	if err != nil {
		return "", "", "", err
	}
	e, err := marshalStrings(profile.Equipment)
	if err != nil {
		return "", "", "", err
	}
	return c, r, e, nil
}

// encodeSummaryFields marshals the JSON-encoded columns of a summary.
func encodeSummaryFields(summary *storage.SummaryRecord) (topics, decisions, embedding string, err error) {
	t, err := marshalStrings(summary.Topics)
	if err != nil {
		return "", "", "", err
	}
	d, err := marshalStrings(summary.Decisions)
	if err != nil {
		return "", "", "", err
	}
	e, err := json.Marshal(summary.Embedding)
	if err != nil {
		return "", "", "", err
	}
	return t, d, string(e), nil
}

// encodeMessages marshals a ranked-message buffer.
func encodeMessages(messages []storage.RankedMessage) (string, error) {
	if messages == nil {
		messages = []storage.RankedMessage{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalStrings marshals a string slice, encoding nil as an empty array.
func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore sorts facts by score (descending) and limits the number of results.
func sortByScore(facts []*storage.FactRecord, limit int) []*storage.FactRecord {
	sort.SliceStable(facts, func(i, j int) bool {
		return facts[i].Score > facts[j].Score
	})
	if limit > 0 && len(facts) > limit {
		return facts[:limit]
	}
	return facts
}

// sortSummariesByScore sorts summaries by score (descending) and limits the results.
func sortSummariesByScore(summaries []*storage.SummaryRecord, limit int) []*storage.SummaryRecord {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Score > summaries[j].Score
	})
	if limit > 0 && len(summaries) > limit {
		return summaries[:limit]
	}
	return summaries
}

// boolToInt converts a bool to the 0/1 convention used in the schema.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
