package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mealmind/memtier/pkg/storage"
)

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFact scans a fact row without a similarity column.
func scanFact(s scanner) (*storage.FactRecord, error) {
	return scanFactInner(s, false)
}

// scanFactWithScore scans a fact row with a trailing similarity column.
func scanFactWithScore(s scanner) (*storage.FactRecord, error) {
	return scanFactInner(s, true)
}

func scanFactInner(s scanner, withScore bool) (*storage.FactRecord, error) {
	var fact storage.FactRecord
	var tagsStr, embeddingStr string

	dest := []interface{}{
		&fact.ID, &fact.UserID, &fact.ScopeID, &fact.Content, &fact.Category,
		&tagsStr, &embeddingStr, &fact.EmbeddingModel, &fact.ContentHash,
		&fact.Version, &fact.Favorite, &fact.Deleted, &fact.CreatedAt, &fact.UpdatedAt,
	}
	if withScore {
		dest = append(dest, &fact.Score)
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsStr), &fact.Tags); err != nil {
		return nil, fmt.Errorf("parse tags: %w", err)
	}

	embedding, err := stringToVector(embeddingStr)
	if err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	fact.Embedding = embedding

	return &fact, nil
}

// scanProfile scans a profile row.
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

// scanSummary scans a summary row without a similarity column.
func scanSummary(s scanner) (*storage.SummaryRecord, error) {
	return scanSummaryInner(s, false)
}

// scanSummaryWithScore scans a summary row with a trailing similarity column.
func scanSummaryWithScore(s scanner) (*storage.SummaryRecord, error) {
	return scanSummaryInner(s, true)
}

func scanSummaryInner(s scanner, withScore bool) (*storage.SummaryRecord, error) {
	var summary storage.SummaryRecord
	var topicsStr, decisionsStr, embeddingStr string

	dest := []interface{}{
		&summary.ConversationID, &summary.UserID, &summary.Summary,
		&topicsStr, &decisionsStr, &summary.StartedAt, &summary.EndedAt,
		&summary.MessageCount, &embeddingStr,
	}
	if withScore {
		dest = append(dest, &summary.Score)
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(topicsStr), &summary.Topics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if err := json.Unmarshal([]byte(decisionsStr), &summary.Decisions); err != nil {
		return nil, fmt.Errorf("parse decisions: %w", err)
	}

	embedding, err := stringToVector(embeddingStr)
	if err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	summary.Embedding = embedding

	return &summary, nil
}

// scanSession scans a session cache row.
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

// marshalTags marshals fact tags for the JSONB column.
func marshalTags(tags storage.FactTags) (string, error) {
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalProfileFields marshals the JSONB columns of a profile.
func marshalProfileFields(profile *storage.ProfileRecord) (cuisines, restrictions, equipment string, err error) {
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

// marshalSummaryFields marshals the JSONB columns of a summary.
func marshalSummaryFields(summary *storage.SummaryRecord) (topics, decisions string, err error) {
	t, err := marshalStrings(summary.Topics)
	if err != nil {
		return "", "", err
	}
	d, err := marshalStrings(summary.Decisions)
	if err != nil {
		return "", "", err
	}
	return t, d, nil
}

// marshalMessages marshals a ranked-message buffer.
func marshalMessages(messages []storage.RankedMessage) (string, error) {
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

// vectorToString converts a vector to pgvector text format: "[0.1,0.2,...]".
func vectorToString(vector []float64) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// stringToVector parses pgvector text format back into a vector.
func stringToVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	vector := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		vector[i] = v
	}
	return vector, nil
}
