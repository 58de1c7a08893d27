package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mealmind/memtier/pkg/storage"
)

// Decision events mirror the fact history events, plus NONE for skips.
const (
	eventAdd    = storage.EventAdd
	eventUpdate = storage.EventUpdate
	eventDelete = storage.EventDelete
	eventNone   = "NONE"
)

// candidate is one extracted preference statement awaiting reconciliation.
type candidate struct {
	Text     string           `json:"text"`
	Category string           `json:"category"`
	Tags     storage.FactTags `json:"tags"`
}

// existingFact is a stored fact presented to the decision model. IDs are
// small positional indexes; the model never sees real fact IDs.
type existingFact struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// decision is the model's verdict for one candidate.
type decision struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// parseCandidates parses the extraction response. A malformed response
// yields no candidates and no error: extraction is best-effort and must
// never corrupt the store.
func parseCandidates(response string) []candidate {
	response = removeCodeBlocks(response)

	var result struct {
		Facts []candidate `json:"facts"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil
	}

	candidates := make([]candidate, 0, len(result.Facts))
	for _, c := range result.Facts {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// parseDecision parses a reconciliation response. Anything malformed — bad
// JSON, an unknown event, an UPDATE or DELETE without a resolvable index —
// degrades to NONE so a confused model cannot mutate the store.
func parseDecision(response string, existingCount int) decision {
	response = removeCodeBlocks(response)

	var d decision
	if err := json.Unmarshal([]byte(response), &d); err != nil {
		return decision{Event: eventNone}
	}

	d.Event = strings.ToUpper(strings.TrimSpace(d.Event))
	switch d.Event {
	case eventAdd:
		if strings.TrimSpace(d.Text) == "" {
			return decision{Event: eventNone}
		}
	case eventUpdate:
		if strings.TrimSpace(d.Text) == "" || !validIndex(d.ID, existingCount) {
			return decision{Event: eventNone}
		}
	case eventDelete:
		if !validIndex(d.ID, existingCount) {
			return decision{Event: eventNone}
		}
	default:
		return decision{Event: eventNone}
	}

	return d
}

// validIndex reports whether id parses to a positional index in range.
func validIndex(id string, count int) bool {
	idx, err := strconv.Atoi(strings.TrimSpace(id))
	return err == nil && idx >= 0 && idx < count
}

// removeCodeBlocks strips markdown code fences (```json ... ```) that chat
// models wrap JSON in.
func removeCodeBlocks(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}
