package contextmerge

import (
	"strings"

	"github.com/mealmind/memtier/pkg/storage"
)

// conflictTable maps a profile restriction keyword to ingredient and diet
// terms that commonly violate it. A retrieved fact whose structured tags
// intersect the set is flagged as a conflict. The table is intentionally
// fixed and conservative; unknown restrictions still match their own
// keyword.
var conflictTable = map[string][]string{
	"dairy":      {"milk", "cheese", "yogurt", "butter", "cream", "lactose"},
	"lactose":    {"milk", "cheese", "yogurt", "butter", "cream", "dairy"},
	"gluten":     {"wheat", "bread", "pasta", "flour", "barley", "rye"},
	"nuts":       {"peanut", "almond", "walnut", "cashew", "pecan", "hazelnut", "pistachio"},
	"peanuts":    {"peanut"},
	"shellfish":  {"shrimp", "crab", "lobster", "clam", "mussel", "oyster", "scallop"},
	"eggs":       {"egg", "mayonnaise", "meringue"},
	"soy":        {"tofu", "soy", "edamame", "tempeh", "miso"},
	"pork":       {"pork", "bacon", "ham", "sausage", "prosciutto"},
	"vegetarian": {"beef", "pork", "chicken", "lamb", "fish", "bacon", "ham", "meat"},
	"vegan":      {"beef", "pork", "chicken", "lamb", "fish", "meat", "milk", "cheese", "yogurt", "butter", "cream", "egg", "honey"},
}

// Conflict records one retrieved fact contradicting a profile restriction.
type Conflict struct {
	// Restriction is the profile restriction, verbatim.
	Restriction string

	// Term is the fact tag that triggered the conflict.
	Term string

	// Fact is the conflicting fact's text.
	Fact string
}

// DetectConflicts checks every retrieved fact's structured tags against the
// profile's dietary restrictions. Matching is case-insensitive substring in
// both directions, so "dairy-free" still matches "dairy".
func DetectConflicts(restrictions []string, facts []*storage.FactRecord) []Conflict {
	var conflicts []Conflict

	for _, restriction := range restrictions {
		key := strings.ToLower(strings.TrimSpace(restriction))
		if key == "" {
			continue
		}

		terms := append([]string{key}, conflictTable[key]...)

		for _, fact := range facts {
			for _, tag := range fact.Tags.All() {
				tag = strings.ToLower(tag)
				if matchesAny(tag, terms) {
					conflicts = append(conflicts, Conflict{
						Restriction: restriction,
						Term:        tag,
						Fact:        fact.Content,
					})
					break
				}
			}
		}
	}

	return conflicts
}

func matchesAny(tag string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(tag, term) || strings.Contains(term, tag) {
			return true
		}
	}
	return false
}
