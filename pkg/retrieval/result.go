package retrieval

import (
	"fmt"
	"strings"

	"github.com/mealmind/memtier/pkg/conversation"
	"github.com/mealmind/memtier/pkg/storage"
)

// Result holds the output of one retrieval pass, one field per tier.
// Fields for tiers that did not run, returned nothing, or failed are empty.
type Result struct {
	// Summaries are past-conversation summaries, highest similarity first.
	Summaries []*storage.SummaryRecord

	// VectorFacts are facts from nearest-neighbor search.
	VectorFacts []*storage.FactRecord

	// KeywordFacts are facts from the cheap keyword tier.
	KeywordFacts []*storage.FactRecord

	// RecentMessages is the raw tail of the current conversation,
	// oldest first.
	RecentMessages []conversation.Turn
}

// Empty reports whether no tier produced anything.
func (r *Result) Empty() bool {
	return len(r.Summaries) == 0 && len(r.VectorFacts) == 0 &&
		len(r.KeywordFacts) == 0 && len(r.RecentMessages) == 0
}

// Facts returns all retrieved facts with cross-tier duplicates removed.
// Vector results keep their position ahead of keyword results, preserving
// the tier priority order.
func (r *Result) Facts() []*storage.FactRecord {
	seen := make(map[int64]bool, len(r.VectorFacts)+len(r.KeywordFacts))
	facts := make([]*storage.FactRecord, 0, len(r.VectorFacts)+len(r.KeywordFacts))

	for _, f := range append(append([]*storage.FactRecord{}, r.VectorFacts...), r.KeywordFacts...) {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		facts = append(facts, f)
	}

	return facts
}

// Render formats the result as labeled sections in strict priority order:
// summaries, then vector facts, then keyword facts, then recent messages.
// Facts already shown in a higher tier are not repeated in a lower one.
func (r *Result) Render() string {
	var b strings.Builder

	if len(r.Summaries) > 0 {
		b.WriteString("## Past conversations\n")
		for _, s := range r.Summaries {
			b.WriteString("- " + s.Summary + "\n")
		}
	}

	seen := make(map[int64]bool)
	writeFacts := func(header string, facts []*storage.FactRecord) {
		wrote := false
		for _, f := range facts {
			if seen[f.ID] {
				continue
			}
			seen[f.ID] = true
			if !wrote {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString(header + "\n")
				wrote = true
			}
			b.WriteString("- " + f.Content + "\n")
		}
	}

	writeFacts("## What we know about the user", r.VectorFacts)
	writeFacts("## Possibly related", r.KeywordFacts)

	if len(r.RecentMessages) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## Recent messages\n")
		for _, m := range r.RecentMessages {
			b.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
		}
	}

	return b.String()
}
