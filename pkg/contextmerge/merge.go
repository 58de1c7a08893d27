// Package contextmerge combines authoritative profile data with retrieved
// memory into one prompt-ready context string.
//
// The one rule that must never be violated: profile dietary restrictions
// are the single source of truth. Inferred facts may enrich the context but
// can never override a restriction; any contradiction is rendered as an
// explicit conflict line. Merge is pure — no I/O, fully determined by its
// inputs — so the precedence rule is testable in isolation.
package contextmerge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/storage"
)

// instructionBlock closes every merged context. Downstream consumers see it
// last, after any conflict lines.
const instructionBlock = `## Instructions
Always honor the user's dietary restrictions over any remembered preference or past behavior.
Where a conflict is noted above, the profile restriction is authoritative.`

// Merge renders the profile block, the retrieved-memory block, conflict
// annotations, and the closing instruction block, in that order.
//
// Either input may be nil or empty; the corresponding block is omitted. The
// instruction block is emitted whenever the profile carries restrictions.
func Merge(profile *storage.ProfileRecord, result *retrieval.Result) string {
	var sections []string

	if block := renderProfile(profile); block != "" {
		sections = append(sections, block)
	}

	if result != nil && !result.Empty() {
		sections = append(sections, "## Remembered context\n"+result.Render())
	}

	if profile != nil && result != nil {
		conflicts := DetectConflicts(profile.DietaryRestrictions, result.Facts())
		if block := renderConflicts(conflicts); block != "" {
			sections = append(sections, block)
		}
	}

	if profile != nil && len(profile.DietaryRestrictions) > 0 {
		sections = append(sections, instructionBlock)
	}

	return strings.Join(sections, "\n\n")
}

// renderProfile renders the authoritative profile fields. Restrictions get
// the loudest label; empty fields are skipped.
func renderProfile(profile *storage.ProfileRecord) string {
	if profile == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("## User profile (authoritative)\n")

	writeField(&b, "Name", profile.Name)
	writeField(&b, "Primary goal", profile.PrimaryGoal)
	writeField(&b, "Cuisines", strings.Join(profile.Cuisines, ", "))
	writeField(&b, "Preferences", profile.Preferences)
	writeField(&b, "Dietary restrictions (MUST honor)", strings.Join(profile.DietaryRestrictions, ", "))
	if profile.FamilySize > 0 {
		writeField(&b, "Family size", strconv.Itoa(profile.FamilySize))
	}
	writeField(&b, "Skill level", profile.SkillLevel)
	writeField(&b, "Equipment", strings.Join(profile.Equipment, ", "))

	out := b.String()
	if out == "## User profile (authoritative)\n" {
		return ""
	}
	return strings.TrimRight(out, "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(label + ": " + value + "\n")
}

// renderConflicts renders one line per conflict, each stating that the
// profile restriction takes precedence.
func renderConflicts(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Conflicts\n")
	for _, c := range conflicts {
		b.WriteString(fmt.Sprintf("- Remembered preference %q (%s) conflicts with dietary restriction %q; the profile restriction takes precedence.\n",
			c.Term, c.Fact, c.Restriction))
	}
	return strings.TrimRight(b.String(), "\n")
}
