package extractor

import (
	"encoding/json"
	"fmt"
)

// extractionPrompt is the system prompt for candidate extraction.
//
// The model reads a conversation window and emits durable, self-contained
// preference statements about the user, each with a category and structured
// tag sets. Transient statements ("I'm hungry right now") must not be
// extracted.
const extractionPrompt = `You are a culinary preference organizer for a meal-planning assistant. Extract durable facts about the user's food preferences, constraints, and cooking habits from the conversation.

Extract ONLY durable information that will still be true next week:
- Taste preferences ("loves spicy food", "dislikes cilantro")
- Dietary restrictions and allergies ("lactose intolerant", "vegetarian")
- Household details ("cooks for a family of four")
- Cooking constraints ("weeknight dinners must be under 30 minutes")
- Skill and equipment ("owns an air fryer", "beginner cook")

Do NOT extract:
- Transient state ("I'm hungry", "I already ate")
- One-off requests ("show me a pasta recipe")
- Assistant suggestions the user did not confirm

Each fact must be self-contained and understandable on its own.

Categories: taste, restriction, household, constraint, skill, equipment, other.

Tag sets (all optional, lower-case terms):
- proteins: chicken, tofu, beef, ...
- restrictions: dairy, gluten, nuts, ...
- preferences: spicy, mild, sweet, ...
- time_constraints: under-30-min, weeknight, ...
- diet_tags: vegetarian, vegan, keto, ...
- equipment: air-fryer, instant-pot, ...

Examples:
Input:
user: Hi there!
Output: {"facts": []}

Input:
user: I'm lactose intolerant, so no dairy please.
Output: {"facts": [{"text": "Is lactose intolerant and avoids dairy", "category": "restriction", "tags": {"restrictions": ["dairy", "lactose"]}}]}

Input:
user: We love spicy food, and weeknight dinners need to be quick since I cook for four.
Output: {"facts": [{"text": "Loves spicy food", "category": "taste", "tags": {"preferences": ["spicy"]}}, {"text": "Weeknight dinners need to be quick", "category": "constraint", "tags": {"time_constraints": ["weeknight", "quick"]}}, {"text": "Cooks for a family of four", "category": "household", "tags": {}}]}

Return JSON: {"facts": [{"text": "...", "category": "...", "tags": {...}}]}
If there is nothing durable to extract, return {"facts": []}.
Preserve the input language.

Extract facts from the conversation below:`

// decisionPromptTemplate builds the reconciliation prompt for one candidate
// fact against its nearest existing facts.
func decisionPrompt(candidate string, existing []existingFact) string {
	existingJSON, _ := json.Marshal(existing)

	return fmt.Sprintf(`You are reconciling a new fact about a user with their existing stored facts.

# Existing Facts
%s

# New Fact
%q

# Task
Decide ONE action:
- ADD: the fact is novel and overlaps no existing fact
- UPDATE: the fact refines or corrects an existing fact; merge them into one complete, self-contained statement
- DELETE: the fact contradicts an existing fact that is now wrong (e.g. "I eat meat again" against "Is vegetarian")
- NONE: the fact is already captured, or is not worth storing

Guidelines:
1. Prefer UPDATE over ADD when the new fact and an existing fact describe the same preference.
2. For UPDATE and DELETE, "id" must be the exact id of the existing fact.
3. The merged text for UPDATE must be understandable on its own.

Output JSON, one object:
{"event": "ADD", "text": "..."}
{"event": "UPDATE", "id": "1", "text": "merged text"}
{"event": "DELETE", "id": "2"}
{"event": "NONE"}

Now decide:`, string(existingJSON), candidate)
}
