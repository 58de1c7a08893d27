package contextmerge_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealmind/memtier/pkg/contextmerge"
	"github.com/mealmind/memtier/pkg/retrieval"
	"github.com/mealmind/memtier/pkg/storage"
)

func testProfile() *storage.ProfileRecord {
	return &storage.ProfileRecord{
		UserID:              "user-1",
		Name:                "Jamie",
		PrimaryGoal:         "quick weeknight dinners",
		Cuisines:            []string{"mexican", "thai"},
		DietaryRestrictions: []string{"dairy"},
		FamilySize:          4,
		SkillLevel:          "intermediate",
	}
}

func TestMergeDairyCheeseConflict(t *testing.T) {
	profile := testProfile()
	result := &retrieval.Result{
		VectorFacts: []*storage.FactRecord{
			{
				ID:      1,
				Content: "Loves cheese on everything",
				Tags:    storage.FactTags{Preferences: []string{"cheese"}},
			},
		},
	}

	merged := contextmerge.Merge(profile, result)

	assert.Contains(t, merged, "dairy")
	assert.Contains(t, merged, "cheese")
	assert.Contains(t, merged, "the profile restriction takes precedence")
	assert.Contains(t, merged, "## Conflicts")
}

func TestMergeProfileBlockFirst(t *testing.T) {
	merged := contextmerge.Merge(testProfile(), &retrieval.Result{
		KeywordFacts: []*storage.FactRecord{{ID: 1, Content: "Owns an air fryer"}},
	})

	profileIdx := strings.Index(merged, "## User profile (authoritative)")
	memoryIdx := strings.Index(merged, "## Remembered context")
	require.GreaterOrEqual(t, profileIdx, 0)
	require.Greater(t, memoryIdx, profileIdx, "profile block renders before retrieved memory")

	assert.Contains(t, merged, "Name: Jamie")
	assert.Contains(t, merged, "Dietary restrictions (MUST honor): dairy")
	assert.Contains(t, merged, "Family size: 4")
}

func TestMergeInstructionBlockPresent(t *testing.T) {
	merged := contextmerge.Merge(testProfile(), &retrieval.Result{})

	assert.Contains(t, merged, "## Instructions")
	assert.Contains(t, merged, "Always honor the user's dietary restrictions")
}

func TestMergeNoRestrictionsNoInstructions(t *testing.T) {
	profile := testProfile()
	profile.DietaryRestrictions = nil

	merged := contextmerge.Merge(profile, &retrieval.Result{})

	assert.NotContains(t, merged, "## Instructions")
	assert.NotContains(t, merged, "## Conflicts")
}

func TestMergeNilInputs(t *testing.T) {
	assert.Equal(t, "", contextmerge.Merge(nil, nil))

	merged := contextmerge.Merge(nil, &retrieval.Result{
		KeywordFacts: []*storage.FactRecord{{ID: 1, Content: "Loves spicy food"}},
	})
	assert.Contains(t, merged, "Loves spicy food")
	assert.NotContains(t, merged, "## User profile")
}

func TestMergeIsPure(t *testing.T) {
	profile := testProfile()
	result := &retrieval.Result{
		VectorFacts: []*storage.FactRecord{
			{ID: 1, Content: "Loves cheese", Tags: storage.FactTags{Preferences: []string{"cheese"}}},
		},
	}

	first := contextmerge.Merge(profile, result)
	second := contextmerge.Merge(profile, result)
	assert.Equal(t, first, second)
}

func TestDetectConflictsVegetarian(t *testing.T) {
	conflicts := contextmerge.DetectConflicts(
		[]string{"vegetarian"},
		[]*storage.FactRecord{
			{ID: 1, Content: "Often orders bacon burgers", Tags: storage.FactTags{Proteins: []string{"bacon"}}},
			{ID: 2, Content: "Loves tofu stir-fry", Tags: storage.FactTags{Proteins: []string{"tofu"}}},
		},
	)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "vegetarian", conflicts[0].Restriction)
	assert.Equal(t, "bacon", conflicts[0].Term)
}

func TestDetectConflictsCaseAndVariants(t *testing.T) {
	conflicts := contextmerge.DetectConflicts(
		[]string{"Dairy"},
		[]*storage.FactRecord{
			{ID: 1, Content: "Puts heavy cream in pasta", Tags: storage.FactTags{Preferences: []string{"Heavy-Cream"}}},
		},
	)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "Dairy", conflicts[0].Restriction)
}

func TestDetectConflictsNoTags(t *testing.T) {
	conflicts := contextmerge.DetectConflicts(
		[]string{"dairy"},
		[]*storage.FactRecord{{ID: 1, Content: "Loves cheese"}},
	)
	assert.Empty(t, conflicts, "conflict detection reads structured tags, not free text")
}
