package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/portfolio-chat/internal/core/knowledge"
)

func keywordKnowledgeBase() *knowledge.KnowledgeBase {
	return &knowledge.KnowledgeBase{
		Profile: knowledge.Profile{Name: "Test", Summary: "writer", Location: "Pune"},
		Strengths: []knowledge.Strength{
			{Category: "Cloud Infrastructure", Items: []string{"platform role clarity"}},
			{Category: "Writing", Items: []string{"essays"}},
			{Category: "Cloud Costs", Items: []string{"finops"}},
			{Category: "Hiring", Items: []string{"role scoping"}},
		},
	}
}

func TestQueryWords_DropsShortWords(t *testing.T) {
	assert.Equal(t, []string{"what", "she", "at?"}, QueryWords("What is she at? a an"))
	assert.Equal(t, []string{"cloud", "infrastructure", "role"}, QueryWords("  Cloud INFRASTRUCTURE role  "))
	assert.Empty(t, QueryWords("a an to"))
}

func TestKeywordScore(t *testing.T) {
	words := QueryWords("cloud infrastructure role")

	assert.Equal(t, 1.0, KeywordScore("Cloud Infrastructure: platform role clarity", words))
	assert.InDelta(t, 1.0/3.0, KeywordScore("Cloud Costs: finops", words), 1e-9)
	assert.Equal(t, 0.0, KeywordScore("Writing: essays", words))
	assert.Equal(t, 0.0, KeywordScore("anything", nil))
}

func TestKeywordRetriever_ScoresFiltersAndOrders(t *testing.T) {
	r := NewKeywordRetriever(keywordKnowledgeBase())

	results := r.Retrieve("cloud infrastructure role", 5)

	require.Len(t, results, 3)
	assert.Equal(t, "strength-cloud-infrastructure", results[0].ID)
	assert.Equal(t, 1.0, results[0].Score)

	// 同点(1/3)はコーパスの列挙順
	assert.Equal(t, "strength-cloud-costs", results[1].ID)
	assert.Equal(t, "strength-hiring", results[2].ID)
	for _, res := range results {
		assert.Greater(t, res.Score, 0.0)
		assert.NotEqual(t, "strength-writing", res.ID)
	}
}

func TestKeywordRetriever_TruncatesToTopK(t *testing.T) {
	r := NewKeywordRetriever(keywordKnowledgeBase())

	results := r.Retrieve("cloud infrastructure role", 1)

	require.Len(t, results, 1)
	assert.Equal(t, "strength-cloud-infrastructure", results[0].ID)
}

func TestKeywordRetriever_ProfileLosesTies(t *testing.T) {
	r := NewKeywordRetriever(keywordKnowledgeBase())

	// "writer" はプロフィール要約、"essays" は Writing にのみ含まれ、どちらも 1/2
	results := r.Retrieve("writer essays", 5)

	require.Len(t, results, 2)
	assert.Equal(t, "strength-writing", results[0].ID)
	assert.Equal(t, "profile-summary", results[1].ID)
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestKeywordRetriever_NoUsableWords(t *testing.T) {
	r := NewKeywordRetriever(keywordKnowledgeBase())

	assert.Empty(t, r.Retrieve("is it", 5))
}
