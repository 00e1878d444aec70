package chunk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/portfolio-chat/internal/core/knowledge"
)

func sampleKnowledgeBase() *knowledge.KnowledgeBase {
	return &knowledge.KnowledgeBase{
		Profile: knowledge.Profile{
			Name:     "Test Person",
			Summary:  "founding product manager",
			Location: "Bengaluru, India",
			Education: []knowledge.Education{
				{Degree: "B.Tech", Institution: "IIT Kharagpur"},
				{Degree: "YIF", Institution: "Ashoka University"},
			},
		},
		Experiences: []knowledge.Experience{{
			ID:               "facets",
			Role:             "Founding Product Manager",
			Company:          "Facets.cloud",
			Type:             "full-time",
			StartDate:        "2021",
			EndDate:          "2023",
			Description:      "Built the platform.",
			Responsibilities: []string{"roadmap", "discovery"},
			Achievements:     []string{"launched v1"},
			Technologies:     []string{"Kubernetes", "Terraform"},
			Impact:           []knowledge.Impact{{Metric: "customers", Value: "20+"}},
		}},
		Projects: []knowledge.Project{{
			ID:           "climate",
			Name:         "Climate Tracker",
			Type:         "side-project",
			Status:       "live",
			Description:  "Tracks emissions.",
			Technologies: []string{"React"},
			Role:         "Builder",
		}},
		Achievements: []knowledge.Achievement{{
			ID:          "fellow",
			Title:       "Innovation Fellow",
			Type:        "fellowship",
			Description: "Selected to lead grassroots innovation.",
			Metrics:     knowledge.Metrics{{Key: "selected", Value: "1 of 6"}, {Key: "policy", Value: "first"}},
		}},
		Strengths: []knowledge.Strength{{
			Category: "Product Strategy",
			Items:    []string{"0 to 1", "GTM"},
		}},
	}
}

func TestBuild_OneChunkPerRecordPlusProfile(t *testing.T) {
	chunks := Build(sampleKnowledgeBase())

	require.Len(t, chunks, 5)
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{
		"profile-summary",
		"exp-facets",
		"proj-climate",
		"ach-fellow",
		"strength-product-strategy",
	}, ids)
}

func TestBuild_ContentFormat(t *testing.T) {
	chunks := Build(sampleKnowledgeBase())

	assert.Equal(t,
		"Test Person is a founding product manager. Based in Bengaluru, India. Education: B.Tech from IIT Kharagpur, YIF from Ashoka University.",
		chunks[0].Content)
	assert.Equal(t,
		"Founding Product Manager at Facets.cloud (2021 - 2023). Built the platform.\n\n"+
			"Responsibilities: roadmap, discovery\n\n"+
			"Achievements: launched v1\n\n"+
			"Technologies: Kubernetes, Terraform\n\n"+
			"Impact: customers: 20+",
		chunks[1].Content)
	assert.Equal(t, "Climate Tracker (live). Tracks emissions.\n\nTechnologies: React\n\nRole: Builder", chunks[2].Content)
	assert.Equal(t, "Innovation Fellow: Selected to lead grassroots innovation.\n\nMetrics: selected: 1 of 6, policy: first", chunks[3].Content)
	assert.Equal(t, "Product Strategy: 0 to 1, GTM", chunks[4].Content)
}

func TestBuild_MetadataVariants(t *testing.T) {
	chunks := Build(sampleKnowledgeBase())

	exp := chunks[1].Metadata
	assert.Equal(t, TypeExperience, exp.Type)
	assert.Equal(t, "facets", exp.SourceID)
	assert.Equal(t, "Facets.cloud", exp.Company())
	assert.Equal(t, []string{"experience", "full-time", "Kubernetes", "Terraform"}, exp.Tags)
	assert.Nil(t, exp.Project)

	proj := chunks[2].Metadata
	assert.Equal(t, "Climate Tracker", proj.Name())
	assert.Equal(t, "", proj.Company())

	strength := chunks[4].Metadata
	assert.Equal(t, "Product Strategy", strength.SourceID)
	assert.Equal(t, []string{"strength", "product strategy"}, strength.Tags)
}

func TestBuild_Deterministic(t *testing.T) {
	kb := sampleKnowledgeBase()

	first := Build(kb)
	second := Build(kb)

	assert.Equal(t, first, second)
}

func TestMetadata_JSONKeepsVariant(t *testing.T) {
	chunks := Build(sampleKnowledgeBase())

	data, err := json.Marshal(chunks[1].Metadata)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "experience",
		"sourceId": "facets",
		"tags": ["experience", "full-time", "Kubernetes", "Terraform"],
		"company": "Facets.cloud",
		"role": "Founding Product Manager"
	}`, string(data))

	var decoded Metadata
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, chunks[1].Metadata, decoded)
}

func TestMetadata_UnmarshalRejectsUnknownType(t *testing.T) {
	var m Metadata
	assert.Error(t, json.Unmarshal([]byte(`{"type":"blog"}`), &m))
}

func TestMetadata_Identifier(t *testing.T) {
	assert.Equal(t, "facets", Metadata{SourceID: "facets"}.Identifier())
	assert.Equal(t, "Widget", Metadata{Type: TypeProject, Project: &ProjectFields{Name: "Widget"}}.Identifier())
	assert.Equal(t, "", Metadata{Type: TypeAchievement}.Identifier())
}

func TestBuild_ValidKnowledgeBaseYieldsUniqueIDs(t *testing.T) {
	kb := sampleKnowledgeBase()
	kb.Strengths = append(kb.Strengths, knowledge.Strength{Category: "Cloud Infrastructure", Items: []string{"Kubernetes"}})
	require.NoError(t, kb.Validate())

	seen := make(map[string]bool)
	for _, c := range Build(kb) {
		assert.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true
	}

	kb.Strengths = append(kb.Strengths, knowledge.Strength{Category: "Cloud  Infrastructure", Items: []string{"Terraform"}})
	assert.ErrorIs(t, kb.Validate(), knowledge.ErrInvalidKnowledgeBase)
	assert.Equal(t, StrengthID("Cloud Infrastructure"), StrengthID("Cloud  Infrastructure"))
}
