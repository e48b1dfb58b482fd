package service_test

import (
	"testing"

	"github.com/mtlprog/worklens/internal/domain"
	"github.com/mtlprog/worklens/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotMember(id, title string, aiSummary, abstract *string) *domain.WorkspaceResource {
	return &domain.WorkspaceResource{
		ResourceID: id,
		Resource: domain.ResourceSnapshot{
			ID:        id,
			Type:      "paper",
			Title:     title,
			AISummary: aiSummary,
			Abstract:  abstract,
		},
	}
}

func strPtr(s string) *string { return &s }

func TestBuildFallbackResult_OneEntryPerResource(t *testing.T) {
	resources := []*domain.WorkspaceResource{
		snapshotMember("r1", "First", strPtr("ai summary one"), nil),
		snapshotMember("r2", "Second", nil, strPtr("abstract two")),
		snapshotMember("r3", "Third", nil, nil),
	}
	params := service.CreateTaskParams{
		TemplateID: "comparison",
		Model:      "grok",
		Question:   "How do these compare?",
	}

	result, metadata := service.BuildFallbackResult(resources, params, []string{"r1", "r2", "r3"}, "timeout")

	require.NotNil(t, result)
	assert.Contains(t, result.Summary, "3 resources")
	require.Len(t, result.Sections, 3)

	overview := result.Sections[0]
	assert.Equal(t, "Resource overview", overview.Title)
	assert.Contains(t, overview.Content, "1. First (paper)")
	assert.Contains(t, overview.Content, "2. Second (paper)")
	assert.Contains(t, overview.Content, "3. Third (paper)")

	question := result.Sections[1]
	assert.Equal(t, "User question", question.Title)
	assert.Equal(t, "How do these compare?", question.Content)

	details := result.Sections[2]
	assert.Contains(t, details.Content, "### First")
	assert.Contains(t, details.Content, "ai summary one")
	assert.Contains(t, details.Content, "abstract two")
	assert.Contains(t, details.Content, "no summary available")

	assert.Equal(t, true, metadata["fallback"])
	assert.Equal(t, "timeout", metadata["fallbackReason"])
	assert.Equal(t, "comparison", metadata["templateId"])
	assert.Equal(t, "grok", metadata["model"])
	assert.Equal(t, []string{"r1", "r2", "r3"}, metadata["resourceIds"])
}

func TestBuildFallbackResult_PlaceholderQuestion(t *testing.T) {
	resources := []*domain.WorkspaceResource{
		snapshotMember("r1", "First", nil, nil),
		snapshotMember("r2", "Second", nil, nil),
	}

	result, _ := service.BuildFallbackResult(resources, service.CreateTaskParams{}, []string{"r1", "r2"}, "boom")

	assert.Equal(t, "No additional question provided.", result.Sections[1].Content)
}

func TestBuildFallbackResult_PrefersAISummaryOverAbstract(t *testing.T) {
	resources := []*domain.WorkspaceResource{
		snapshotMember("r1", "Both", strPtr("from ai"), strPtr("from abstract")),
		snapshotMember("r2", "Other", nil, nil),
	}

	result, _ := service.BuildFallbackResult(resources, service.CreateTaskParams{}, []string{"r1", "r2"}, "x")

	assert.Contains(t, result.Sections[2].Content, "from ai")
	assert.NotContains(t, result.Sections[2].Content, "from abstract")
}
