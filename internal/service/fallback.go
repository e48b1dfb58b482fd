package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/mtlprog/worklens/internal/domain"
)

// BuildFallbackResult synthesizes a degraded, locally-computed task result
// from the selected resource snapshots. It is used when the AI service cannot
// be reached, so task creation still completes with something useful.
func BuildFallbackResult(
	resources []*domain.WorkspaceResource,
	params CreateTaskParams,
	resourceIDs []string,
	reason string,
) (*domain.TaskResult, map[string]any) {
	titles := make([]string, 0, len(resources))
	blocks := make([]string, 0, len(resources))

	for i, member := range resources {
		res := member.Resource
		title := res.Title
		if title == "" {
			title = fmt.Sprintf("Resource %d", i+1)
		}
		resType := res.Type
		if resType == "" {
			resType = "unknown"
		}

		titles = append(titles, fmt.Sprintf("%d. %s (%s)", i+1, title, resType))

		lines := []string{fmt.Sprintf("- Type: %s", resType)}
		if res.PrimaryCategory != nil && *res.PrimaryCategory != "" {
			lines = append(lines, fmt.Sprintf("- Category: %s", *res.PrimaryCategory))
		}
		lines = append(lines, fmt.Sprintf("- Summary: %s", res.BestSummary()))

		blocks = append(blocks, fmt.Sprintf("### %s\n%s", title, strings.Join(lines, "\n")))
	}

	question := params.Question
	if question == "" {
		question = "No additional question provided."
	}

	result := &domain.TaskResult{
		Summary: fmt.Sprintf(
			"Analyzed %d resources. This overview was generated locally because the AI service was unavailable; model-level insights may be missing.",
			len(resources),
		),
		Sections: []domain.ResultSection{
			{Title: "Resource overview", Content: strings.Join(titles, "\n")},
			{Title: "User question", Content: question},
			{Title: "Details", Content: strings.Join(blocks, "\n\n")},
		},
	}

	metadata := map[string]any{
		"model":          params.Model,
		"generatedAt":    time.Now().UTC().Format(time.RFC3339),
		"resourceIds":    resourceIDs,
		"templateId":     params.TemplateID,
		"fallback":       true,
		"fallbackReason": reason,
	}

	return result, metadata
}
