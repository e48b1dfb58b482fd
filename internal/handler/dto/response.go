package dto

import (
	"time"

	"github.com/mtlprog/worklens/internal/domain"
	"github.com/mtlprog/worklens/internal/repository"
)

// TaskView is the public projection of a workspace task. The full result
// payload is included only when the caller explicitly requests it; the error
// is always included when present.
type TaskView struct {
	ID             string                `json:"id"`
	WorkspaceID    string                `json:"workspace_id"`
	TemplateID     string                `json:"template_id"`
	ExternalTaskID *string               `json:"external_task_id"`
	Model          string                `json:"model"`
	Status         string                `json:"status"`
	QueuePosition  *int                  `json:"queue_position"`
	EstimatedTime  *int                  `json:"estimated_time"`
	StartedAt      *time.Time            `json:"started_at"`
	FinishedAt     *time.Time            `json:"finished_at"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	HasResult      bool                  `json:"has_result"`
	HasError       bool                  `json:"has_error"`
	Result         *domain.TaskResult    `json:"result,omitempty"`
	Error          *string               `json:"error"`
	Parameters     domain.TaskParameters `json:"parameters"`
	Metadata       map[string]any        `json:"metadata"`
}

// WorkspaceResourceView is one workspace member with its resource snapshot.
type WorkspaceResourceView struct {
	ID       string               `json:"id"`
	Metadata map[string]any       `json:"metadata"`
	AddedAt  time.Time            `json:"added_at"`
	Resource ResourceSnapshotView `json:"resource"`
}

// ResourceSnapshotView is the read-only resource projection returned to callers.
type ResourceSnapshotView struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Abstract        *string    `json:"abstract"`
	AISummary       *string    `json:"ai_summary"`
	SourceURL       *string    `json:"source_url"`
	Tags            []string   `json:"tags"`
	PrimaryCategory *string    `json:"primary_category"`
	Authors         []string   `json:"authors"`
	PublishedAt     *time.Time `json:"published_at"`
}

// WorkspaceDetailResponse represents a workspace with members and tasks.
type WorkspaceDetailResponse struct {
	ID            string                  `json:"id"`
	Status        string                  `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	ResourceCount int                     `json:"resource_count"`
	Resources     []WorkspaceResourceView `json:"resources"`
	Tasks         []TaskView              `json:"tasks"`
}

// TemplateResponse represents one report template.
type TemplateResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TemplatesResponse represents the response for GET /workspaces/templates.
type TemplatesResponse struct {
	Templates []TemplateResponse `json:"templates"`
}

// TaskStatsResponse represents workspace task statistics.
type TaskStatsResponse struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	FallbackCount     int            `json:"fallback_count"`
	AvgCompletionSecs float64        `json:"avg_completion_seconds"`
	LastTaskCreatedAt *time.Time     `json:"last_task_created_at"`
}

// ToTaskView converts a domain task to its public projection.
func ToTaskView(task *domain.WorkspaceTask, includeResult bool) TaskView {
	view := TaskView{
		ID:             task.ID,
		WorkspaceID:    task.WorkspaceID,
		TemplateID:     task.TemplateID,
		ExternalTaskID: task.ExternalTaskID,
		Model:          task.Model,
		Status:         string(task.Status),
		QueuePosition:  task.QueuePosition,
		EstimatedTime:  task.EstimatedTime,
		StartedAt:      task.StartedAt,
		FinishedAt:     task.FinishedAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
		HasResult:      task.Result != nil,
		HasError:       task.Error != nil,
		Error:          task.Error,
		Parameters:     task.Parameters,
		Metadata:       task.Metadata,
	}
	if view.Metadata == nil {
		view.Metadata = map[string]any{}
	}
	if includeResult {
		view.Result = task.Result
	}
	return view
}

// ToWorkspaceResourceView converts a workspace member to its response form.
func ToWorkspaceResourceView(member *domain.WorkspaceResource) WorkspaceResourceView {
	metadata := member.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return WorkspaceResourceView{
		ID:       member.ResourceID,
		Metadata: metadata,
		AddedAt:  member.AddedAt,
		Resource: ResourceSnapshotView{
			ID:              member.Resource.ID,
			Type:            member.Resource.Type,
			Title:           member.Resource.Title,
			Abstract:        member.Resource.Abstract,
			AISummary:       member.Resource.AISummary,
			SourceURL:       member.Resource.SourceURL,
			Tags:            member.Resource.Tags,
			PrimaryCategory: member.Resource.PrimaryCategory,
			Authors:         member.Resource.Authors,
			PublishedAt:     member.Resource.PublishedAt,
		},
	}
}

// ToWorkspaceDetailResponse assembles the workspace detail payload.
func ToWorkspaceDetailResponse(
	workspace *domain.Workspace,
	resources []*domain.WorkspaceResource,
	tasks []*domain.WorkspaceTask,
) WorkspaceDetailResponse {
	resourceViews := make([]WorkspaceResourceView, len(resources))
	for i, member := range resources {
		resourceViews[i] = ToWorkspaceResourceView(member)
	}

	taskViews := make([]TaskView, len(tasks))
	for i, task := range tasks {
		taskViews[i] = ToTaskView(task, false)
	}

	return WorkspaceDetailResponse{
		ID:            workspace.ID,
		Status:        string(workspace.Status),
		CreatedAt:     workspace.CreatedAt,
		UpdatedAt:     workspace.UpdatedAt,
		ResourceCount: len(resources),
		Resources:     resourceViews,
		Tasks:         taskViews,
	}
}

// ToTemplateResponse converts a report template to its response form.
func ToTemplateResponse(template *domain.ReportTemplate) TemplateResponse {
	return TemplateResponse{
		ID:          template.ID,
		Name:        template.Name,
		Category:    template.Category,
		Description: template.Description,
	}
}

// ToTaskStatsResponse converts aggregated task stats to the response form.
func ToTaskStatsResponse(stats *repository.TaskStats) TaskStatsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return TaskStatsResponse{
		Total:             stats.Total,
		ByStatus:          byStatus,
		FallbackCount:     stats.FallbackCount,
		AvgCompletionSecs: stats.AvgCompletionSecs,
		LastTaskCreatedAt: stats.LastTaskCreatedAt,
	}
}
