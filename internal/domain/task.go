package domain

import "time"

// TaskStatus represents the lifecycle state of a workspace task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailed  TaskStatus = "FAILED"
)

// IsTerminal returns true if the status is terminal (no transitions allowed).
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// MapExternalStatus translates the AI service's status vocabulary into
// internal statuses. Unknown or absent values map to PENDING.
func MapExternalStatus(status string) TaskStatus {
	switch status {
	case "success":
		return TaskStatusSuccess
	case "failed":
		return TaskStatusFailed
	case "running":
		return TaskStatusRunning
	default:
		return TaskStatusPending
	}
}

// TaskParameters captures the inputs of a task at creation time. The
// resource id subset is frozen and does not track later workspace
// membership changes.
type TaskParameters struct {
	ResourceIDs []string       `json:"resourceIds"`
	Question    string         `json:"question,omitempty"`
	Overrides   map[string]any `json:"overrides,omitempty"`
}

// ResultSection is one titled block of a task result.
type ResultSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TaskResult is the structured output of a completed task.
type TaskResult struct {
	Summary  string          `json:"summary"`
	Sections []ResultSection `json:"sections"`
}

// WorkspaceTask is one request to produce an AI-generated artifact over a
// workspace's resources. It is created PENDING and mutated only by the
// dispatch and status-sync paths until it reaches a terminal state.
type WorkspaceTask struct {
	ID             string
	WorkspaceID    string
	TemplateID     string
	Model          string
	Status         TaskStatus
	ExternalTaskID *string
	QueuePosition  *int
	EstimatedTime  *int
	Parameters     TaskParameters
	Result         *TaskResult
	Error          *string
	Metadata       map[string]any
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDispatched returns true if the task was handed to the AI service.
// Fallback-only tasks never carry an external id.
func (t *WorkspaceTask) IsDispatched() bool {
	return t.ExternalTaskID != nil && *t.ExternalTaskID != ""
}

// NeedsSync returns true if the task should still be polled against the
// AI service.
func (t *WorkspaceTask) NeedsSync() bool {
	return t.IsDispatched() && !t.Status.IsTerminal()
}

// IsFallback reports whether the task completed via the local degraded path.
func (t *WorkspaceTask) IsFallback() bool {
	v, ok := t.Metadata["fallback"].(bool)
	return ok && v
}
