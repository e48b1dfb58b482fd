package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/worklens/internal/aiclient"
	"github.com/mtlprog/worklens/internal/config"
	"github.com/mtlprog/worklens/internal/domain"
	"github.com/mtlprog/worklens/internal/repository"
	"github.com/mtlprog/worklens/internal/scheduler"
)

// Dispatcher is the narrow view of the AI compute service the orchestrator
// needs: submit a job, poll a job. Failures surface verbatim.
type Dispatcher interface {
	Submit(ctx context.Context, payload aiclient.SubmitPayload) (*aiclient.TaskStatus, error)
	Status(ctx context.Context, externalTaskID string) (*aiclient.TaskStatus, error)
}

// CreateTaskParams carries the caller's inputs for a new workspace task.
type CreateTaskParams struct {
	TemplateID  string
	Model       string
	ResourceIDs []string
	Question    string
	Overrides   map[string]any
}

// TaskService owns the workspace task lifecycle: validation, creation,
// dispatch with local fallback, and background status synchronization.
type TaskService struct {
	taskRepo      *repository.TaskRepository
	workspaceRepo *repository.WorkspaceRepository
	templateRepo  *repository.TemplateRepository
	ai            Dispatcher
	sched         *scheduler.Scheduler
	initialDelay  time.Duration
}

// NewTaskService creates a TaskService and starts its sync scheduler.
// Call Close to stop background polling.
func NewTaskService(
	taskRepo *repository.TaskRepository,
	workspaceRepo *repository.WorkspaceRepository,
	templateRepo *repository.TemplateRepository,
	ai Dispatcher,
) *TaskService {
	s := &TaskService{
		taskRepo:      taskRepo,
		workspaceRepo: workspaceRepo,
		templateRepo:  templateRepo,
		ai:            ai,
		initialDelay:  config.InitialSyncDelay,
	}
	s.sched = scheduler.New(s.handleSyncTick)
	return s
}

// Close stops the background sync scheduler and waits for in-flight polls.
func (s *TaskService) Close() {
	s.sched.Close()
}

// HasScheduledSync reports whether a background poll is queued for the task.
func (s *TaskService) HasScheduledSync(taskID string) bool {
	return s.sched.Pending(taskID)
}

// ensureOwnership verifies the user owns the workspace.
func (s *TaskService) ensureOwnership(ctx context.Context, workspaceID, userID string) error {
	ownerID, err := s.workspaceRepo.GetOwnerID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return domain.ErrForbidden
	}
	return nil
}

// CreateTask validates the request, persists a PENDING task with frozen
// parameters, and attempts dispatch to the AI service. A dispatch failure
// never fails the call: the task is completed with a locally synthesized
// fallback result instead.
func (s *TaskService) CreateTask(
	ctx context.Context,
	userID string,
	workspaceID string,
	params CreateTaskParams,
) (*domain.WorkspaceTask, error) {
	if err := s.ensureOwnership(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	if _, err := s.templateRepo.GetByID(ctx, params.TemplateID); err != nil {
		return nil, err
	}

	members, err := s.workspaceRepo.ListResources(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list workspace resources: %w", err)
	}

	selected, selectedIDs, err := SelectResources(members, params.ResourceIDs)
	if err != nil {
		return nil, err
	}

	task, err := s.taskRepo.Create(ctx, &domain.WorkspaceTask{
		WorkspaceID: workspaceID,
		TemplateID:  params.TemplateID,
		Model:       params.Model,
		Status:      domain.TaskStatusPending,
		Parameters: domain.TaskParameters{
			ResourceIDs: selectedIDs,
			Question:    params.Question,
			Overrides:   params.Overrides,
		},
	})
	if err != nil {
		return nil, err
	}

	task = s.dispatchTask(ctx, task, params, selected, selectedIDs)

	if task.NeedsSync() {
		s.sched.Schedule(task.ID, s.initialDelay)
	}

	slog.Info("workspace task created",
		"task_id", task.ID,
		"workspace_id", workspaceID,
		"template_id", params.TemplateID,
		"status", task.Status,
		"fallback", task.IsFallback(),
	)

	return task, nil
}

// dispatchTask submits the job to the AI service, recording either the
// external job id or a fallback terminal result.
func (s *TaskService) dispatchTask(
	ctx context.Context,
	task *domain.WorkspaceTask,
	params CreateTaskParams,
	selected []*domain.WorkspaceResource,
	selectedIDs []string,
) *domain.WorkspaceTask {
	payload := aiclient.SubmitPayload{
		WorkspaceID: task.WorkspaceID,
		TemplateID:  params.TemplateID,
		Model:       params.Model,
		Resources:   buildResourcePayload(selected),
		Question:    params.Question,
		Overrides:   params.Overrides,
		ResourceIDs: selectedIDs,
	}

	submitted, err := s.ai.Submit(ctx, payload)
	if err != nil {
		slog.Error("failed to enqueue AI workspace task",
			"task_id", task.ID,
			"workspace_id", task.WorkspaceID,
			"template_id", params.TemplateID,
			"error", err,
		)
		return s.completeWithFallback(ctx, task, params, selected, selectedIDs, err)
	}

	updated, err := s.taskRepo.MarkDispatched(
		ctx,
		task.ID,
		submitted.ID,
		domain.MapExternalStatus(submitted.Status),
		submitted.QueuePosition,
		submitted.EstimatedTime,
		submitted.Metadata,
	)
	if err != nil {
		// The job is accepted upstream but we could not record it; fall back
		// so the caller still gets a terminal result.
		slog.Error("failed to record dispatched task",
			"task_id", task.ID,
			"external_task_id", submitted.ID,
			"error", err,
		)
		return s.completeWithFallback(ctx, task, params, selected, selectedIDs, err)
	}

	return updated
}

func (s *TaskService) completeWithFallback(
	ctx context.Context,
	task *domain.WorkspaceTask,
	params CreateTaskParams,
	selected []*domain.WorkspaceResource,
	selectedIDs []string,
	cause error,
) *domain.WorkspaceTask {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	slog.Warn("falling back to local workspace aggregation",
		"task_id", task.ID,
		"reason", reason,
	)

	result, metadata := BuildFallbackResult(selected, params, selectedIDs, reason)

	updated, err := s.taskRepo.MarkFallback(ctx, task.ID, result, metadata)
	if err != nil {
		slog.Error("failed to persist fallback result", "task_id", task.ID, "error", err)
		// Return the in-memory view so the caller still sees the degraded result.
		now := time.Now()
		task.Status = domain.TaskStatusSuccess
		task.Result = result
		task.Metadata = metadata
		task.FinishedAt = &now
		return task
	}

	return updated
}

func buildResourcePayload(selected []*domain.WorkspaceResource) []aiclient.ResourcePayload {
	payload := make([]aiclient.ResourcePayload, len(selected))
	for i, member := range selected {
		metadata := member.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		payload[i] = aiclient.ResourcePayload{
			ID:       member.ResourceID,
			Metadata: metadata,
			Resource: aiclient.ResourceFields{
				ID:              member.Resource.ID,
				Type:            member.Resource.Type,
				Title:           member.Resource.Title,
				Abstract:        member.Resource.Abstract,
				AISummary:       member.Resource.AISummary,
				Content:         member.Resource.Content,
				SourceURL:       member.Resource.SourceURL,
				Tags:            member.Resource.Tags,
				PrimaryCategory: member.Resource.PrimaryCategory,
				Authors:         member.Resource.Authors,
				PublishedAt:     member.Resource.PublishedAt,
			},
		}
	}
	return payload
}

// GetTask returns a task after an on-demand sync pass, so manual polling
// always sees the freshest available state.
func (s *TaskService) GetTask(
	ctx context.Context,
	userID string,
	workspaceID string,
	taskID string,
) (*domain.WorkspaceTask, error) {
	if err := s.ensureOwnership(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.WorkspaceID != workspaceID {
		return nil, domain.ErrTaskNotFound
	}

	if task.NeedsSync() {
		updated, err := s.syncTaskStatus(ctx, task)
		if err != nil {
			slog.Warn("on-demand task sync failed",
				"task_id", task.ID,
				"external_task_id", *task.ExternalTaskID,
				"error", err,
			)
		} else {
			task = updated
		}
	}

	return task, nil
}

// syncTaskStatus performs a single poll against the AI service. On poll
// failure it returns the task unchanged along with the error: a failed poll
// must never alter persisted state. Only the AI service's own reported
// terminal status terminates a task.
func (s *TaskService) syncTaskStatus(
	ctx context.Context,
	task *domain.WorkspaceTask,
) (*domain.WorkspaceTask, error) {
	if !task.IsDispatched() {
		return task, nil
	}

	status, err := s.ai.Status(ctx, *task.ExternalTaskID)
	if err != nil {
		return task, err
	}

	updated, err := s.taskRepo.ApplySync(ctx, task.ID, repository.SyncUpdate{
		Status:        domain.MapExternalStatus(status.Status),
		QueuePosition: status.QueuePosition,
		EstimatedTime: status.EstimatedTime,
		Result:        status.Result,
		Error:         status.Error,
		Metadata:      status.Metadata,
	})
	if err != nil {
		return task, fmt.Errorf("apply sync update: %w", err)
	}

	return updated, nil
}

// handleSyncTick is the scheduler callback driving background status
// synchronization with exponential backoff.
func (s *TaskService) handleSyncTick(ctx context.Context, taskID string, firedDelay time.Duration) {
	nextDelay := NextSyncDelay(firedDelay)

	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return
		}
		slog.Warn("background sync could not load task", "task_id", taskID, "error", err)
		s.sched.Schedule(taskID, nextDelay)
		return
	}

	if !task.NeedsSync() {
		return
	}

	updated, err := s.syncTaskStatus(ctx, task)
	if err != nil {
		// Retry without state change: defer to the next poll attempt.
		slog.Warn("background task sync failed",
			"task_id", taskID,
			"external_task_id", *task.ExternalTaskID,
			"next_delay", nextDelay,
			"error", err,
		)
		s.sched.Schedule(taskID, nextDelay)
		return
	}

	if updated.NeedsSync() {
		s.sched.Schedule(taskID, nextDelay)
		return
	}

	slog.Info("workspace task reached terminal state",
		"task_id", taskID,
		"status", updated.Status,
	)
}

// SyncPendingTasks performs one synchronous sync pass over every dispatched
// non-terminal task. Returns the number of tasks successfully synced, and an
// error if any tasks failed.
func (s *TaskService) SyncPendingTasks(ctx context.Context) (int, error) {
	tasks, err := s.taskRepo.FindNeedingSync(ctx)
	if err != nil {
		return 0, fmt.Errorf("find tasks needing sync: %w", err)
	}

	if len(tasks) == 0 {
		slog.Info("no tasks need syncing")
		return 0, nil
	}

	count := 0
	var errs []error
	for _, task := range tasks {
		if _, err := s.syncTaskStatus(ctx, task); err != nil {
			slog.Error("failed to sync task",
				"task_id", task.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		count++
	}

	slog.Info("synced pending tasks",
		"total", len(tasks),
		"successful", count,
		"failed", len(errs),
	)

	if len(errs) > 0 {
		return count, fmt.Errorf("synced %d/%d tasks, %d failures: %v",
			count, len(tasks), len(errs), errs)
	}

	return count, nil
}

// GetWorkspaceTaskStats aggregates the workspace's task history.
func (s *TaskService) GetWorkspaceTaskStats(
	ctx context.Context,
	userID string,
	workspaceID string,
) (*repository.TaskStats, error) {
	if err := s.ensureOwnership(ctx, workspaceID, userID); err != nil {
		return nil, err
	}

	return s.taskRepo.GetWorkspaceStats(ctx, workspaceID)
}
