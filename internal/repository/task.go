package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/worklens/internal/domain"
)

// taskColumns is the shared list of columns for workspace task queries.
var taskColumns = []string{
	"id", "workspace_id", "template_id", "model", "status", "external_task_id",
	"queue_position", "estimated_time", "parameters", "result", "error",
	"metadata", "started_at", "finished_at", "created_at", "updated_at",
}

// TaskRepository handles database operations for workspace tasks.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a WorkspaceTask struct.
func scanTask(row pgx.Row) (*domain.WorkspaceTask, error) {
	var task domain.WorkspaceTask
	var parametersJSON, resultJSON, metadataJSON []byte

	err := row.Scan(
		&task.ID,
		&task.WorkspaceID,
		&task.TemplateID,
		&task.Model,
		&task.Status,
		&task.ExternalTaskID,
		&task.QueuePosition,
		&task.EstimatedTime,
		&parametersJSON,
		&resultJSON,
		&task.Error,
		&metadataJSON,
		&task.StartedAt,
		&task.FinishedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if len(parametersJSON) > 0 {
		if err := json.Unmarshal(parametersJSON, &task.Parameters); err != nil {
			return nil, fmt.Errorf("parse task parameters: %w", err)
		}
	}
	if len(resultJSON) > 0 {
		var result domain.TaskResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return nil, fmt.Errorf("parse task result: %w", err)
		}
		task.Result = &result
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &task.Metadata); err != nil {
			return nil, fmt.Errorf("parse task metadata: %w", err)
		}
	}

	return &task, nil
}

// scanTasks scans multiple rows into a slice of WorkspaceTask structs.
func scanTasks(rows pgx.Rows) ([]*domain.WorkspaceTask, error) {
	defer rows.Close()

	var tasks []*domain.WorkspaceTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// Create inserts a new PENDING task with its parameters frozen.
// Returns the created task with ID, CreatedAt, and UpdatedAt populated.
func (r *TaskRepository) Create(ctx context.Context, task *domain.WorkspaceTask) (*domain.WorkspaceTask, error) {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if task.Metadata == nil {
		task.Metadata = map[string]any{}
	}

	parametersJSON, err := json.Marshal(task.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal task parameters: %w", err)
	}
	metadataJSON, err := json.Marshal(task.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal task metadata: %w", err)
	}

	query, args, err := psql.
		Insert("workspace_tasks").
		Columns("workspace_id", "template_id", "model", "status", "parameters", "metadata").
		Values(task.WorkspaceID, task.TemplateID, task.Model, task.Status, parametersJSON, metadataJSON).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.WorkspaceTask, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("workspace_tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// ListByWorkspace retrieves all tasks of a workspace, newest first.
func (r *TaskRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]*domain.WorkspaceTask, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("workspace_tasks").
		Where(sq.Eq{"workspace_id": workspaceID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListByWorkspace query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workspace tasks: %w", err)
	}

	return scanTasks(rows)
}

// MarkDispatched records a successful hand-off to the AI service: the
// external job id, the mapped status, and the service's advisory fields.
func (r *TaskRepository) MarkDispatched(
	ctx context.Context,
	taskID string,
	externalTaskID string,
	status domain.TaskStatus,
	queuePosition *int,
	estimatedTime *int,
	metadata map[string]any,
) (*domain.WorkspaceTask, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal task metadata: %w", err)
	}

	builder := psql.
		Update("workspace_tasks").
		Set("external_task_id", externalTaskID).
		Set("status", status).
		Set("queue_position", queuePosition).
		Set("estimated_time", estimatedTime).
		Set("metadata", metadataJSON).
		Set("started_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Suffix("RETURNING " + joinColumns(taskColumns))
	if status.IsTerminal() {
		builder = builder.Set("finished_at", sq.Expr("NOW()"))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build MarkDispatched query for task %s: %w", taskID, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// SyncUpdate carries the fields a status poll may change. Nil pointers for
// Result, Error, and Metadata leave the stored values untouched.
type SyncUpdate struct {
	Status        domain.TaskStatus
	QueuePosition *int
	EstimatedTime *int
	Result        *domain.TaskResult
	Error         *string
	Metadata      map[string]any
}

// ApplySync updates a task from the AI service's reported state. finished_at
// is set only when the new status is terminal; an already-set finished_at is
// preserved.
func (r *TaskRepository) ApplySync(ctx context.Context, taskID string, upd SyncUpdate) (*domain.WorkspaceTask, error) {
	builder := psql.
		Update("workspace_tasks").
		Set("status", upd.Status).
		Set("queue_position", upd.QueuePosition).
		Set("estimated_time", upd.EstimatedTime).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID})

	if upd.Result != nil {
		resultJSON, err := json.Marshal(upd.Result)
		if err != nil {
			return nil, fmt.Errorf("marshal task result: %w", err)
		}
		builder = builder.Set("result", resultJSON)
	}
	if upd.Error != nil {
		builder = builder.Set("error", *upd.Error)
	}
	if upd.Metadata != nil {
		metadataJSON, err := json.Marshal(upd.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal task metadata: %w", err)
		}
		builder = builder.Set("metadata", metadataJSON)
	}
	if upd.Status.IsTerminal() {
		builder = builder.Set("finished_at", sq.Expr("COALESCE(finished_at, NOW())"))
	}

	query, args, err := builder.
		Suffix("RETURNING " + joinColumns(taskColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ApplySync query for task %s: %w", taskID, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// MarkFallback terminates a task with a locally synthesized result. No
// external job id is recorded.
func (r *TaskRepository) MarkFallback(
	ctx context.Context,
	taskID string,
	result *domain.TaskResult,
	metadata map[string]any,
) (*domain.WorkspaceTask, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal fallback result: %w", err)
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal fallback metadata: %w", err)
	}

	query, args, err := psql.
		Update("workspace_tasks").
		Set("status", domain.TaskStatusSuccess).
		Set("result", resultJSON).
		Set("metadata", metadataJSON).
		Set("finished_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Suffix("RETURNING " + joinColumns(taskColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build MarkFallback query for task %s: %w", taskID, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// FindNeedingSync finds all dispatched tasks that have not reached a
// terminal state.
func (r *TaskRepository) FindNeedingSync(ctx context.Context) ([]*domain.WorkspaceTask, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("workspace_tasks").
		Where(sq.NotEq{"external_task_id": nil}).
		Where(sq.Eq{"status": []domain.TaskStatus{
			domain.TaskStatusPending,
			domain.TaskStatusRunning,
		}}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindNeedingSync query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks needing sync: %w", err)
	}

	return scanTasks(rows)
}

// TaskStats aggregates a workspace's task history.
type TaskStats struct {
	Total              int
	ByStatus           map[domain.TaskStatus]int
	FallbackCount      int
	AvgCompletionSecs  float64
	LastTaskCreatedAt  *time.Time
}

// GetWorkspaceStats computes task counts by status, fallback usage, and the
// average time from creation to completion.
func (r *TaskRepository) GetWorkspaceStats(ctx context.Context, workspaceID string) (*TaskStats, error) {
	query, args, err := psql.
		Select(
			"COUNT(*)",
			"COUNT(*) FILTER (WHERE status = 'PENDING')",
			"COUNT(*) FILTER (WHERE status = 'RUNNING')",
			"COUNT(*) FILTER (WHERE status = 'SUCCESS')",
			"COUNT(*) FILTER (WHERE status = 'FAILED')",
			"COUNT(*) FILTER (WHERE (metadata->>'fallback')::boolean IS TRUE)",
			"COALESCE(AVG(EXTRACT(EPOCH FROM (finished_at - created_at))) FILTER (WHERE finished_at IS NOT NULL), 0)",
			"MAX(created_at)",
		).
		From("workspace_tasks").
		Where(sq.Eq{"workspace_id": workspaceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetWorkspaceStats query: %w", err)
	}

	stats := &TaskStats{ByStatus: make(map[domain.TaskStatus]int)}
	var pending, running, success, failed int
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.Total,
		&pending,
		&running,
		&success,
		&failed,
		&stats.FallbackCount,
		&stats.AvgCompletionSecs,
		&stats.LastTaskCreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query workspace task stats: %w", err)
	}

	stats.ByStatus[domain.TaskStatusPending] = pending
	stats.ByStatus[domain.TaskStatusRunning] = running
	stats.ByStatus[domain.TaskStatusSuccess] = success
	stats.ByStatus[domain.TaskStatusFailed] = failed

	return stats, nil
}
