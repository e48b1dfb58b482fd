package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/worklens/internal/domain"
	"github.com/mtlprog/worklens/internal/repository"
)

// WorkspaceDetail is a workspace with its resource membership and task
// history loaded.
type WorkspaceDetail struct {
	Workspace *domain.Workspace
	Resources []*domain.WorkspaceResource
	Tasks     []*domain.WorkspaceTask
}

// WorkspaceService owns workspace CRUD and the store-side membership
// invariant: a workspace never holds fewer than two resources.
type WorkspaceService struct {
	pool          *pgxpool.Pool
	workspaceRepo *repository.WorkspaceRepository
	taskRepo      *repository.TaskRepository
	templateRepo  *repository.TemplateRepository
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(
	pool *pgxpool.Pool,
	workspaceRepo *repository.WorkspaceRepository,
	taskRepo *repository.TaskRepository,
	templateRepo *repository.TemplateRepository,
) *WorkspaceService {
	return &WorkspaceService{
		pool:          pool,
		workspaceRepo: workspaceRepo,
		taskRepo:      taskRepo,
		templateRepo:  templateRepo,
	}
}

// validateResourceIDs de-duplicates the ids and verifies they all exist in
// the resources projection.
func (s *WorkspaceService) validateResourceIDs(ctx context.Context, resourceIDs []string) ([]string, error) {
	ids := uniqueIDs(resourceIDs)
	if len(ids) == 0 {
		return ids, nil
	}

	existing, err := s.workspaceRepo.FilterExistingResources(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(existing) != len(ids) {
		return nil, domain.ErrResourceNotFound
	}

	return ids, nil
}

// CreateWorkspace creates a workspace owned by the user with the given
// initial members. Fewer than two valid resources is rejected.
func (s *WorkspaceService) CreateWorkspace(
	ctx context.Context,
	userID string,
	resourceIDs []string,
) (*WorkspaceDetail, error) {
	ids, err := s.validateResourceIDs(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) < domain.MinWorkspaceResources {
		return nil, domain.ErrInsufficientResources
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	workspace, err := s.workspaceRepo.Create(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.workspaceRepo.AddResources(ctx, tx, workspace.ID, ids); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("workspace created",
		"workspace_id", workspace.ID,
		"user_id", userID,
		"resource_count", len(ids),
	)

	return s.loadDetail(ctx, workspace)
}

// GetWorkspace returns a workspace with resources and tasks after an
// ownership check.
func (s *WorkspaceService) GetWorkspace(
	ctx context.Context,
	userID string,
	workspaceID string,
) (*WorkspaceDetail, error) {
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !workspace.IsOwnedBy(userID) {
		return nil, domain.ErrForbidden
	}

	return s.loadDetail(ctx, workspace)
}

// EnsureOwnership verifies the user owns the workspace.
func (s *WorkspaceService) EnsureOwnership(ctx context.Context, workspaceID, userID string) error {
	ownerID, err := s.workspaceRepo.GetOwnerID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ownerID != userID {
		return domain.ErrForbidden
	}
	return nil
}

// UpdateResources adds and removes workspace members transactionally.
// Removal refuses to drop membership below the minimum.
func (s *WorkspaceService) UpdateResources(
	ctx context.Context,
	userID string,
	workspaceID string,
	addResourceIDs []string,
	removeResourceIDs []string,
) (*WorkspaceDetail, error) {
	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !workspace.IsOwnedBy(userID) {
		return nil, domain.ErrForbidden
	}

	addIDs, err := s.validateResourceIDs(ctx, addResourceIDs)
	if err != nil {
		return nil, err
	}
	removeIDs := uniqueIDs(removeResourceIDs)

	if len(addIDs) == 0 && len(removeIDs) == 0 {
		return nil, domain.ErrEmptyResourceUpdate
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.workspaceRepo.AddResources(ctx, tx, workspaceID, addIDs); err != nil {
		return nil, err
	}
	if err := s.workspaceRepo.RemoveResources(ctx, tx, workspaceID, removeIDs); err != nil {
		return nil, err
	}

	count, err := s.workspaceRepo.CountResources(ctx, tx, workspaceID)
	if err != nil {
		return nil, err
	}
	if count < domain.MinWorkspaceResources {
		return nil, domain.ErrInsufficientResources
	}

	if err := s.workspaceRepo.Touch(ctx, tx, workspaceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("workspace resources updated",
		"workspace_id", workspaceID,
		"added", len(addIDs),
		"removed", len(removeIDs),
	)

	return s.GetWorkspace(ctx, userID, workspaceID)
}

// ListTemplates returns available report templates, optionally by category.
func (s *WorkspaceService) ListTemplates(ctx context.Context, category string) ([]*domain.ReportTemplate, error) {
	return s.templateRepo.List(ctx, category)
}

func (s *WorkspaceService) loadDetail(ctx context.Context, workspace *domain.Workspace) (*WorkspaceDetail, error) {
	resources, err := s.workspaceRepo.ListResources(ctx, workspace.ID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByWorkspace(ctx, workspace.ID)
	if err != nil {
		return nil, err
	}

	return &WorkspaceDetail{
		Workspace: workspace,
		Resources: resources,
		Tasks:     tasks,
	}, nil
}
