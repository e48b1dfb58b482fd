package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/worklens/internal/domain"
)

// WorkspaceRepository handles database operations for workspaces and their
// resource membership.
type WorkspaceRepository struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository creates a new WorkspaceRepository.
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// Create inserts a new workspace for the given user within a transaction.
func (r *WorkspaceRepository) Create(ctx context.Context, tx pgx.Tx, userID string) (*domain.Workspace, error) {
	query, args, err := psql.
		Insert("workspaces").
		Columns("user_id", "status").
		Values(userID, domain.WorkspaceStatusActive).
		Suffix("RETURNING id, user_id, status, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for workspace: %w", err)
	}

	var workspace domain.Workspace
	err = tx.QueryRow(ctx, query, args...).Scan(
		&workspace.ID,
		&workspace.UserID,
		&workspace.Status,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	return &workspace, nil
}

// GetByID retrieves a workspace by ID.
func (r *WorkspaceRepository) GetByID(ctx context.Context, workspaceID string) (*domain.Workspace, error) {
	query, args, err := psql.
		Select("id", "user_id", "status", "created_at", "updated_at").
		From("workspaces").
		Where(sq.Eq{"id": workspaceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for workspace %s: %w", workspaceID, err)
	}

	var workspace domain.Workspace
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&workspace.ID,
		&workspace.UserID,
		&workspace.Status,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("query workspace: %w", err)
	}

	return &workspace, nil
}

// GetOwnerID returns the owner of a workspace without loading the full row.
func (r *WorkspaceRepository) GetOwnerID(ctx context.Context, workspaceID string) (string, error) {
	query, args, err := psql.
		Select("user_id").
		From("workspaces").
		Where(sq.Eq{"id": workspaceID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build GetOwnerID query for workspace %s: %w", workspaceID, err)
	}

	var userID string
	err = r.pool.QueryRow(ctx, query, args...).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrWorkspaceNotFound
		}
		return "", fmt.Errorf("query workspace owner: %w", err)
	}

	return userID, nil
}

// workspaceResourceColumns joins the membership row with the resource
// projection used for task payloads and fallback results.
var workspaceResourceColumns = []string{
	"wr.workspace_id", "wr.resource_id", "wr.metadata", "wr.created_at",
	"r.id", "r.type", "r.title", "r.abstract", "r.ai_summary", "r.content",
	"r.source_url", "r.tags", "r.primary_category", "r.authors", "r.published_at",
}

// ListResources retrieves the workspace's current members with their resource
// snapshots, in insertion order.
func (r *WorkspaceRepository) ListResources(ctx context.Context, workspaceID string) ([]*domain.WorkspaceResource, error) {
	query, args, err := psql.
		Select(workspaceResourceColumns...).
		From("workspace_resources wr").
		Join("resources r ON r.id = wr.resource_id").
		Where(sq.Eq{"wr.workspace_id": workspaceID}).
		OrderBy("wr.created_at ASC", "wr.resource_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ListResources query for workspace %s: %w", workspaceID, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workspace resources: %w", err)
	}
	defer rows.Close()

	var members []*domain.WorkspaceResource
	for rows.Next() {
		member, err := scanWorkspaceResource(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return members, nil
}

func scanWorkspaceResource(row pgx.Row) (*domain.WorkspaceResource, error) {
	var member domain.WorkspaceResource
	var metadataJSON []byte

	err := row.Scan(
		&member.WorkspaceID,
		&member.ResourceID,
		&metadataJSON,
		&member.AddedAt,
		&member.Resource.ID,
		&member.Resource.Type,
		&member.Resource.Title,
		&member.Resource.Abstract,
		&member.Resource.AISummary,
		&member.Resource.Content,
		&member.Resource.SourceURL,
		&member.Resource.Tags,
		&member.Resource.PrimaryCategory,
		&member.Resource.Authors,
		&member.Resource.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan workspace resource: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &member.Metadata); err != nil {
			return nil, fmt.Errorf("parse resource metadata: %w", err)
		}
	}

	return &member, nil
}

// CountResources returns the current membership size of a workspace.
func (r *WorkspaceRepository) CountResources(ctx context.Context, tx pgx.Tx, workspaceID string) (int, error) {
	query, args, err := psql.
		Select("COUNT(*)").
		From("workspace_resources").
		Where(sq.Eq{"workspace_id": workspaceID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build CountResources query for workspace %s: %w", workspaceID, err)
	}

	var count int
	if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count workspace resources: %w", err)
	}

	return count, nil
}

// FilterExistingResources returns the subset of ids that exist in the
// resources projection.
func (r *WorkspaceRepository) FilterExistingResources(ctx context.Context, resourceIDs []string) ([]string, error) {
	if len(resourceIDs) == 0 {
		return []string{}, nil
	}

	query, args, err := psql.
		Select("id").
		From("resources").
		Where(sq.Eq{"id": resourceIDs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FilterExistingResources query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan resource id: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return found, nil
}

// AddResources inserts membership rows, skipping pairs that already exist.
func (r *WorkspaceRepository) AddResources(ctx context.Context, tx pgx.Tx, workspaceID string, resourceIDs []string) error {
	if len(resourceIDs) == 0 {
		return nil
	}

	builder := psql.
		Insert("workspace_resources").
		Columns("workspace_id", "resource_id")
	for _, resourceID := range resourceIDs {
		builder = builder.Values(workspaceID, resourceID)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (workspace_id, resource_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build AddResources query for workspace %s: %w", workspaceID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("add workspace resources: %w", err)
	}

	return nil
}

// RemoveResources deletes membership rows.
func (r *WorkspaceRepository) RemoveResources(ctx context.Context, tx pgx.Tx, workspaceID string, resourceIDs []string) error {
	if len(resourceIDs) == 0 {
		return nil
	}

	query, args, err := psql.
		Delete("workspace_resources").
		Where(sq.Eq{
			"workspace_id": workspaceID,
			"resource_id":  resourceIDs,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build RemoveResources query for workspace %s: %w", workspaceID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("remove workspace resources: %w", err)
	}

	return nil
}

// Touch bumps the workspace's updated_at timestamp.
func (r *WorkspaceRepository) Touch(ctx context.Context, tx pgx.Tx, workspaceID string) error {
	query, args, err := psql.
		Update("workspaces").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": workspaceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Touch query for workspace %s: %w", workspaceID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("touch workspace: %w", err)
	}

	return nil
}
