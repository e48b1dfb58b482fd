package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mtlprog/worklens/internal/domain"
)

// TemplateRepository handles database operations for report templates.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// GetByID retrieves a report template by ID.
func (r *TemplateRepository) GetByID(ctx context.Context, templateID string) (*domain.ReportTemplate, error) {
	query, args, err := psql.
		Select("id", "name", "category", "description", "created_at").
		From("report_templates").
		Where(sq.Eq{"id": templateID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for template %s: %w", templateID, err)
	}

	var template domain.ReportTemplate
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&template.ID,
		&template.Name,
		&template.Category,
		&template.Description,
		&template.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("query template: %w", err)
	}

	return &template, nil
}

// List retrieves all templates, optionally filtered by category.
func (r *TemplateRepository) List(ctx context.Context, category string) ([]*domain.ReportTemplate, error) {
	builder := psql.
		Select("id", "name", "category", "description", "created_at").
		From("report_templates").
		OrderBy("name ASC")
	if category != "" {
		builder = builder.Where(sq.Eq{"category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query for templates: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.ReportTemplate
	for rows.Next() {
		var template domain.ReportTemplate
		err := rows.Scan(
			&template.ID,
			&template.Name,
			&template.Category,
			&template.Description,
			&template.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, &template)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return templates, nil
}
