package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"noun-crm/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
)

// CategoryRepository stores the menu sections of each business line
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	// List orders categories by business line, then name
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

const categoryColumns = `id, name, kind, description, created_at`

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	c := &domain.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.Description, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		category.ID, category.Name, category.Kind, category.Description, category.CreatedAt,
	)
	if isUniqueViolation(err, "categories_name_key") {
		return ErrCategoryAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category: %w", err)
	}
	return c, nil
}
