package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"noun-crm/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows product listings; zero values mean no filter
type ProductFilter struct {
	Kind       domain.CategoryKind
	CategoryID *uuid.UUID
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// FindByIDForUpdate locks the product row until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)
}

const productColumns = `id, name, description, price, cost_price, kind, category_id, image_url, stock, min_stock, created_at, updated_at`

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CostPrice,
		&product.Kind,
		&product.CategoryID,
		&product.ImageURL,
		&product.Stock,
		&product.MinStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CostPrice,
		product.Kind,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.MinStock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of a product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, cost_price = $5, kind = $6,
		    category_id = $7, image_url = $8, stock = $9, min_stock = $10, updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CostPrice,
		product.Kind,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.MinStock,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findOne(ctx, id, "")
}

// FindByIDForUpdate reads a product under a row lock
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findOne(ctx, id, " FOR UPDATE")
}

func (r *productRepository) findOne(ctx context.Context, id uuid.UUID, lock string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`+lock, id)
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return product, nil
}

// UpdateStock sets the stock count of a product
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	query := `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, stock)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}

	return expectOneRow(result, ErrProductNotFound)
}

// productSortColumns whitelists the ORDER BY columns callers may pick
var productSortColumns = map[string]bool{
	"name":       true,
	"price":      true,
	"stock":      true,
	"created_at": true,
}

// whereBuilder collects AND-ed conditions with positional placeholders
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add appends cond; each "?" in cond is bound to arg
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}

// page runs a count and a page query over the same conditions
func (r *productRepository) page(ctx context.Context, where *whereBuilder, orderBy string, page, pageSize int) ([]*domain.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where.clause(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	n := len(where.args)
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, where.clause(), orderBy, n+1, n+2)
	args := append(where.args[:n:n], pageSize, (page-1)*pageSize)

	products, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// List filters by business line and category. Unknown sort fields fall back
// to newest first.
func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	if !productSortColumns[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	where := &whereBuilder{}
	if filter.Kind != "" {
		where.add("kind = ?", filter.Kind)
	}
	if filter.CategoryID != nil {
		where.add("category_id = ?", *filter.CategoryID)
	}
	return r.page(ctx, where, fmt.Sprintf("%s %s, id", sortBy, sortOrder), page, pageSize)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches name or description case-insensitively; an empty query
// lists everything.
func (r *productRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return r.List(ctx, ProductFilter{}, page, pageSize, "created_at", SortOrderDesc)
	}

	where := &whereBuilder{}
	where.add("(name ILIKE ? OR description ILIKE ?)", "%"+likeEscaper.Replace(query)+"%")
	return r.page(ctx, where, "created_at DESC, id", page, pageSize)
}

// ListLowStock returns products whose stock is at or below their minimum
func (r *productRepository) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock <= min_stock
		ORDER BY stock ASC, name ASC
	`

	products, err := r.queryProducts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func (r *productRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// expectOneRow maps a zero-row write to notFound
func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
