package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrInvalidProduct = errors.New("invalid product")

// ProductInput carries the editable product fields
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CostPrice   decimal.Decimal
	Kind        domain.CategoryKind
	CategoryID  *uuid.UUID
	ImageURL    string
	Stock       int
	MinStock    int
}

// ProductQuery selects a page of the catalog. A non-empty Query searches
// name and description and ignores the other filters.
type ProductQuery struct {
	Kind       domain.CategoryKind
	CategoryID *uuid.UUID
	Query      string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  repository.SortOrder
}

// ProductService defines the catalog operations
type ProductService interface {
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]*domain.Product, int, error)
	ListLowStock(ctx context.Context) ([]*domain.Product, error)
	CreateCategory(ctx context.Context, name string, kind domain.CategoryKind, description string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	logger     *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(products repository.ProductRepository, categories repository.CategoryRepository, logger *zap.Logger) ProductService {
	return &productService{products: products, categories: categories, logger: logger}
}

// validate checks the product against its category and catalog rules
func (s *productService) validate(ctx context.Context, in ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !in.Kind.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, in.Kind)
	case in.Price.IsNegative(), in.CostPrice.IsNegative():
		return fmt.Errorf("%w: prices must not be negative", ErrInvalidProduct)
	case in.Stock < 0, in.MinStock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}

	if in.CategoryID != nil {
		category, err := s.categories.FindByID(ctx, *in.CategoryID)
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fmt.Errorf("%w: category %s does not exist", ErrInvalidProduct, in.CategoryID)
		}
		if err != nil {
			return err
		}
		if category.Kind != in.Kind {
			return fmt.Errorf("%w: category %s belongs to %s", ErrInvalidProduct, category.Name, category.Kind)
		}
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	now := time.Now()
	product := &domain.Product{
		ID:        uuid.New(),
		CreatedAt: now,
	}
	applyProductInput(product, in, now)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*domain.Product, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProductInput(product, in, time.Now())

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func applyProductInput(p *domain.Product, in ProductInput, now time.Time) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.CostPrice = in.CostPrice
	p.Kind = in.Kind
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	p.Stock = in.Stock
	p.MinStock = in.MinStock
	p.UpdatedAt = now
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.products.Delete(ctx, id)
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *productService) ListProducts(ctx context.Context, q ProductQuery) ([]*domain.Product, int, error) {
	if strings.TrimSpace(q.Query) != "" {
		return s.products.Search(ctx, q.Query, q.Page, q.PageSize)
	}
	filter := repository.ProductFilter{Kind: q.Kind, CategoryID: q.CategoryID}
	return s.products.List(ctx, filter, q.Page, q.PageSize, q.SortBy, q.SortOrder)
}

func (s *productService) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.products.ListLowStock(ctx)
}

func (s *productService) CreateCategory(ctx context.Context, name string, kind domain.CategoryKind, description string) (*domain.Category, error) {
	if strings.TrimSpace(name) == "" || !kind.Valid() {
		return nil, fmt.Errorf("%w: category needs a name and a known kind", ErrInvalidProduct)
	}
	category := &domain.Category{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Kind:        kind,
		Description: description,
		CreatedAt:   time.Now(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *productService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}
