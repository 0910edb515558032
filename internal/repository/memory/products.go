package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
)

type productRepository struct {
	access
}

func copyProduct(p *domain.Product) *domain.Product {
	c := *p
	if p.CategoryID != nil {
		id := *p.CategoryID
		c.CategoryID = &id
	}
	return &c
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.write(func(st *state) error {
		st.products[product.ID] = copyProduct(product)
		return nil
	})
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	return r.write(func(st *state) error {
		if _, ok := st.products[product.ID]; !ok {
			return repository.ErrProductNotFound
		}
		st.products[product.ID] = copyProduct(product)
		return nil
	})
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return repository.ErrProductNotFound
		}
		delete(st.products, id)
		return nil
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var out *domain.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		out = copyProduct(p)
		return nil
	})
	return out, err
}

// FindByIDForUpdate needs no row lock: transactions already hold the store lock.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return r.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		updated := copyProduct(p)
		updated.Stock = stock
		st.products[id] = updated
		return nil
	})
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	return r.collect(page, pageSize, sortBy, sortOrder, func(p *domain.Product) bool {
		if filter.Kind != "" && p.Kind != filter.Kind {
			return false
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			return false
		}
		return true
	})
}

func (r *productRepository) Search(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.collect(page, pageSize, "created_at", repository.SortOrderDesc, func(p *domain.Product) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	})
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]*domain.Product, error) {
	var out []*domain.Product
	err := r.read(func(st *state) error {
		out = []*domain.Product{}
		for _, p := range st.products {
			if p.IsLowStock() {
				out = append(out, copyProduct(p))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *domain.Product) int {
		return cmp.Or(cmp.Compare(a.Stock, b.Stock), cmp.Compare(a.Name, b.Name))
	})
	return out, err
}

func (r *productRepository) collect(page, pageSize int, sortBy string, sortOrder repository.SortOrder, keep func(*domain.Product) bool) ([]*domain.Product, int, error) {
	var matched []*domain.Product
	err := r.read(func(st *state) error {
		for _, p := range st.products {
			if keep(p) {
				matched = append(matched, copyProduct(p))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	compare := productComparator(sortBy)
	slices.SortFunc(matched, func(a, b *domain.Product) int {
		c := cmp.Or(compare(a, b), strings.Compare(a.ID.String(), b.ID.String()))
		if sortOrder == repository.SortOrderAsc {
			return c
		}
		return -c
	})

	return paginate(matched, page, pageSize), len(matched), nil
}

func productComparator(sortBy string) func(a, b *domain.Product) int {
	switch sortBy {
	case "name":
		return func(a, b *domain.Product) int { return strings.Compare(a.Name, b.Name) }
	case "price":
		return func(a, b *domain.Product) int { return a.Price.Cmp(b.Price) }
	case "stock":
		return func(a, b *domain.Product) int { return cmp.Compare(a.Stock, b.Stock) }
	default:
		return func(a, b *domain.Product) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

type categoryRepository struct {
	access
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.write(func(st *state) error {
		for _, existing := range st.categories {
			if existing.Name == category.Name {
				return repository.ErrCategoryAlreadyExists
			}
		}
		c := *category
		st.categories[c.ID] = &c
		return nil
	})
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	err := r.read(func(st *state) error {
		for _, c := range st.categories {
			cp := *c
			out = append(out, &cp)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b *domain.Category) int {
		return cmp.Or(strings.Compare(string(a.Kind), string(b.Kind)), strings.Compare(a.Name, b.Name))
	})
	return out, err
}

func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var out *domain.Category
	err := r.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return repository.ErrCategoryNotFound
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}
