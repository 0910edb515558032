package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/ledger"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type customerRepository struct {
	access
}

func copyCustomer(c *domain.Customer) *domain.Customer {
	cp := *c
	return &cp
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	key := ledger.NormalizePhone(customer.Phone)
	return r.write(func(st *state) error {
		if _, taken := st.phoneIndex[key]; taken {
			return repository.ErrCustomerAlreadyExists
		}
		st.customers[customer.ID] = copyCustomer(customer)
		st.phoneIndex[key] = customer.ID
		return nil
	})
}

func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	key := ledger.NormalizePhone(customer.Phone)
	return r.write(func(st *state) error {
		existing, ok := st.customers[customer.ID]
		if !ok {
			return repository.ErrCustomerNotFound
		}
		if owner, taken := st.phoneIndex[key]; taken && owner != customer.ID {
			return repository.ErrCustomerAlreadyExists
		}
		delete(st.phoneIndex, ledger.NormalizePhone(existing.Phone))
		st.customers[customer.ID] = copyCustomer(customer)
		st.phoneIndex[key] = customer.ID
		return nil
	})
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.write(func(st *state) error {
		existing, ok := st.customers[id]
		if !ok {
			return repository.ErrCustomerNotFound
		}
		delete(st.phoneIndex, ledger.NormalizePhone(existing.Phone))
		delete(st.customers, id)
		return nil
	})
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var out *domain.Customer
	err := r.read(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return repository.ErrCustomerNotFound
		}
		out = copyCustomer(c)
		return nil
	})
	return out, err
}

func (r *customerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	key := ledger.NormalizePhone(phone)
	if key == "" {
		return nil, repository.ErrCustomerNotFound
	}
	var out *domain.Customer
	err := r.read(func(st *state) error {
		id, ok := st.phoneIndex[key]
		if !ok {
			return repository.ErrCustomerNotFound
		}
		out = copyCustomer(st.customers[id])
		return nil
	})
	return out, err
}

func (r *customerRepository) FindByPhoneForUpdate(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.FindByPhone(ctx, phone)
}

func (r *customerRepository) UpdateLoyalty(ctx context.Context, id uuid.UUID, points int, totalSpent decimal.Decimal) error {
	return r.write(func(st *state) error {
		c, ok := st.customers[id]
		if !ok {
			return repository.ErrCustomerNotFound
		}
		updated := copyCustomer(c)
		updated.Points = points
		updated.TotalSpent = totalSpent
		updated.UpdatedAt = time.Now()
		st.customers[id] = updated
		return nil
	})
}

func (r *customerRepository) List(ctx context.Context, query string, page, pageSize int) ([]*domain.Customer, int, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	phoneQ := ledger.NormalizePhone(q)

	var matched []*domain.Customer
	err := r.read(func(st *state) error {
		for _, c := range st.customers {
			if q == "" ||
				strings.Contains(strings.ToLower(c.Name), q) ||
				strings.Contains(ledger.NormalizePhone(c.Phone), phoneQ) {
				matched = append(matched, copyCustomer(c))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	slices.SortFunc(matched, func(a, b *domain.Customer) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	return paginate(matched, page, pageSize), len(matched), nil
}
