package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderRepository struct {
	access
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	if cp.Items == nil {
		cp.Items = []domain.OrderItem{}
	}
	if o.CustomerID != nil {
		id := *o.CustomerID
		cp.CustomerID = &id
	}
	return &cp
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.write(func(st *state) error {
		if _, taken := st.orderNumbers[order.OrderNumber]; taken {
			return repository.ErrDuplicateOrderNumber
		}
		st.orders[order.ID] = copyOrder(order)
		st.orderNumbers[order.OrderNumber] = order.ID
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := r.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrOrderNotFound
		}
		out = copyOrder(o)
		return nil
	})
	return out, err
}

func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var out *domain.Order
	err := r.read(func(st *state) error {
		id, ok := st.orderNumbers[orderNumber]
		if !ok {
			return repository.ErrOrderNotFound
		}
		out = copyOrder(st.orders[id])
		return nil
	})
	return out, err
}

func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := r.read(func(st *state) error {
		_, exists = st.orderNumbers[orderNumber]
		return nil
	})
	return exists, err
}

func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return r.collect(page, pageSize, func(*domain.Order) bool { return true })
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return r.collect(page, pageSize, func(o *domain.Order) bool {
		return o.CustomerID != nil && *o.CustomerID == customerID
	})
}

func (r *orderRepository) collect(page, pageSize int, keep func(*domain.Order) bool) ([]*domain.Order, int, error) {
	var matched []*domain.Order
	err := r.read(func(st *state) error {
		for _, o := range st.orders {
			if keep(o) {
				matched = append(matched, copyOrder(o))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	// newest first, like the SQL implementation
	slices.SortFunc(matched, func(a, b *domain.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), strings.Compare(a.OrderNumber, b.OrderNumber))
	})

	return paginate(matched, page, pageSize), len(matched), nil
}

func (r *orderRepository) Summary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	summary := &domain.SalesSummary{
		From:    from,
		To:      to,
		Revenue: decimal.Zero,
		Cost:    decimal.Zero,
	}
	err := r.read(func(st *state) error {
		for _, o := range st.orders {
			if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
				continue
			}
			summary.OrderCount++
			summary.Revenue = summary.Revenue.Add(o.TotalAmount)
			summary.Cost = summary.Cost.Add(o.TotalCost)
			if o.CustomerID != nil {
				summary.PointsEarned += o.EarnedPoints
			}
			summary.PointsRedeemed += o.PointsDebited
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.GrossMargin = summary.Revenue.Sub(summary.Cost)
	return summary, nil
}
