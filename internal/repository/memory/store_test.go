package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *Store, name string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:        uuid.New(),
		Name:      name,
		Price:     decimal.RequireFromString("3.50"),
		CostPrice: decimal.RequireFromString("1.20"),
		Kind:      domain.KindCoffee,
		Stock:     stock,
		MinStock:  2,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	p := seedProduct(t, s, "Latte", 10)

	got, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	got.Stock = 0

	again, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Stock)
}

func TestStore_WithinTxCommits(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProduct(t, s, "Latte", 10)

	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Products.UpdateStock(ctx, p.ID, 7); err != nil {
			return err
		}
		return repos.Orders.Create(ctx, &domain.Order{ID: uuid.New(), OrderNumber: "ORD-1000", CreatedAt: time.Now()})
	})
	require.NoError(t, err)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	exists, err := s.Orders().ExistsByOrderNumber(ctx, "ORD-1000")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_WithinTxDiscardsOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProduct(t, s, "Latte", 10)
	c := &domain.Customer{ID: uuid.New(), Name: "Mai", Phone: "090 123 4567", Points: 50}
	require.NoError(t, s.Customers().Create(ctx, c))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		require.NoError(t, repos.Products.UpdateStock(ctx, p.ID, 0))
		require.NoError(t, repos.Customers.UpdateLoyalty(ctx, c.ID, 0, decimal.NewFromInt(99)))
		require.NoError(t, repos.Orders.Create(ctx, &domain.Order{ID: uuid.New(), OrderNumber: "ORD-1000"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	customer, err := s.Customers().FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, customer.Points)

	exists, err := s.Orders().ExistsByOrderNumber(ctx, "ORD-1000")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_WithinTxHonoursCancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_ConcurrentTransactionsDoNotLoseUpdates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProduct(t, s, "Latte", 100)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
				current, err := repos.Products.FindByIDForUpdate(ctx, p.ID)
				if err != nil {
					return err
				}
				return repos.Products.UpdateStock(ctx, p.ID, current.Stock-2)
			})
		}()
	}
	wg.Wait()

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.Stock)
}

func TestCustomerRepository_PhoneIndex(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Customers()

	c := &domain.Customer{ID: uuid.New(), Name: "Mai", Phone: "090 123 4567"}
	require.NoError(t, repo.Create(ctx, c))

	found, err := repo.FindByPhone(ctx, "0901234567")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	err = repo.Create(ctx, &domain.Customer{ID: uuid.New(), Name: "Other", Phone: "0901 234 567"})
	assert.ErrorIs(t, err, repository.ErrCustomerAlreadyExists)

	c.Phone = "0999 000 111"
	require.NoError(t, repo.Update(ctx, c))
	_, err = repo.FindByPhone(ctx, "0901234567")
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)

	_, err = repo.FindByPhone(ctx, " ")
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)

	require.NoError(t, repo.Delete(ctx, c.ID))
	_, err = repo.FindByPhone(ctx, "0999000111")
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)
}

func TestProductRepository_ListAndLowStock(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	latte := seedProduct(t, s, "Latte", 10)
	beans := seedProduct(t, s, "Beans", 1)

	products, total, err := s.Products().List(ctx, repository.ProductFilter{Kind: domain.KindCoffee}, 1, 1, "name", repository.SortOrderAsc)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 1)
	assert.Equal(t, beans.ID, products[0].ID)

	products, _, err = s.Products().List(ctx, repository.ProductFilter{Kind: domain.KindMart}, 1, 10, "", "")
	require.NoError(t, err)
	assert.Empty(t, products)

	low, err := s.Products().ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, beans.ID, low[0].ID)

	found, total, err := s.Products().Search(ctx, "LAT", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, latte.ID, found[0].ID)
}

func TestOrderRepository_DuplicateNumberAndSummary(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Orders()
	now := time.Now()

	first := &domain.Order{
		ID:           uuid.New(),
		OrderNumber:  "ORD-4242",
		TotalAmount:  decimal.RequireFromString("7.00"),
		TotalCost:    decimal.RequireFromString("2.40"),
		EarnedPoints: 7,
		CreatedAt:    now,
	}
	require.NoError(t, repo.Create(ctx, first))

	dup := *first
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, &dup), repository.ErrDuplicateOrderNumber)

	summary, err := repo.Summary(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OrderCount)
	assert.True(t, summary.GrossMargin.Equal(decimal.RequireFromString("4.60")))

	summary, err = repo.Summary(ctx, now.Add(time.Minute), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, summary.OrderCount)
}
