package service

import (
	"context"
	"testing"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/ledger"
	"noun-crm/internal/repository"
	"noun-crm/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProductService_CategoryKindMustMatch(t *testing.T) {
	store := memory.NewStore()
	svc := NewProductService(store.Products(), store.Categories(), zap.NewNop())
	ctx := context.Background()

	drinks, err := svc.CreateCategory(ctx, "Hot Drinks", domain.KindCoffee, "")
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, ProductInput{
		Name:       "Noodle Soup",
		Price:      money("4.50"),
		Kind:       domain.KindRestaurant,
		CategoryID: &drinks.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Mocha", Price: money("3"), Kind: domain.KindCoffee, CategoryID: &missing})
	assert.ErrorIs(t, err, ErrInvalidProduct)

	mocha, err := svc.CreateProduct(ctx, ProductInput{
		Name:       " Mocha ",
		Price:      money("3.25"),
		Kind:       domain.KindCoffee,
		CategoryID: &drinks.ID,
		Stock:      12,
		MinStock:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mocha", mocha.Name)

	_, err = svc.CreateCategory(ctx, "Hot Drinks", domain.KindCoffee, "")
	assert.ErrorIs(t, err, repository.ErrCategoryAlreadyExists)
}

func TestProductService_Validation(t *testing.T) {
	store := memory.NewStore()
	svc := NewProductService(store.Products(), store.Categories(), zap.NewNop())

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"blank name", ProductInput{Name: " ", Kind: domain.KindMart}},
		{"unknown kind", ProductInput{Name: "Soap", Kind: "pharmacy"}},
		{"negative price", ProductInput{Name: "Soap", Kind: domain.KindMart, Price: money("-1")}},
		{"negative cost", ProductInput{Name: "Soap", Kind: domain.KindMart, CostPrice: money("-0.10")}},
		{"negative stock", ProductInput{Name: "Soap", Kind: domain.KindMart, Stock: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidProduct)
		})
	}
}

func TestProductService_UpdateListAndLowStock(t *testing.T) {
	store := memory.NewStore()
	svc := NewProductService(store.Products(), store.Categories(), zap.NewNop())
	ctx := context.Background()

	water, err := svc.CreateProduct(ctx, ProductInput{Name: "Water", Price: money("0.50"), Kind: domain.KindMart, Stock: 100, MinStock: 10})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Espresso", Price: money("2"), Kind: domain.KindCoffee, Stock: 50})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, water.ID, ProductInput{Name: "Water", Price: money("0.50"), Kind: domain.KindMart, Stock: 8, MinStock: 10})
	require.NoError(t, err)

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, water.ID, low[0].ID)

	mart, total, err := svc.ListProducts(ctx, ProductQuery{Kind: domain.KindMart, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Water", mart[0].Name)

	found, total, err := svc.ListProducts(ctx, ProductQuery{Query: "espr", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Espresso", found[0].Name)

	_, err = svc.UpdateProduct(ctx, uuid.New(), ProductInput{Name: "Ghost", Kind: domain.KindMart})
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestCustomerService_PhoneLookupIgnoresWhitespace(t *testing.T) {
	store := memory.NewStore()
	svc := NewCustomerService(store.Customers())
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, CustomerInput{Name: "Srey Mom", Phone: "017 888 999"})
	require.NoError(t, err)
	assert.Zero(t, created.Points)

	found, err := svc.LookupByPhone(ctx, "017888999")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "Copy", Phone: "017 888999"})
	assert.ErrorIs(t, err, repository.ErrCustomerAlreadyExists)

	_, err = svc.CreateCustomer(ctx, CustomerInput{Name: "No Phone", Phone: "   "})
	assert.ErrorIs(t, err, ErrInvalidCustomer)

	updated, err := svc.UpdateCustomer(ctx, created.ID, CustomerInput{Name: "Srey Mom", Phone: "017 000 111", Email: "mom@noun.test"})
	require.NoError(t, err)
	assert.Equal(t, "017 000 111", updated.Phone)

	_, err = svc.LookupByPhone(ctx, "017888999")
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)

	require.NoError(t, svc.DeleteCustomer(ctx, created.ID))
	_, err = svc.GetCustomer(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrCustomerNotFound)
}

func TestCustomerService_UpdateKeepsLoyalty(t *testing.T) {
	store := memory.NewStore()
	customers := NewCustomerService(store.Customers())
	orders := NewOrderService(store, store.Orders(), nil, nil, LedgerOptions{}, zap.NewNop())
	ctx := context.Background()

	c, err := customers.CreateCustomer(ctx, CustomerInput{Name: "Bopha", Phone: "012 121 212"})
	require.NoError(t, err)
	_, err = orders.CreateOrder(ctx, CreateOrderInput{CustomerPhone: "012121212", TotalAmount: money("15.40")})
	require.NoError(t, err)

	updated, err := customers.UpdateCustomer(ctx, c.ID, CustomerInput{Name: "Bopha K.", Phone: "012 121 212"})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Points)
	assert.True(t, money("15.40").Equal(updated.TotalSpent))
}

func TestReportService_SalesSummary(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	orders := NewOrderService(store, store.Orders(), nil, nil, LedgerOptions{Now: func() time.Time { return now }}, zap.NewNop())
	reports := NewReportService(store.Orders())
	ctx := context.Background()

	p := &domain.Product{ID: uuid.New(), Name: "Latte", Price: money("3.50"), CostPrice: money("1.20"), Kind: domain.KindCoffee, Stock: 10}
	require.NoError(t, store.Products().Create(ctx, p))

	dara := &domain.Customer{ID: uuid.New(), Name: "Dara", Phone: "012 345 678", Points: 50, TotalSpent: decimal.Zero}
	require.NoError(t, store.Customers().Create(ctx, dara))

	// Walk-in claiming a redemption moves no points
	_, err := orders.CreateOrder(ctx, CreateOrderInput{
		Items:          []ledger.LineItem{{ProductID: p.ID.String(), Quantity: 2}},
		TotalAmount:    money("7"),
		RedeemedPoints: 100,
	})
	require.NoError(t, err)

	// Dara asks for 100 but only 50 can be debited
	_, err = orders.CreateOrder(ctx, CreateOrderInput{
		CustomerPhone:  "012345678",
		TotalAmount:    money("5"),
		RedeemedPoints: 100,
	})
	require.NoError(t, err)
	reloaded, err := store.Customers().FindByID(ctx, dara.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Points)

	summary, err := reports.SalesSummary(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.OrderCount)
	assert.True(t, money("12").Equal(summary.Revenue))
	assert.True(t, money("2.40").Equal(summary.Cost))
	assert.True(t, money("9.60").Equal(summary.GrossMargin))
	assert.Equal(t, 5, summary.PointsEarned)
	assert.Equal(t, 50, summary.PointsRedeemed)

	empty, err := reports.SalesSummary(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, empty.OrderCount)

	_, err = reports.SalesSummary(ctx, now, now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}
