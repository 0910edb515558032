package seed

import (
	"context"
	"testing"

	"noun-crm/internal/config"
	"noun-crm/internal/domain"
	"noun-crm/internal/repository/memory"
	"noun-crm/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSeedTarget() (Stores, service.UserService, *memory.Store) {
	store := memory.NewStore()
	stores := Stores{
		Categories: store.Categories(),
		Products:   store.Products(),
		Customers:  store.Customers(),
	}
	users := service.NewUserService(store.Users(), store.RefreshTokens(), service.TokenConfig{Secret: "seed-secret"})
	return stores, users, store
}

var demoConfig = config.SeedConfig{
	Demo:          true,
	AdminEmail:    "admin@noun.test",
	AdminPassword: "changeme123",
}

func TestRun_SeedsDemoData(t *testing.T) {
	stores, users, store := newSeedTarget()

	res, err := Run(context.Background(), stores, users, demoConfig, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, res.Admin)
	assert.Equal(t, len(categories), res.Categories)
	assert.Equal(t, len(products), res.Products)
	assert.Equal(t, len(customers), res.Customers)

	latte, err := store.Products().FindByID(context.Background(), ID("product", "iced-latte"))
	require.NoError(t, err)
	assert.Equal(t, domain.KindCoffee, latte.Kind)
	assert.Equal(t, "1.2", latte.CostPrice.String())
	require.NotNil(t, latte.CategoryID)
	assert.Equal(t, ID("category", "coffee"), *latte.CategoryID)

	customer, err := store.Customers().FindByPhone(context.Background(), "012345678")
	require.NoError(t, err)
	assert.Equal(t, 50, customer.Points)

	_, _, admin, err := users.Login(context.Background(), demoConfig.AdminEmail, demoConfig.AdminPassword)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
}

func TestRun_IsIdempotent(t *testing.T) {
	stores, users, store := newSeedTarget()

	_, err := Run(context.Background(), stores, users, demoConfig, zap.NewNop())
	require.NoError(t, err)

	res, err := Run(context.Background(), stores, users, demoConfig, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, res.Admin)
	assert.Zero(t, res.Categories)
	assert.Zero(t, res.Products)
	assert.Zero(t, res.Customers)

	_, total, err := store.Customers().List(context.Background(), "", 1, 100)
	require.NoError(t, err)
	assert.Equal(t, len(customers), total)
}

func TestRun_AdminOnlyWithoutDemo(t *testing.T) {
	stores, users, store := newSeedTarget()

	cfg := demoConfig
	cfg.Demo = false
	res, err := Run(context.Background(), stores, users, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, res.Admin)

	list, err := store.Categories().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestID_IsDeterministic(t *testing.T) {
	assert.Equal(t, ID("product", "espresso"), ID("product", "espresso"))
	assert.NotEqual(t, ID("product", "espresso"), ID("customer", "espresso"))
	assert.Equal(t, 5, int(ID("product", "espresso").Version()))
}
