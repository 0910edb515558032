// Package seed loads the demo catalog, customers and the first admin account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noun-crm/internal/config"
	"noun-crm/internal/domain"
	"noun-crm/internal/repository"
	"noun-crm/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Namespace derives the deterministic ids of seeded records, so seeding a
// persistent store twice finds the records from the first run.
var Namespace = uuid.MustParse("3f1c6a2e-8d0b-5c47-9a61-2b7e4d9f0c15")

// ID returns the seeded id for a record kind and business key
func ID(kind, key string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte("noun-crm/"+kind+"/"+key))
}

type demoCategory struct {
	key  string
	name string
	kind domain.CategoryKind
}

type demoProduct struct {
	sku      string
	name     string
	category string
	price    string
	cost     string
	stock    int
	minStock int
}

type demoCustomer struct {
	name   string
	phone  string
	email  string
	points int
}

var categories = []demoCategory{
	{key: "coffee", name: "Coffee Bar", kind: domain.KindCoffee},
	{key: "mart", name: "Mini Mart", kind: domain.KindMart},
	{key: "kitchen", name: "Kitchen", kind: domain.KindRestaurant},
}

var products = []demoProduct{
	{sku: "iced-latte", name: "Iced Latte", category: "coffee", price: "3.50", cost: "1.20", stock: 120, minStock: 20},
	{sku: "espresso", name: "Espresso", category: "coffee", price: "2.00", cost: "0.60", stock: 200, minStock: 30},
	{sku: "matcha", name: "Matcha Latte", category: "coffee", price: "4.00", cost: "0", stock: 60, minStock: 10},
	{sku: "water", name: "Mineral Water", category: "mart", price: "0.80", cost: "0.30", stock: 300, minStock: 50},
	{sku: "crisps", name: "Sea Salt Crisps", category: "mart", price: "1.50", cost: "0", stock: 80, minStock: 15},
	{sku: "fried-rice", name: "Fried Rice", category: "kitchen", price: "5.50", cost: "2.10", stock: 40, minStock: 5},
	{sku: "noodle-soup", name: "Noodle Soup", category: "kitchen", price: "6.00", cost: "2.40", stock: 35, minStock: 5},
}

var customers = []demoCustomer{
	{name: "Sokha Chan", phone: "012 345 678", email: "sokha@example.com", points: 50},
	{name: "Dara Kim", phone: "097 555 0101", email: "dara@example.com", points: 0},
	{name: "Mealea Sor", phone: "088 220 3344", points: 240},
}

// Stores are the repositories seeding writes to
type Stores struct {
	Categories repository.CategoryRepository
	Products   repository.ProductRepository
	Customers  repository.CustomerRepository
}

// Result counts the records created by one Run
type Result struct {
	Categories int
	Products   int
	Customers  int
	Admin      bool
}

// Run creates the admin account when none exists and, when cfg.Demo is set,
// the demo records that are not stored yet.
func Run(ctx context.Context, stores Stores, users service.UserService, cfg config.SeedConfig, logger *zap.Logger) (*Result, error) {
	res := &Result{}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
		if admin != nil {
			res.Admin = true
			logger.Info("Seeded admin account", zap.String("email", admin.Email))
		}
	}

	if !cfg.Demo {
		return res, nil
	}

	now := time.Now()
	for _, c := range categories {
		created, err := createCategory(ctx, stores.Categories, c, now)
		if err != nil {
			return nil, err
		}
		if created {
			res.Categories++
		}
	}
	for _, p := range products {
		created, err := createProduct(ctx, stores.Products, p, now)
		if err != nil {
			return nil, err
		}
		if created {
			res.Products++
		}
	}
	for _, c := range customers {
		created, err := createCustomer(ctx, stores.Customers, c, now)
		if err != nil {
			return nil, err
		}
		if created {
			res.Customers++
		}
	}

	logger.Info("Seeded demo data",
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
		zap.Int("customers", res.Customers),
	)
	return res, nil
}

func createCategory(ctx context.Context, repo repository.CategoryRepository, c demoCategory, now time.Time) (bool, error) {
	id := ID("category", c.key)
	if _, err := repo.FindByID(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrCategoryNotFound) {
		return false, fmt.Errorf("failed to look up category %s: %w", c.key, err)
	}

	err := repo.Create(ctx, &domain.Category{
		ID:        id,
		Name:      c.name,
		Kind:      c.kind,
		CreatedAt: now,
	})
	if errors.Is(err, repository.ErrCategoryAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to seed category %s: %w", c.key, err)
	}
	return true, nil
}

func createProduct(ctx context.Context, repo repository.ProductRepository, p demoProduct, now time.Time) (bool, error) {
	id := ID("product", p.sku)
	if _, err := repo.FindByID(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		return false, fmt.Errorf("failed to look up product %s: %w", p.sku, err)
	}

	var kind domain.CategoryKind
	for _, c := range categories {
		if c.key == p.category {
			kind = c.kind
		}
	}
	categoryID := ID("category", p.category)

	err := repo.Create(ctx, &domain.Product{
		ID:         id,
		Name:       p.name,
		Price:      decimal.RequireFromString(p.price),
		CostPrice:  decimal.RequireFromString(p.cost),
		Kind:       kind,
		CategoryID: &categoryID,
		Stock:      p.stock,
		MinStock:   p.minStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to seed product %s: %w", p.sku, err)
	}
	return true, nil
}

func createCustomer(ctx context.Context, repo repository.CustomerRepository, c demoCustomer, now time.Time) (bool, error) {
	_, err := repo.FindByPhone(ctx, c.phone)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrCustomerNotFound) {
		return false, fmt.Errorf("failed to look up customer %s: %w", c.phone, err)
	}

	err = repo.Create(ctx, &domain.Customer{
		ID:         ID("customer", c.phone),
		Name:       c.name,
		Phone:      c.phone,
		Email:      c.email,
		Points:     c.points,
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if errors.Is(err, repository.ErrCustomerAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to seed customer %s: %w", c.phone, err)
	}
	return true, nil
}
