package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryKind is the business line a product is sold under
type CategoryKind string

const (
	KindCoffee     CategoryKind = "coffee"
	KindMart       CategoryKind = "mart"
	KindRestaurant CategoryKind = "restaurant"
)

// Valid reports whether k is one of the known business lines
func (k CategoryKind) Valid() bool {
	switch k {
	case KindCoffee, KindMart, KindRestaurant:
		return true
	}
	return false
}

// Product represents a sellable item in the catalog
type Product struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	// CostPrice is zero when no explicit cost has been recorded.
	CostPrice  decimal.Decimal `json:"cost_price" db:"cost_price"`
	Kind       CategoryKind    `json:"category" db:"kind"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty" db:"category_id"`
	ImageURL   string          `json:"image_url" db:"image_url"`
	Stock      int             `json:"stock" db:"stock"`
	MinStock   int             `json:"min_stock" db:"min_stock"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IsLowStock reports whether stock has reached the minimum-stock threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// Category represents a menu section grouping products
type Category struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Kind        CategoryKind `json:"kind" db:"kind"`
	Description string       `json:"description" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
