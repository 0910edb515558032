package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentWallet   = "wallet"
)

// Order source channels
const (
	SourcePOS      = "pos"
	SourceOnline   = "online"
	SourceKiosk    = "kiosk"
	SourceDelivery = "delivery"
)

// Order is a confirmed sale recorded by the ledger. RedeemedPoints is the
// caller's request; PointsDebited is what actually left the customer's
// balance, zero when no customer matched.
type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrderNumber    string          `json:"order_number" db:"order_number"`
	CustomerID     *uuid.UUID      `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName   string          `json:"customer_name,omitempty" db:"customer_name"`
	CustomerPhone  string          `json:"customer_phone,omitempty" db:"customer_phone"`
	Items          []OrderItem     `json:"items"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	TotalCost      decimal.Decimal `json:"total_cost" db:"total_cost"`
	EarnedPoints   int             `json:"earned_points" db:"earned_points"`
	RedeemedPoints int             `json:"redeemed_points" db:"redeemed_points"`
	PointsDebited  int             `json:"points_debited" db:"points_debited"`
	PaymentMethod  string          `json:"payment_method" db:"payment_method"`
	Source         string          `json:"source" db:"source"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// OrderItem is one requested line of an order. ProductID is kept as given by
// the caller; Matched is false when it did not resolve to a catalog product.
type OrderItem struct {
	ProductID   string          `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name,omitempty" db:"product_name"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost" db:"unit_cost"`
	LineCost    decimal.Decimal `json:"line_cost" db:"line_cost"`
	Matched     bool            `json:"matched" db:"matched"`
}

// SalesSummary aggregates orders over a period
type SalesSummary struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OrderCount     int             `json:"order_count"`
	Revenue        decimal.Decimal `json:"revenue"`
	Cost           decimal.Decimal `json:"cost"`
	GrossMargin    decimal.Decimal `json:"gross_margin"`
	PointsEarned   int             `json:"points_earned"`
	PointsRedeemed int             `json:"points_redeemed"`
}
