// Package ledger holds the pure order-ledger rules: cost of goods, stock
// decrement, loyalty points and order numbering. It performs no I/O.
package ledger

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"

	"noun-crm/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidAmount      = errors.New("total amount must not be negative")
	ErrInvalidPoints      = errors.New("redeemed points must not be negative")
)

// MissingReferencePolicy decides what happens when an order references a
// product or phone number that does not exist.
type MissingReferencePolicy string

const (
	// SkipMissing records the reference, logs it and carries on.
	SkipMissing MissingReferencePolicy = "skip"
	// RejectMissing aborts the whole order.
	RejectMissing MissingReferencePolicy = "reject"
)

// RedemptionPolicy decides what happens when more points are redeemed than
// the customer holds.
type RedemptionPolicy string

const (
	// ClampRedemption floors the balance at zero before adding earned points.
	ClampRedemption RedemptionPolicy = "clamp"
	// RejectRedemption fails with ErrInsufficientPoints.
	RejectRedemption RedemptionPolicy = "reject"
)

// ParseMissingReferencePolicy maps a config value to a policy
func ParseMissingReferencePolicy(s string) (MissingReferencePolicy, error) {
	switch MissingReferencePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SkipMissing:
		return SkipMissing, nil
	case RejectMissing:
		return RejectMissing, nil
	}
	return "", fmt.Errorf("unknown missing reference policy %q", s)
}

// ParseRedemptionPolicy maps a config value to a policy
func ParseRedemptionPolicy(s string) (RedemptionPolicy, error) {
	switch RedemptionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ClampRedemption:
		return ClampRedemption, nil
	case RejectRedemption:
		return RejectRedemption, nil
	}
	return "", fmt.Errorf("unknown redemption policy %q", s)
}

// LineItem is a requested (product, quantity) pair
type LineItem struct {
	ProductID string
	Quantity  int
}

var costFallbackRatio = decimal.NewFromFloat(0.5)

// Validate checks the caller supplied figures before anything is mutated
func Validate(items []LineItem, totalAmount decimal.Decimal, redeemedPoints int) error {
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("line %d (product %s): %w", i+1, item.ProductID, ErrInvalidQuantity)
		}
	}
	if totalAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if redeemedPoints < 0 {
		return ErrInvalidPoints
	}
	return nil
}

// UnitCost returns the product's cost price, or half its price when no cost
// price is set.
func UnitCost(p *domain.Product) decimal.Decimal {
	if p.CostPrice.IsPositive() {
		return p.CostPrice
	}
	return p.Price.Mul(costFallbackRatio)
}

// LineCost is quantity × unit cost
func LineCost(p *domain.Product, quantity int) decimal.Decimal {
	return UnitCost(p).Mul(decimal.NewFromInt(int64(quantity)))
}

// DecrementStock removes quantity from stock, never going below zero
func DecrementStock(stock, quantity int) int {
	if quantity >= stock {
		return 0
	}
	return stock - quantity
}

// EarnedPoints is one point per whole currency unit of the total
func EarnedPoints(totalAmount decimal.Decimal) int {
	if totalAmount.IsNegative() {
		return 0
	}
	return int(totalAmount.Floor().IntPart())
}

// DebitedPoints is the part of a redemption the balance can cover
func DebitedPoints(balance, redeemed int) int {
	return max(0, min(balance, redeemed))
}

// ApplyPoints returns the balance after redeeming and then earning points.
func ApplyPoints(balance, redeemed, earned int, policy RedemptionPolicy) (int, error) {
	if redeemed > balance && policy == RejectRedemption {
		return balance, fmt.Errorf("have %d, need %d: %w", balance, redeemed, ErrInsufficientPoints)
	}
	remaining := balance - redeemed
	if remaining < 0 {
		remaining = 0
	}
	return remaining + earned, nil
}

// NormalizePhone strips every whitespace rune so "090 123 4567" and
// "0901234567" compare equal.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, phone)
}

// OrderNumberPattern matches display order numbers
var OrderNumberPattern = regexp.MustCompile(`^ORD-\d{4}$`)

const (
	orderNumberMin = 1000
	orderNumberMax = 9999
)

// OrderNumberGenerator yields candidate display order numbers. Candidates are
// not guaranteed unique; storage enforces uniqueness.
type OrderNumberGenerator func() string

// RandomOrderNumber returns ORD- followed by a random number in 1000-9999
func RandomOrderNumber() string {
	return FormatOrderNumber(orderNumberMin + rand.IntN(orderNumberMax-orderNumberMin+1))
}

// FormatOrderNumber renders n as a display order number
func FormatOrderNumber(n int) string {
	return fmt.Sprintf("ORD-%04d", n)
}
