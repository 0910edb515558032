package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a loyalty member identified at the till by phone number
type Customer struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	Phone      string          `json:"phone" db:"phone"`
	Email      string          `json:"email" db:"email"`
	Points     int             `json:"points" db:"points"`
	TotalSpent decimal.Decimal `json:"total_spent" db:"total_spent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
