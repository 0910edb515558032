package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"noun-crm/internal/domain"
	"noun-crm/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrCustomerAlreadyExists = errors.New("customer with this phone already exists")
)

// CustomerRepository defines the interface for customer data access.
// Phone lookups ignore whitespace.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	// FindByPhoneForUpdate locks the customer row until the surrounding
	// transaction ends.
	FindByPhoneForUpdate(ctx context.Context, phone string) (*domain.Customer, error)
	UpdateLoyalty(ctx context.Context, id uuid.UUID, points int, totalSpent decimal.Decimal) error
	List(ctx context.Context, query string, page, pageSize int) ([]*domain.Customer, int, error)
}

const customerColumns = `id, name, phone, email, points, total_spent, created_at, updated_at`

type customerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db DBTX) CustomerRepository {
	return &customerRepository{db: db}
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	customer := &domain.Customer{}
	err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.Points,
		&customer.TotalSpent,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// Create inserts a new customer; phone_key stores the whitespace-free phone
func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, phone, phone_key, email, points, total_spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Phone,
		ledger.NormalizePhone(customer.Phone),
		customer.Email,
		customer.Points,
		customer.TotalSpent,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "customers_phone_key_key") {
			return ErrCustomerAlreadyExists
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

// Update updates a customer's profile and balances
func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET name = $2, phone = $3, phone_key = $4, email = $5, points = $6,
		    total_spent = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.Name,
		customer.Phone,
		ledger.NormalizePhone(customer.Phone),
		customer.Email,
		customer.Points,
		customer.TotalSpent,
		customer.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "customers_phone_key_key") {
			return ErrCustomerAlreadyExists
		}
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return expectOneRow(result, ErrCustomerNotFound)
}

// Delete removes a customer
func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	return expectOneRow(result, ErrCustomerNotFound)
}

// FindByID retrieves a customer by ID
func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}

	return customer, nil
}

// FindByPhone retrieves a customer by phone, ignoring whitespace
func (r *customerRepository) FindByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.findByPhone(ctx, phone, "")
}

// FindByPhoneForUpdate retrieves a customer by phone and locks the row
func (r *customerRepository) FindByPhoneForUpdate(ctx context.Context, phone string) (*domain.Customer, error) {
	return r.findByPhone(ctx, phone, " FOR UPDATE")
}

func (r *customerRepository) findByPhone(ctx context.Context, phone, lock string) (*domain.Customer, error) {
	key := ledger.NormalizePhone(phone)
	if key == "" {
		return nil, ErrCustomerNotFound
	}

	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone_key = $1` + lock

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by phone: %w", err)
	}

	return customer, nil
}

// UpdateLoyalty sets the points balance and lifetime spend
func (r *customerRepository) UpdateLoyalty(ctx context.Context, id uuid.UUID, points int, totalSpent decimal.Decimal) error {
	query := `
		UPDATE customers
		SET points = $2, total_spent = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, points, totalSpent)
	if err != nil {
		return fmt.Errorf("failed to update customer loyalty: %w", err)
	}

	return expectOneRow(result, ErrCustomerNotFound)
}

// List retrieves customers, optionally filtered by name or phone
func (r *customerRepository) List(ctx context.Context, query string, page, pageSize int) ([]*domain.Customer, int, error) {
	whereClause := ""
	args := []interface{}{}
	if q := strings.TrimSpace(query); q != "" {
		whereClause = "WHERE name ILIKE $1 OR phone_key LIKE $2"
		args = append(args, "%"+q+"%", "%"+ledger.NormalizePhone(q)+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM customers ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	offset := (page - 1) * pageSize
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM customers
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, customer)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating customers: %w", err)
	}

	return customers, total, nil
}
