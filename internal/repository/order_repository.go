package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"noun-crm/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("order number already in use")
)

// OrderRepository defines the interface for order data access.
// Orders are append-only; there is no update or delete.
type OrderRepository interface {
	// Create inserts the order and its lines. It returns
	// ErrDuplicateOrderNumber when the display number is taken.
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	Summary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error)
}

const orderColumns = `id, order_number, customer_id, customer_name, customer_phone, total_amount,
	total_cost, earned_points, redeemed_points, points_debited, payment_method, source, created_at`

type orderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db DBTX) OrderRepository {
	return &orderRepository{db: db}
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.TotalAmount,
		&order.TotalCost,
		&order.EarnedPoints,
		&order.RedeemedPoints,
		&order.PointsDebited,
		&order.PaymentMethod,
		&order.Source,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Create inserts an order and its line items
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		order.ID,
		order.OrderNumber,
		order.CustomerID,
		order.CustomerName,
		order.CustomerPhone,
		order.TotalAmount,
		order.TotalCost,
		order.EarnedPoints,
		order.RedeemedPoints,
		order.PointsDebited,
		order.PaymentMethod,
		order.Source,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, unit_cost, line_cost, matched)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, item := range order.Items {
		_, err := r.db.ExecContext(
			ctx,
			itemQuery,
			order.ID,
			i+1,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitCost,
			item.LineCost,
			item.Matched,
		)
		if err != nil {
			return fmt.Errorf("failed to create order item %d: %w", i+1, err)
		}
	}

	return nil
}

// FindByID retrieves an order with its items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.findOne(ctx, query, id)
}

// FindByOrderNumber retrieves an order by its display number
func (r *orderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return r.findOne(ctx, query, orderNumber)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if err := r.attachItems(ctx, []*domain.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// ExistsByOrderNumber reports whether an order already uses orderNumber
func (r *orderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`,
		orderNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order number: %w", err)
	}
	return exists, nil
}

// List retrieves orders newest first
func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return r.list(ctx, "", nil, page, pageSize)
}

// ListByCustomer retrieves the orders of one customer newest first
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return r.list(ctx, "WHERE customer_id = $1", []interface{}{customerID}, page, pageSize)
}

func (r *orderRepository) list(ctx context.Context, whereClause string, args []interface{}, page, pageSize int) ([]*domain.Order, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM orders ` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders
		%s
		ORDER BY created_at DESC, order_number ASC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// attachItems loads the line items of every order in one query
func (r *orderRepository) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	for i, order := range orders {
		ids[i] = order.ID.String()
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
	}

	query := `
		SELECT order_id, product_id, product_name, quantity, unit_cost, line_cost, matched
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, line_no
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID uuid.UUID
		var item domain.OrderItem
		err := rows.Scan(
			&orderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitCost,
			&item.LineCost,
			&item.Matched,
		)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating order items: %w", err)
	}

	return nil
}

// Summary aggregates orders created in [from, to)
func (r *orderRepository) Summary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_cost), 0),
		       COALESCE(SUM(earned_points) FILTER (WHERE customer_id IS NOT NULL), 0),
		       COALESCE(SUM(points_debited), 0)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`

	summary := &domain.SalesSummary{From: from, To: to}
	err := r.db.QueryRowContext(ctx, query, from, to).Scan(
		&summary.OrderCount,
		&summary.Revenue,
		&summary.Cost,
		&summary.PointsEarned,
		&summary.PointsRedeemed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize orders: %w", err)
	}
	summary.GrossMargin = summary.Revenue.Sub(summary.Cost)

	return summary, nil
}
