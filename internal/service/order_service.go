package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/events"
	"noun-crm/internal/ledger"
	"noun-crm/internal/metrics"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrOrderNumberExhausted = errors.New("could not allocate a unique order number")

const (
	publishTimeout             = 5 * time.Second
	defaultOrderNumberAttempts = 5
)

// CreateOrderInput is a requested sale. TotalAmount is computed by the
// caller and trusted; it is not recomputed from the items.
type CreateOrderInput struct {
	CustomerPhone  string
	Items          []ledger.LineItem
	TotalAmount    decimal.Decimal
	RedeemedPoints int
	PaymentMethod  string
	Source         string
}

// OrderConfirmation is returned for a committed order
type OrderConfirmation struct {
	Order             *domain.Order `json:"order"`
	OrderNumber       string        `json:"order_number"`
	EarnedPoints      int           `json:"earned_points"`
	CustomerMatched   bool          `json:"customer_matched"`
	SkippedProductIDs []string      `json:"skipped_product_ids"`
}

// LedgerOptions tunes CreateOrder
type LedgerOptions struct {
	MissingReferences   ledger.MissingReferencePolicy
	OverRedemption      ledger.RedemptionPolicy
	Timeout             time.Duration
	OrderNumberAttempts int
	// NewOrderNumber defaults to ledger.RandomOrderNumber
	NewOrderNumber ledger.OrderNumberGenerator
	// Now defaults to time.Now
	Now func() time.Time
}

// OrderService defines the order ledger operations
type OrderService interface {
	// CreateOrder decrements stock, computes cost of goods, settles loyalty
	// points and stores the order in one transaction.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderConfirmation, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
}

type orderService struct {
	uow       repository.UnitOfWork
	orders    repository.OrderRepository
	publisher events.Publisher
	metrics   *metrics.Registry
	opts      LedgerOptions
	logger    *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	uow repository.UnitOfWork,
	orders repository.OrderRepository,
	publisher events.Publisher,
	registry *metrics.Registry,
	opts LedgerOptions,
	logger *zap.Logger,
) OrderService {
	if opts.MissingReferences == "" {
		opts.MissingReferences = ledger.SkipMissing
	}
	if opts.OverRedemption == "" {
		opts.OverRedemption = ledger.ClampRedemption
	}
	if opts.OrderNumberAttempts < 1 {
		opts.OrderNumberAttempts = defaultOrderNumberAttempts
	}
	if opts.NewOrderNumber == nil {
		opts.NewOrderNumber = ledger.RandomOrderNumber
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &orderService{
		uow:       uow,
		orders:    orders,
		publisher: publisher,
		metrics:   registry,
		opts:      opts,
		logger:    logger,
	}
}

// lowStockAlert is a product that reached its minimum through this order
type lowStockAlert struct {
	id       uuid.UUID
	name     string
	stock    int
	minStock int
}

// ledgerResult carries what one committed transaction produced
type ledgerResult struct {
	order    *domain.Order
	matched  bool
	skipped  []string
	lowStock []lowStockAlert
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderConfirmation, error) {
	start := time.Now()
	defer func() {
		s.metrics.LedgerLatencySec.Observe(time.Since(start).Seconds())
	}()

	if err := ledger.Validate(in.Items, in.TotalAmount, in.RedeemedPoints); err != nil {
		s.metrics.OrdersFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = domain.PaymentCash
	}
	if in.Source == "" {
		in.Source = domain.SourcePOS
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var (
		result *ledgerResult
		err    error
	)
	for attempt := 1; attempt <= s.opts.OrderNumberAttempts; attempt++ {
		result, err = s.createOnce(ctx, in)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}
		s.metrics.OrderNumberConflicts.Inc()
		s.logger.Debug("Order number taken, retrying", zap.Int("attempt", attempt))
	}
	if errors.Is(err, repository.ErrDuplicateOrderNumber) {
		err = fmt.Errorf("%w after %d attempts", ErrOrderNumberExhausted, s.opts.OrderNumberAttempts)
	}
	if err != nil {
		s.metrics.OrdersFailed.WithLabelValues(failureReason(err)).Inc()
		s.logger.Warn("Order rejected", zap.Error(err))
		return nil, err
	}

	s.afterCommit(ctx, result)

	return &OrderConfirmation{
		Order:             result.order,
		OrderNumber:       result.order.OrderNumber,
		EarnedPoints:      result.order.EarnedPoints,
		CustomerMatched:   result.matched,
		SkippedProductIDs: result.skipped,
	}, nil
}

// createOnce runs one ledger transaction with one order number candidate
func (s *orderService) createOnce(ctx context.Context, in CreateOrderInput) (*ledgerResult, error) {
	var result *ledgerResult

	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		res := &ledgerResult{skipped: []string{}}

		order := &domain.Order{
			ID:             uuid.New(),
			CustomerPhone:  strings.TrimSpace(in.CustomerPhone),
			Items:          make([]domain.OrderItem, 0, len(in.Items)),
			TotalAmount:    in.TotalAmount,
			TotalCost:      decimal.Zero,
			RedeemedPoints: in.RedeemedPoints,
			PaymentMethod:  in.PaymentMethod,
			Source:         in.Source,
		}

		products, err := s.lockProducts(ctx, repos.Products, in.Items)
		if err != nil {
			return err
		}

		// Stock and cost
		stock := make(map[uuid.UUID]int, len(products))
		for id, p := range products {
			stock[id] = p.Stock
		}
		for _, item := range in.Items {
			line := domain.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitCost:  decimal.Zero,
				LineCost:  decimal.Zero,
			}
			p, ok := products[productKey(item.ProductID)]
			if !ok {
				if s.opts.MissingReferences == ledger.RejectMissing {
					return fmt.Errorf("product %s: %w", item.ProductID, ledger.ErrProductNotFound)
				}
				s.logger.Warn("Skipping unknown product", zap.String("product_id", item.ProductID))
				res.skipped = append(res.skipped, item.ProductID)
				order.Items = append(order.Items, line)
				continue
			}

			stock[p.ID] = ledger.DecrementStock(stock[p.ID], item.Quantity)
			line.ProductName = p.Name
			line.UnitCost = ledger.UnitCost(p)
			line.LineCost = ledger.LineCost(p, item.Quantity)
			line.Matched = true
			order.TotalCost = order.TotalCost.Add(line.LineCost)
			order.Items = append(order.Items, line)
		}
		for _, id := range sortedIDs(products) {
			p := products[id]
			if stock[id] == p.Stock {
				continue
			}
			if err := repos.Products.UpdateStock(ctx, id, stock[id]); err != nil {
				return err
			}
			if p.Stock > p.MinStock && stock[id] <= p.MinStock {
				res.lowStock = append(res.lowStock, lowStockAlert{id: id, name: p.Name, stock: stock[id], minStock: p.MinStock})
			}
		}

		// Points
		order.EarnedPoints = ledger.EarnedPoints(in.TotalAmount)

		if order.CustomerPhone != "" {
			customer, err := repos.Customers.FindByPhoneForUpdate(ctx, order.CustomerPhone)
			switch {
			case errors.Is(err, repository.ErrCustomerNotFound):
				if s.opts.MissingReferences == ledger.RejectMissing {
					return fmt.Errorf("phone %s: %w", order.CustomerPhone, ledger.ErrCustomerNotFound)
				}
				s.logger.Warn("No customer for phone", zap.String("phone", order.CustomerPhone))
			case err != nil:
				return err
			default:
				points, err := ledger.ApplyPoints(customer.Points, in.RedeemedPoints, order.EarnedPoints, s.opts.OverRedemption)
				if err != nil {
					return fmt.Errorf("customer %s: %w", customer.ID, err)
				}
				if err := repos.Customers.UpdateLoyalty(ctx, customer.ID, points, customer.TotalSpent.Add(in.TotalAmount)); err != nil {
					return err
				}
				order.CustomerID = &customer.ID
				order.CustomerName = customer.Name
				order.PointsDebited = ledger.DebitedPoints(customer.Points, in.RedeemedPoints)
				res.matched = true
			}
		}

		// Order number
		order.OrderNumber = s.opts.NewOrderNumber()
		taken, err := repos.Orders.ExistsByOrderNumber(ctx, order.OrderNumber)
		if err != nil {
			return err
		}
		if taken {
			return repository.ErrDuplicateOrderNumber
		}

		order.CreatedAt = s.opts.Now()
		if err := repos.Orders.Create(ctx, order); err != nil {
			return err
		}

		res.order = order
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockProducts loads every distinct product the items reference, locking
// rows in ascending id order so concurrent orders cannot deadlock. Ids that
// are not UUIDs or not in the catalog are left out of the map.
func (s *orderService) lockProducts(ctx context.Context, repo repository.ProductRepository, items []ledger.LineItem) (map[uuid.UUID]*domain.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(strings.TrimSpace(item.ProductID))
		if err != nil {
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, compareIDs)

	products := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		p, err := repo.FindByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products[id] = p
	}
	return products, nil
}

// productKey maps a requested product id to its map key; uuid.Nil never
// matches a stored product.
func productKey(productID string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(productID))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}

func sortedIDs(products map[uuid.UUID]*domain.Product) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareIDs)
	return ids
}

// afterCommit records metrics, publishes the order event and reports low
// stock. Failures here never undo the committed order.
func (s *orderService) afterCommit(ctx context.Context, res *ledgerResult) {
	order := res.order

	s.metrics.OrdersCreated.WithLabelValues(order.Source).Inc()
	s.metrics.SkippedLines.Add(float64(len(res.skipped)))
	if res.matched {
		s.metrics.PointsEarned.Add(float64(order.EarnedPoints))
		s.metrics.PointsRedeemed.Add(float64(order.PointsDebited))
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.String("total_cost", order.TotalCost.String()),
		zap.Int("earned_points", order.EarnedPoints),
		zap.Bool("customer_matched", res.matched),
		zap.Int("skipped_lines", len(res.skipped)),
	)

	for _, alert := range res.lowStock {
		s.metrics.LowStockCrossings.Inc()
		s.logger.Warn("Product reached minimum stock",
			zap.String("product_id", alert.id.String()),
			zap.String("product_name", alert.name),
			zap.Int("stock", alert.stock),
			zap.Int("min_stock", alert.minStock),
		)
	}

	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderCreated(pubCtx, events.NewOrderCreated(order)); err != nil {
		s.metrics.EventPublishFailures.Inc()
		s.logger.Error("Failed to publish order event",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidPoints):
		return metrics.ReasonValidation
	case errors.Is(err, ledger.ErrProductNotFound):
		return metrics.ReasonMissingProduct
	case errors.Is(err, ledger.ErrCustomerNotFound):
		return metrics.ReasonMissingCustomer
	case errors.Is(err, ledger.ErrInsufficientPoints):
		return metrics.ReasonPoints
	case errors.Is(err, ErrOrderNumberExhausted):
		return metrics.ReasonOrderNumber
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return metrics.ReasonTimeout
	}
	return metrics.ReasonInternal
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.orders.FindByOrderNumber(ctx, strings.ToUpper(strings.TrimSpace(orderNumber)))
}

func (s *orderService) ListOrders(ctx context.Context, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orders.List(ctx, page, pageSize)
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	return s.orders.ListByCustomer(ctx, customerID, page, pageSize)
}
