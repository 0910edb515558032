package transport

import (
	"net/http"

	"noun-crm/internal/ledger"
	"noun-crm/internal/middleware"
	"noun-crm/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderLineRequest is one requested product line
type OrderLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CreateOrderRequest is a sale posted by the till. Items may be empty.
type CreateOrderRequest struct {
	CustomerPhone  string             `json:"customer_phone" validate:"omitempty,phone"`
	Items          []OrderLineRequest `json:"items" validate:"dive"`
	TotalAmount    decimal.Decimal    `json:"total_amount" validate:"gte=0"`
	RedeemedPoints int                `json:"redeemed_points" validate:"gte=0"`
	PaymentMethod  string             `json:"payment_method" validate:"omitempty,oneof=cash card transfer wallet"`
	Source         string             `json:"source" validate:"omitempty,oneof=pos online kiosk delivery"`
}

func (req CreateOrderRequest) input() service.CreateOrderInput {
	items := make([]ledger.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ledger.LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return service.CreateOrderInput{
		CustomerPhone:  req.CustomerPhone,
		Items:          items,
		TotalAmount:    req.TotalAmount,
		RedeemedPoints: req.RedeemedPoints,
		PaymentMethod:  req.PaymentMethod,
		Source:         req.Source,
	}
}

// OrderHandler serves the order routes
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes mounts /api/orders behind auth. createLimiter, when not
// nil, guards order creation only.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, createLimiter func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		if createLimiter != nil {
			r.With(createLimiter).Post("/", h.CreateOrder)
		} else {
			r.Post("/", h.CreateOrder)
		}
		r.Get("/", h.ListOrders)
		r.Get("/number/{orderNumber}", h.GetOrderByNumber)
		r.Get("/{id}", h.GetOrder)
	})
}

// CreateOrder records a sale through the order ledger
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	confirmation, err := h.orderService.CreateOrder(r.Context(), req.input())
	if err != nil {
		respondError(w, h.logger, err, "failed to create order")
		return
	}

	middleware.RespondWithSuccess(w, http.StatusCreated, confirmation)
}

// ListOrders returns a page of orders, newest first
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	orders, total, err := h.orderService.ListOrders(r.Context(), page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list orders")
		return
	}
	middleware.RespondWithPage(w, orders, page, pageSize, total)
}

// GetOrder returns one order by internal id
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, order)
}

// GetOrderByNumber returns one order by its display number
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrderByNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		respondError(w, h.logger, err, "failed to get order")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, order)
}
