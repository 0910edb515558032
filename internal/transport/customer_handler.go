package transport

import (
	"net/http"

	"noun-crm/internal/middleware"
	"noun-crm/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CustomerRequest is the create/update payload for a loyalty member
type CustomerRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"required,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

// CustomerHandler serves the customer routes
type CustomerHandler struct {
	customerService service.CustomerService
	orderService    service.OrderService
	logger          *zap.Logger
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService service.CustomerService, orderService service.OrderService, logger *zap.Logger) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		orderService:    orderService,
		logger:          logger,
	}
}

// RegisterRoutes mounts /api/customers; every route needs a token and
// deletes need an admin
func (h *CustomerHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/customers", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListCustomers)
		r.Get("/lookup", h.LookupByPhone)
		r.Post("/", h.CreateCustomer)
		r.Get("/{id}", h.GetCustomer)
		r.Get("/{id}/orders", h.ListCustomerOrders)
		r.Put("/{id}", h.UpdateCustomer)
		r.With(adminMiddleware).Delete("/{id}", h.DeleteCustomer)
	})
}

// ListCustomers returns a page of customers, optionally filtered by q
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)

	customers, total, err := h.customerService.ListCustomers(r.Context(), r.URL.Query().Get("q"), page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list customers")
		return
	}
	middleware.RespondWithPage(w, customers, page, pageSize, total)
}

// LookupByPhone finds the customer the till is serving
func (h *CustomerHandler) LookupByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "phone is required")
		return
	}

	customer, err := h.customerService.LookupByPhone(r.Context(), phone)
	if err != nil {
		respondError(w, h.logger, err, "failed to look up customer")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, customer)
}

// GetCustomer returns one customer
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	customer, err := h.customerService.GetCustomer(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to get customer")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, customer)
}

// ListCustomerOrders returns the customer's order history, newest first
func (h *CustomerHandler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	page, pageSize := pagination(r)

	if _, err := h.customerService.GetCustomer(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to get customer")
		return
	}

	orders, total, err := h.orderService.ListCustomerOrders(r.Context(), id, page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "failed to list customer orders")
		return
	}
	middleware.RespondWithPage(w, orders, page, pageSize, total)
}

// CreateCustomer registers a loyalty member
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	customer, err := h.customerService.CreateCustomer(r.Context(), service.CustomerInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		respondError(w, h.logger, err, "failed to create customer")
		return
	}

	h.logger.Info("Customer created", zap.String("customer_id", customer.ID.String()))
	middleware.RespondWithSuccess(w, http.StatusCreated, customer)
}

// UpdateCustomer edits contact details; points and spend are ledger-owned
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CustomerRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	customer, err := h.customerService.UpdateCustomer(r.Context(), id, service.CustomerInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		respondError(w, h.logger, err, "failed to update customer")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, customer)
}

// DeleteCustomer removes a customer; their orders remain
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.customerService.DeleteCustomer(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete customer")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]string{"id": id.String()})
}
