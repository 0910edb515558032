package transport

import (
	"net/http"
	"strings"

	"noun-crm/internal/domain"
	"noun-crm/internal/middleware"
	"noun-crm/internal/repository"
	"noun-crm/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest is the create/update payload for a catalog product
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	CostPrice   decimal.Decimal `json:"cost_price" validate:"gte=0"`
	Kind        string          `json:"category" validate:"required,oneof=coffee mart restaurant"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Stock       int             `json:"stock" validate:"gte=0"`
	MinStock    int             `json:"min_stock" validate:"gte=0"`
}

func (req ProductRequest) input() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Kind:        domain.CategoryKind(req.Kind),
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
	}
}

// CategoryRequest is the create payload for a menu category
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Kind        string `json:"kind" validate:"required,oneof=coffee mart restaurant"`
	Description string `json:"description"`
}

// ProductHandler serves the catalog routes
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes mounts /api/products and /api/categories. Reads are public,
// writes need an admin token.
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/low-stock", h.ListLowStock)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, adminMiddleware)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})
	})

	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.With(authMiddleware, adminMiddleware).Post("/", h.CreateCategory)
	})
}

// ListProducts returns a page of the catalog
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize := pagination(r)

	query := service.ProductQuery{
		Kind:      domain.CategoryKind(strings.ToLower(q.Get("kind"))),
		Query:     q.Get("q"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.Get("sort_by"),
		SortOrder: repository.SortOrder(strings.ToUpper(q.Get("sort_order"))),
	}
	if query.Kind != "" && !query.Kind.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid kind")
		return
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		query.CategoryID = &id
	}

	products, total, err := h.productService.ListProducts(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err, "failed to list products")
		return
	}

	middleware.RespondWithPage(w, products, page, pageSize, total)
}

// ListLowStock returns products at or below their minimum stock
func (h *ProductHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListLowStock(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to list low stock products")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, products)
}

// GetProduct returns one product
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to get product")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, product)
}

// CreateProduct adds a product to the catalog
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), req.input())
	if err != nil {
		respondError(w, h.logger, err, "failed to create product")
		return
	}

	middleware.RespondWithSuccess(w, http.StatusCreated, product)
}

// UpdateProduct replaces a product's editable fields
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.input())
	if err != nil {
		respondError(w, h.logger, err, "failed to update product")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, product)
}

// DeleteProduct removes a product; past orders keep their lines
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RespondWithSuccess(w, http.StatusOK, map[string]string{"id": id.String()})
}

// ListCategories returns every menu category
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.ListCategories(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "failed to list categories")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, categories)
}

// CreateCategory adds a menu category
func (h *ProductHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeRequest(w, r, h.logger, &req) {
		return
	}

	category, err := h.productService.CreateCategory(r.Context(), req.Name, domain.CategoryKind(req.Kind), req.Description)
	if err != nil {
		respondError(w, h.logger, err, "failed to create category")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusCreated, category)
}
