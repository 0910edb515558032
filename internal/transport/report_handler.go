package transport

import (
	"net/http"
	"time"

	"noun-crm/internal/middleware"
	"noun-crm/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler serves the admin reports
type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
	now           func() time.Time
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
		now:           time.Now,
	}
}

// RegisterRoutes mounts /api/reports for admins
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		r.Get("/sales", h.SalesSummary)
	})
}

// SalesSummary aggregates orders in [from, to). Without parameters it
// covers the last 30 days; a date-only "to" includes that whole day.
func (h *ReportHandler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := h.now().UTC()
	from := to.AddDate(0, 0, -30)

	if raw := q.Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid from")
			return
		}
		from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid to")
			return
		}
		if len(raw) == len(time.DateOnly) {
			parsed = parsed.AddDate(0, 0, 1)
		}
		to = parsed
	}

	summary, err := h.reportService.SalesSummary(r.Context(), from, to)
	if err != nil {
		respondError(w, h.logger, err, "failed to build sales summary")
		return
	}
	middleware.RespondWithSuccess(w, http.StatusOK, summary)
}
