package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"noun-crm/internal/ledger"
	"noun-crm/internal/middleware"
	"noun-crm/internal/repository"
	"noun-crm/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusFor maps service, ledger and repository errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidPoints),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidCustomer),
		errors.Is(err, service.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrProductNotFound),
		errors.Is(err, ledger.ErrCustomerNotFound),
		errors.Is(err, ledger.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrCustomerNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrCategoryAlreadyExists),
		errors.Is(err, repository.ErrCustomerAlreadyExists),
		errors.Is(err, repository.ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrOrderNumberExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Server errors are logged
// and their text is replaced by fallback.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, status, fallback)
		return
	}
	logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	middleware.RespondWithError(w, status, err.Error())
}

// decodeRequest decodes and validates a JSON body, writing the 400 itself.
// It reports whether the handler should continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pathID parses the {name} URL parameter as a UUID, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and page_size, defaulting to 1 and 20
func pagination(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates (midnight UTC)
func parseTimeParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}
