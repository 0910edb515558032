package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/repository"
)

var ErrInvalidPeriod = errors.New("report period must end after it starts")

// ReportService aggregates the order ledger
type ReportService interface {
	SalesSummary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error)
}

type reportService struct {
	orders repository.OrderRepository
}

// NewReportService creates a new instance of ReportService
func NewReportService(orders repository.OrderRepository) ReportService {
	return &reportService{orders: orders}
}

// SalesSummary covers orders created in [from, to)
func (s *reportService) SalesSummary(ctx context.Context, from, to time.Time) (*domain.SalesSummary, error) {
	if !to.After(from) {
		return nil, ErrInvalidPeriod
	}
	summary, err := s.orders.Summary(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to build sales summary: %w", err)
	}
	return summary, nil
}
