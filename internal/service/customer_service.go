package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/ledger"
	"noun-crm/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidCustomer = errors.New("invalid customer")

// CustomerInput carries the editable customer fields. Points and spend are
// only changed by the order ledger.
type CustomerInput struct {
	Name  string
	Phone string
	Email string
}

// CustomerService defines the loyalty member operations
type CustomerService interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, in CustomerInput) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	// LookupByPhone finds a customer ignoring whitespace in the phone
	LookupByPhone(ctx context.Context, phone string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, query string, page, pageSize int) ([]*domain.Customer, int, error)
}

type customerService struct {
	customers repository.CustomerRepository
}

// NewCustomerService creates a new instance of CustomerService
func NewCustomerService(customers repository.CustomerRepository) CustomerService {
	return &customerService{customers: customers}
}

func validateCustomer(in CustomerInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCustomer)
	}
	if ledger.NormalizePhone(in.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrInvalidCustomer)
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	if err := validateCustomer(in); err != nil {
		return nil, err
	}
	now := time.Now()
	customer := &domain.Customer{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.TrimSpace(in.Email),
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, in CustomerInput) (*domain.Customer, error) {
	if err := validateCustomer(in); err != nil {
		return nil, err
	}
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.Name = strings.TrimSpace(in.Name)
	customer.Phone = strings.TrimSpace(in.Phone)
	customer.Email = strings.TrimSpace(in.Email)
	customer.UpdatedAt = time.Now()

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return s.customers.Delete(ctx, id)
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return s.customers.FindByID(ctx, id)
}

func (s *customerService) LookupByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return s.customers.FindByPhone(ctx, phone)
}

func (s *customerService) ListCustomers(ctx context.Context, query string, page, pageSize int) ([]*domain.Customer, int, error) {
	return s.customers.List(ctx, query, page, pageSize)
}
