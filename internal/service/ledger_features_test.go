package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"noun-crm/internal/domain"
	"noun-crm/internal/ledger"
	"noun-crm/internal/repository/memory"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ledgerScenario struct {
	store     *memory.Store
	opts      LedgerOptions
	products  map[string]*domain.Product
	customers map[string]*domain.Customer
	result    *OrderConfirmation
	err       error
}

func (s *ledgerScenario) reset() {
	s.store = memory.NewStore()
	s.opts = LedgerOptions{OrderNumberAttempts: 10}
	s.products = map[string]*domain.Product{}
	s.customers = map[string]*domain.Customer{}
	s.result = nil
	s.err = nil
}

func (s *ledgerScenario) theCatalogContains(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		stock, _ := strconv.Atoi(row.Cells[4].Value)
		minStock, _ := strconv.Atoi(row.Cells[5].Value)
		p := &domain.Product{
			ID:        uuid.New(),
			Name:      row.Cells[1].Value,
			Price:     decimal.RequireFromString(row.Cells[2].Value),
			CostPrice: decimal.RequireFromString(row.Cells[3].Value),
			Kind:      domain.KindCoffee,
			Stock:     stock,
			MinStock:  minStock,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.store.Products().Create(context.Background(), p); err != nil {
			return err
		}
		s.products[row.Cells[0].Value] = p
	}
	return nil
}

func (s *ledgerScenario) aCustomerWithPhoneAndPoints(name, phone string, points int) error {
	c := &domain.Customer{
		ID:         uuid.New(),
		Name:       name,
		Phone:      phone,
		Points:     points,
		TotalSpent: decimal.Zero,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	s.customers[name] = c
	return s.store.Customers().Create(context.Background(), c)
}

func (s *ledgerScenario) theOverRedemptionPolicyIs(policy string) error {
	p, err := ledger.ParseRedemptionPolicy(policy)
	s.opts.OverRedemption = p
	return err
}

func (s *ledgerScenario) theMissingReferencePolicyIs(policy string) error {
	p, err := ledger.ParseMissingReferencePolicy(policy)
	s.opts.MissingReferences = p
	return err
}

func (s *ledgerScenario) place(in CreateOrderInput) {
	svc := NewOrderService(s.store, s.store.Orders(), nil, nil, s.opts, zap.NewNop())
	s.result, s.err = svc.CreateOrder(context.Background(), in)
}

func (s *ledgerScenario) anOrderIsPlacedFor(quantity int, sku, total string) error {
	productID := "unknown-" + sku
	if p, ok := s.products[sku]; ok {
		productID = p.ID.String()
	}
	s.place(CreateOrderInput{
		Items:       []ledger.LineItem{{ProductID: productID, Quantity: quantity}},
		TotalAmount: decimal.RequireFromString(total),
	})
	return nil
}

func (s *ledgerScenario) anOrderIsPlacedByPhone(phone string, redeemed int, total string) error {
	s.place(CreateOrderInput{
		CustomerPhone:  phone,
		TotalAmount:    decimal.RequireFromString(total),
		RedeemedPoints: redeemed,
	})
	return nil
}

func (s *ledgerScenario) theOrderSucceeds() error {
	if s.err != nil {
		return fmt.Errorf("expected order to succeed, got %v", s.err)
	}
	if !ledger.OrderNumberPattern.MatchString(s.result.OrderNumber) {
		return fmt.Errorf("unexpected order number %q", s.result.OrderNumber)
	}
	return nil
}

func (s *ledgerScenario) theOrderFailsWith(message string) error {
	if s.err == nil {
		return fmt.Errorf("expected failure containing %q", message)
	}
	if !strings.Contains(s.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %v", message, s.err)
	}
	return nil
}

func (s *ledgerScenario) theTotalCostIs(expected string) error {
	if !s.result.Order.TotalCost.Equal(decimal.RequireFromString(expected)) {
		return fmt.Errorf("expected total cost %s, got %s", expected, s.result.Order.TotalCost)
	}
	return nil
}

func (s *ledgerScenario) theOrderEarnsPoints(points int) error {
	if s.result.EarnedPoints != points {
		return fmt.Errorf("expected %d earned points, got %d", points, s.result.EarnedPoints)
	}
	return nil
}

func (s *ledgerScenario) hasInStock(sku string, stock int) error {
	p, err := s.store.Products().FindByID(context.Background(), s.products[sku].ID)
	if err != nil {
		return err
	}
	if p.Stock != stock {
		return fmt.Errorf("expected %s stock %d, got %d", sku, stock, p.Stock)
	}
	return nil
}

func (s *ledgerScenario) theCustomerIsMatched() error {
	if !s.result.CustomerMatched {
		return fmt.Errorf("expected a customer match")
	}
	return nil
}

func (s *ledgerScenario) theCustomerIsNotMatched() error {
	if s.result.CustomerMatched {
		return fmt.Errorf("expected no customer match")
	}
	return nil
}

func (s *ledgerScenario) hasPoints(name string, points int) error {
	c, err := s.store.Customers().FindByID(context.Background(), s.customers[name].ID)
	if err != nil {
		return err
	}
	if c.Points != points {
		return fmt.Errorf("expected %s to have %d points, got %d", name, points, c.Points)
	}
	return nil
}

func (s *ledgerScenario) linesAreSkipped(n int) error {
	if len(s.result.SkippedProductIDs) != n {
		return fmt.Errorf("expected %d skipped lines, got %v", n, s.result.SkippedProductIDs)
	}
	return nil
}

func initializeLedgerScenario(ctx *godog.ScenarioContext) {
	s := &ledgerScenario{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		s.reset()
		return ctx, nil
	})

	ctx.Step(`^the catalog contains:$`, s.theCatalogContains)
	ctx.Step(`^a customer "([^"]*)" with phone "([^"]*)" and (\d+) points$`, s.aCustomerWithPhoneAndPoints)
	ctx.Step(`^the over-redemption policy is "([^"]*)"$`, s.theOverRedemptionPolicyIs)
	ctx.Step(`^the missing reference policy is "([^"]*)"$`, s.theMissingReferencePolicyIs)

	ctx.Step(`^an order is placed for (\d+) "([^"]*)" with total ([\d.]+)$`, s.anOrderIsPlacedFor)
	ctx.Step(`^an order is placed by phone "([^"]*)" redeeming (\d+) points with total ([\d.]+)$`, s.anOrderIsPlacedByPhone)

	ctx.Step(`^the order succeeds$`, s.theOrderSucceeds)
	ctx.Step(`^the order fails with "([^"]*)"$`, s.theOrderFailsWith)
	ctx.Step(`^the total cost is ([\d.]+)$`, s.theTotalCostIs)
	ctx.Step(`^the order earns (\d+) points$`, s.theOrderEarnsPoints)
	ctx.Step(`^"([^"]*)" has (\d+) in stock$`, s.hasInStock)
	ctx.Step(`^the customer is matched$`, s.theCustomerIsMatched)
	ctx.Step(`^the customer is not matched$`, s.theCustomerIsNotMatched)
	ctx.Step(`^"([^"]*)" has (\d+) points$`, s.hasPoints)
	ctx.Step(`^(\d+) lines? (?:is|are) skipped$`, s.linesAreSkipped)
}

func TestLedgerFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeLedgerScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
