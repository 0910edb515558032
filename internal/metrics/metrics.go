package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons recorded by OrdersFailed
const (
	ReasonValidation      = "validation"
	ReasonMissingProduct  = "missing_product"
	ReasonMissingCustomer = "missing_customer"
	ReasonPoints          = "insufficient_points"
	ReasonOrderNumber     = "order_number_exhausted"
	ReasonTimeout         = "timeout"
	ReasonInternal        = "internal"
)

type Registry struct {
	reg *prometheus.Registry

	OrdersCreated        *prometheus.CounterVec
	OrdersFailed         *prometheus.CounterVec
	OrderNumberConflicts prometheus.Counter
	SkippedLines         prometheus.Counter
	PointsEarned         prometheus.Counter
	PointsRedeemed       prometheus.Counter
	LedgerLatencySec     prometheus.Histogram
	LowStockCrossings    prometheus.Counter
	EventPublishFailures prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_orders_created_total",
		Help: "Orders committed by the ledger.",
	}, []string{"source"})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_orders_failed_total",
		Help: "Orders rejected or rolled back.",
	}, []string{"reason"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_order_number_conflicts_total",
		Help: "Order number candidates that were already taken.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_order_lines_skipped_total",
		Help: "Order lines whose product did not resolve.",
	})
	earned := prometheus.NewCounter(prometheus.CounterOpts{Name: "crm_loyalty_points_earned_total"})
	redeemed := prometheus.NewCounter(prometheus.CounterOpts{Name: "crm_loyalty_points_redeemed_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crm_ledger_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crm_low_stock_crossings_total",
		Help: "Products that reached their minimum stock through an order.",
	})
	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "crm_event_publish_failures_total"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ordersCreated, ordersFailed, conflicts, skipped, earned, redeemed, latency, lowStock, publishFailures,
	)

	return &Registry{
		reg:                  r,
		OrdersCreated:        ordersCreated,
		OrdersFailed:         ordersFailed,
		OrderNumberConflicts: conflicts,
		SkippedLines:         skipped,
		PointsEarned:         earned,
		PointsRedeemed:       redeemed,
		LedgerLatencySec:     latency,
		LowStockCrossings:    lowStock,
		EventPublishFailures: publishFailures,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
