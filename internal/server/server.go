package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"noun-crm/internal/config"
	"noun-crm/internal/database"
	"noun-crm/internal/events"
	"noun-crm/internal/ledger"
	"noun-crm/internal/metrics"
	custommiddleware "noun-crm/internal/middleware"
	"noun-crm/internal/repository"
	"noun-crm/internal/repository/memory"
	"noun-crm/internal/seed"
	"noun-crm/internal/service"
	"noun-crm/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend is the storage the API runs on
type Backend struct {
	UnitOfWork    repository.UnitOfWork
	Products      repository.ProductRepository
	Categories    repository.CategoryRepository
	Customers     repository.CustomerRepository
	Orders        repository.OrderRepository
	Users         repository.UserRepository
	RefreshTokens repository.RefreshTokenRepository

	health func(ctx context.Context) map[string]string
	close  func() error
}

// MemoryBackend keeps every record in process memory
func MemoryBackend() *Backend {
	store := memory.NewStore()
	return &Backend{
		UnitOfWork:    store,
		Products:      store.Products(),
		Categories:    store.Categories(),
		Customers:     store.Customers(),
		Orders:        store.Orders(),
		Users:         store.Users(),
		RefreshTokens: store.RefreshTokens(),
		health: func(context.Context) map[string]string {
			return map[string]string{"status": "up", "driver": config.StoreDriverMemory}
		},
		close: func() error { return nil },
	}
}

// PostgresBackend runs the repositories on db
func PostgresBackend(db database.Service) *Backend {
	conn := db.DB()
	return &Backend{
		UnitOfWork:    repository.NewUnitOfWork(conn),
		Products:      repository.NewProductRepository(conn),
		Categories:    repository.NewCategoryRepository(conn),
		Customers:     repository.NewCustomerRepository(conn),
		Orders:        repository.NewOrderRepository(conn),
		Users:         repository.NewUserRepository(conn),
		RefreshTokens: repository.NewRefreshTokenRepository(conn),
		health:        db.Health,
		close:         db.Close,
	}
}

// SeedStores exposes the repositories demo seeding writes to
func (b *Backend) SeedStores() seed.Stores {
	return seed.Stores{
		Categories: b.Categories,
		Products:   b.Products,
		Customers:  b.Customers,
	}
}

// Services are the business services behind the HTTP handlers
type Services struct {
	Users     service.UserService
	Products  service.ProductService
	Customers service.CustomerService
	Orders    service.OrderService
	Reports   service.ReportService
}

type Server struct {
	*http.Server
	Services  Services
	config    *config.Config
	logger    *zap.Logger
	backend   *Backend
	publisher events.Publisher
	redis     *redis.Client
	metrics   *metrics.Registry
}

// LedgerOptions turns the ledger configuration into service options
func LedgerOptions(cfg config.LedgerConfig) (service.LedgerOptions, error) {
	missing, err := ledger.ParseMissingReferencePolicy(cfg.MissingReferences)
	if err != nil {
		return service.LedgerOptions{}, err
	}
	redemption, err := ledger.ParseRedemptionPolicy(cfg.OverRedemption)
	if err != nil {
		return service.LedgerOptions{}, err
	}
	return service.LedgerOptions{
		MissingReferences:   missing,
		OverRedemption:      redemption,
		Timeout:             cfg.Timeout,
		OrderNumberAttempts: cfg.OrderNumberAttempts,
	}, nil
}

func NewServer(cfg *config.Config, logger *zap.Logger, backend *Backend, opts service.LedgerOptions) *Server {
	registry := metrics.NewRegistry()
	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, logger)

	services := Services{
		Users: service.NewUserService(backend.Users, backend.RefreshTokens, service.TokenConfig{
			Secret:        cfg.JWT.Secret,
			AccessExpiry:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
			RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
		}),
		Products:  service.NewProductService(backend.Products, backend.Categories, logger),
		Customers: service.NewCustomerService(backend.Customers),
		Orders:    service.NewOrderService(backend.UnitOfWork, backend.Orders, publisher, registry, opts, logger),
		Reports:   service.NewReportService(backend.Orders),
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.IsDevelopment()))
	router.Use(custommiddleware.BodyLimit(custommiddleware.DefaultMaxBodyBytes))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := backend.health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithSuccess(w, status, health)
	})
	router.Method(http.MethodGet, "/metrics", registry.Handler())

	authMiddleware := custommiddleware.AuthMiddleware(services.Users, logger)
	adminMiddleware := custommiddleware.RequireAdmin(logger)

	var redisClient *redis.Client
	createLimiter := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		createLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "rate:orders",
		}, logger)
		logger.Info("Order creation rate limit enabled",
			zap.Int("requests", cfg.RateLimit.Requests),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	transport.NewAuthHandler(services.Users, logger).RegisterRoutes(router, authMiddleware)
	transport.NewProductHandler(services.Products, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewCustomerHandler(services.Customers, services.Orders, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)
	transport.NewOrderHandler(services.Orders, logger).RegisterRoutes(router, authMiddleware, createLimiter)
	transport.NewReportHandler(services.Reports, logger).RegisterRoutes(router, authMiddleware, adminMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Services:  services,
		config:    cfg,
		logger:    logger,
		backend:   backend,
		publisher: publisher,
		redis:     redisClient,
		metrics:   registry,
	}
}

// Seed loads the admin account and demo data into the backend
func (s *Server) Seed(ctx context.Context) error {
	_, err := seed.Run(ctx, s.backend.SeedStores(), s.Services.Users, s.config.Seed, s.logger)
	return err
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.backend.close(); err != nil {
		s.logger.Error("Failed to close storage", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
