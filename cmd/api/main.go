package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"noun-crm/internal/config"
	"noun-crm/internal/database"
	"noun-crm/internal/logger"
	"noun-crm/internal/server"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *server.Server, logger *zap.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// in-flight orders get 30 seconds to commit
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := apiServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")
	done <- true
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (*server.Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Info("Using in-memory store, all data is lost on restart")
		return server.MemoryBackend(), nil
	case config.StoreDriverPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		log.Info("Database health check", zap.Any("health", db.Health(ctx)))

		if err := database.RunMigrations(db.DB(), cfg.Database.MigrationsDir, log); err != nil {
			db.Close()
			return nil, err
		}
		return server.PostgresBackend(db), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func main() {
	// Money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting NOUN CRM API",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
	)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	opts, err := server.LedgerOptions(cfg.Ledger)
	if err != nil {
		log.Fatal("Invalid ledger configuration", zap.Error(err))
	}

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}

	srv := server.NewServer(cfg, log, backend, opts)

	if err := srv.Seed(ctx); err != nil {
		log.Fatal("Failed to seed data", zap.Error(err))
	}

	done := make(chan bool, 1)
	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
