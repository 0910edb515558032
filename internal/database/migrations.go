package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// RunMigrations applies every pending migration in migrationsDir and logs the
// schema version before and after.
func RunMigrations(db *sql.DB, migrationsDir string, logger *zap.Logger) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	before, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Checking for pending migrations",
		zap.String("dir", migrationsDir),
		zap.Int64("version", before),
	)

	if err := goose.UpContext(context.Background(), db, migrationsDir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	after, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	logger.Info("Migrations completed",
		zap.Int64("from_version", before),
		zap.Int64("to_version", after),
	)
	return nil
}

// SchemaVersion returns the latest applied migration version
func SchemaVersion(db *sql.DB) (int64, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	version, err := goose.GetDBVersion(db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
