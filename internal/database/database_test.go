package database

import (
	"testing"

	"noun-crm/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     "5432",
		User:     "noun",
		Password: "p@ss",
		Database: "crm",
		Schema:   "public",
	})

	assert.Equal(t, "postgres://noun:p%40ss@db:5432/crm?search_path=public&sslmode=disable", dsn)
}
