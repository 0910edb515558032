package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const migrationsDir = "../../migrations"

// ledgerMigrations lists the migrations in apply order with the table each one owns
var ledgerMigrations = []struct {
	file  string
	table string
}{
	{"00001_create_users_table.sql", "users"},
	{"00002_create_refresh_tokens_table.sql", "refresh_tokens"},
	{"00003_create_categories_table.sql", "categories"},
	{"00004_create_products_table.sql", "products"},
	{"00005_create_customers_table.sql", "customers"},
	{"00006_create_orders_table.sql", "orders"},
	{"00007_create_order_items_table.sql", "order_items"},
	{"00008_create_updated_at_trigger.sql", ""},
	{"00009_add_orders_points_debited.sql", ""},
}

func readMigration(t *testing.T, file string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, file))
	require.NoError(t, err, "migration %s", file)
	return string(content)
}

func TestMigrations_AreGooseFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	require.NoError(t, err)
	require.Len(t, files, len(ledgerMigrations))

	for _, m := range ledgerMigrations {
		t.Run(m.file, func(t *testing.T) {
			sql := readMigration(t, m.file)
			for _, directive := range []string{"-- +goose Up", "-- +goose Down", "-- +goose StatementBegin", "-- +goose StatementEnd"} {
				assert.Contains(t, sql, directive)
			}
			if m.table == "" {
				return
			}
			assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+m.table+" (")
			assert.Contains(t, sql, "DROP TABLE IF EXISTS "+m.table+";")
		})
	}
}

func TestMigrations_LedgerColumns(t *testing.T) {
	cases := []struct {
		file    string
		columns []string
	}{
		{"00004_create_products_table.sql", []string{
			"price DECIMAL", "cost_price DECIMAL", "kind VARCHAR", "category_id UUID",
			"stock INTEGER", "min_stock INTEGER", "FOREIGN KEY (category_id)",
		}},
		{"00005_create_customers_table.sql", []string{
			"phone_key VARCHAR(32) UNIQUE NOT NULL", "CHECK (points >= 0)", "total_spent DECIMAL",
		}},
		{"00006_create_orders_table.sql", []string{
			"order_number VARCHAR(16) UNIQUE NOT NULL", "total_cost DECIMAL",
			"earned_points INTEGER", "redeemed_points INTEGER",
		}},
		{"00009_add_orders_points_debited.sql", []string{
			"ADD COLUMN IF NOT EXISTS points_debited INTEGER", "CHECK (points_debited >= 0)", "DROP COLUMN IF EXISTS points_debited",
		}},
		{"00007_create_order_items_table.sql", []string{
			"product_id VARCHAR(64) NOT NULL", "unit_cost DECIMAL", "line_cost DECIMAL", "matched BOOLEAN",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			sql := readMigration(t, tc.file)
			for _, column := range tc.columns {
				assert.Contains(t, sql, column)
			}
		})
	}
}

func TestMigrations_OrdersKeepSoftReferences(t *testing.T) {
	orders := readMigration(t, "00006_create_orders_table.sql")
	assert.NotContains(t, orders, "REFERENCES customers")
	for _, value := range []string{"cash", "card", "transfer", "wallet", "pos", "online", "kiosk", "delivery"} {
		assert.Contains(t, orders, "'"+value+"'")
	}

	items := readMigration(t, "00007_create_order_items_table.sql")
	assert.NotContains(t, items, "REFERENCES products")
	assert.True(t, strings.Contains(items, "REFERENCES orders(id) ON DELETE CASCADE"))
}
