package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, "skip", cfg.Ledger.MissingReferences)
	assert.Equal(t, "clamp", cfg.Ledger.OverRedemption)
	assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, 5, cfg.Ledger.OrderNumberAttempts)
	assert.Equal(t, "crm.orders", cfg.Kafka.OrdersTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("LEDGER_MISSING_REFERENCES", "REJECT")
	t.Setenv("LEDGER_TIMEOUT_SECONDS", "2")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")

	cfg := Load()

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "reject", cfg.Ledger.MissingReferences)
	assert.Equal(t, 2*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,b, "))
}
