package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Seed      SeedConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Kafka     KafkaConfig
	Ledger    LedgerConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type StoreConfig struct {
	Driver string
}

type SeedConfig struct {
	Demo          bool
	AdminEmail    string
	AdminPassword string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type CORSConfig struct {
	AllowedOrigins []string
}

type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

// LedgerConfig holds the order ledger policies.
type LedgerConfig struct {
	// MissingReferences is "skip" or "reject".
	MissingReferences string
	// OverRedemption is "clamp" or "reject".
	OverRedemption      string
	Timeout             time.Duration
	OrderNumberAttempts int
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func Load() *Config {
	// .env.local overrides are optional and only fill variables not already set
	if err := godotenv.Load(".env.local"); err == nil {
		log.Printf("Loaded overrides from .env.local")
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("STORE_DRIVER", StoreDriverMemory)
	viper.SetDefault("SEED_DEMO", true)
	viper.SetDefault("SEED_ADMIN_EMAIL", "admin@noun.local")
	viper.SetDefault("SEED_ADMIN_PASSWORD", "changeme123")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("KAFKA_ORDERS_TOPIC", "crm.orders")
	viper.SetDefault("LEDGER_MISSING_REFERENCES", "skip")
	viper.SetDefault("LEDGER_OVER_REDEMPTION", "clamp")
	viper.SetDefault("LEDGER_TIMEOUT_SECONDS", 5)
	viper.SetDefault("LEDGER_ORDER_NUMBER_ATTEMPTS", 5)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:     viper.GetString("SERVER_PORT"),
			Env:      viper.GetString("SERVER_ENV"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(viper.GetString("STORE_DRIVER")),
		},
		Seed: SeedConfig{
			Demo:          viper.GetBool("SEED_DEMO"),
			AdminEmail:    viper.GetString("SEED_ADMIN_EMAIL"),
			AdminPassword: viper.GetString("SEED_ADMIN_PASSWORD"),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Database:      viper.GetString("DB_DATABASE"),
			Schema:        viper.GetString("DB_SCHEMA"),
			MigrationsDir: viper.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  viper.GetBool("RATE_LIMIT_ENABLED"),
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(viper.GetString("KAFKA_BROKERS")),
			OrdersTopic: viper.GetString("KAFKA_ORDERS_TOPIC"),
		},
		Ledger: LedgerConfig{
			MissingReferences:   strings.ToLower(viper.GetString("LEDGER_MISSING_REFERENCES")),
			OverRedemption:      strings.ToLower(viper.GetString("LEDGER_OVER_REDEMPTION")),
			Timeout:             time.Duration(viper.GetInt("LEDGER_TIMEOUT_SECONDS")) * time.Second,
			OrderNumberAttempts: viper.GetInt("LEDGER_ORDER_NUMBER_ATTEMPTS"),
		},
	}
}

// splitList turns a comma separated value into a trimmed list without empties.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
