package config

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Jobs     JobsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver      string // postgres or sqlite
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	SQLitePath  string
	TxIsolation sql.IsolationLevel
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	FrontendURL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env                   string
	JWTSecret             string
	InitialBalance        decimal.Decimal
	DefaultCommissionRate decimal.Decimal
	MinimumStake          decimal.Decimal
}

// RedisConfig holds the pool stats cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolStatsTTL time.Duration
}

// KafkaConfig holds domain event publishing settings. No brokers means events are dropped.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JobsConfig holds background job settings
type JobsConfig struct {
	ReconcileInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "betting_pool"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("DB_SQLITE_PATH", "betting_pool.db"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		App: AppConfig{
			Env:       getEnv("ENV", "local"),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "betting-pool.events"),
		},
	}

	var err error
	if config.Database.TxIsolation, err = parseIsolation(getEnv("DB_TX_ISOLATION", "read_committed")); err != nil {
		return nil, err
	}
	if config.App.InitialBalance, err = parseDecimal("INITIAL_BALANCE", "0.00"); err != nil {
		return nil, err
	}
	if config.App.DefaultCommissionRate, err = parseDecimal("DEFAULT_COMMISSION_RATE", "1.00"); err != nil {
		return nil, err
	}
	if config.App.MinimumStake, err = parseDecimal("MINIMUM_STAKE", "10"); err != nil {
		return nil, err
	}
	if config.Redis.PoolStatsTTL, err = parseDuration("POOL_STATS_TTL", "30s"); err != nil {
		return nil, err
	}
	if config.Redis.DB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if config.Jobs.ReconcileInterval, err = parseDuration("RECONCILE_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Database.Driver)
	}

	if config.App.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("INITIAL_BALANCE must not be negative")
	}

	if config.App.DefaultCommissionRate.IsNegative() || config.App.DefaultCommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("DEFAULT_COMMISSION_RATE must be between 0 and 100")
	}

	if !config.App.MinimumStake.IsPositive() {
		return nil, fmt.Errorf("MINIMUM_STAKE must be positive")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseDecimal(key, defaultValue string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, defaultValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseIsolation(value string) (sql.IsolationLevel, error) {
	switch strings.ToLower(value) {
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	case "default":
		return sql.LevelDefault, nil
	}
	return sql.LevelDefault, fmt.Errorf("invalid DB_TX_ISOLATION %q", value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
