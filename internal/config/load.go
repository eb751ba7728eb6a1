package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. CARD_SERVER_PORT or CARD_SERVICES_ACCOUNT_URL.
const EnvPrefix = "CARD"

// keys without defaults still have to be bound so Unmarshal sees them.
var boundKeys = []string{
	"database.url",
	"redis.password",
	"services.account_url",
	"services.transaction_url",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory is loaded into the environment first;
// variables already present in the environment are not overridden.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Events.Driver == "redis" && cfg.Redis.Addr == "" {
		return fmt.Errorf("config validation failed: redis.addr is required when events.driver is redis")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("services.timeout_ms", 5000)

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval_seconds", 60)
	v.SetDefault("breaker.open_timeout_seconds", 30)
	v.SetDefault("breaker.failure_threshold", 5)

	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "card-service"
	}
	v.SetDefault("events.driver", "redis")
	v.SetDefault("events.group", "card-service")
	v.SetDefault("events.consumer", consumer)
	v.SetDefault("events.orchestrator_topic", "orchestrator-events")
	v.SetDefault("events.result_topic", "orchestrator-result")
	v.SetDefault("events.balance_trigger_topic", "balance-trigger")
	v.SetDefault("events.balance_topic", "card-balance")
	v.SetDefault("events.block_ms", 2000)

	v.SetDefault("saga.worker_count", 2)
	v.SetDefault("saga.queue_size", 100)
	v.SetDefault("saga.stuck_age_minutes", 10)
	v.SetDefault("saga.sweep_interval_minutes", 5)

	v.SetDefault("card.bin", "454545")
	v.SetDefault("card.credit_validity_years", 3)
	v.SetDefault("card.debit_validity_years", 5)
	v.SetDefault("card.number_retries", 5)
}
