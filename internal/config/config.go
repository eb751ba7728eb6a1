package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Services ServicesConfig `mapstructure:"services" validate:"required"`
	Breaker  BreakerConfig  `mapstructure:"breaker" validate:"required"`
	Events   EventsConfig   `mapstructure:"events" validate:"required"`
	Saga     SagaConfig     `mapstructure:"saga" validate:"required"`
	Card     CardConfig     `mapstructure:"card" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ShutdownTimeoutSeconds bounds graceful shutdown of the HTTP server and workers.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// RedisConfig points at the Redis instance that carries the event streams.
// Addr is only required when the events driver is "redis".
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// ServicesConfig lists the base URLs of the remote ledgers.
type ServicesConfig struct {
	AccountURL     string `mapstructure:"account_url" validate:"required,url"`
	TransactionURL string `mapstructure:"transaction_url" validate:"required,url"`
	TimeoutMS      int    `mapstructure:"timeout_ms" validate:"gte=1"`
}

// Timeout returns the per-call timeout for outbound requests.
func (c ServicesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// BreakerConfig tunes the per-target circuit breakers.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32 `mapstructure:"max_requests" validate:"gte=1"`
	// IntervalSeconds is the closed-state window after which failure counts reset.
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"gte=0"`
	// OpenTimeoutSeconds is how long the breaker stays open before probing.
	OpenTimeoutSeconds int `mapstructure:"open_timeout_seconds" validate:"gte=1"`
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32 `mapstructure:"failure_threshold" validate:"gte=1"`
}

// EventsConfig configures the event channel.
type EventsConfig struct {
	Driver              string `mapstructure:"driver" validate:"required,oneof=redis memory"`
	Group               string `mapstructure:"group" validate:"required"`
	Consumer            string `mapstructure:"consumer" validate:"required"`
	OrchestratorTopic   string `mapstructure:"orchestrator_topic" validate:"required"`
	ResultTopic         string `mapstructure:"result_topic" validate:"required"`
	BalanceTriggerTopic string `mapstructure:"balance_trigger_topic" validate:"required"`
	BalanceTopic        string `mapstructure:"balance_topic" validate:"required"`
	BlockMS             int    `mapstructure:"block_ms" validate:"gte=1"`
}

// SagaConfig controls the post-commit work queue and the reconciliation sweep.
type SagaConfig struct {
	WorkerCount          int `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize            int `mapstructure:"queue_size" validate:"gte=1"`
	StuckAgeMinutes      int `mapstructure:"stuck_age_minutes" validate:"gte=1"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes" validate:"gte=1"`
}

// CardConfig controls card number generation and validity.
type CardConfig struct {
	// BIN is the issuer prefix used for generated card numbers.
	BIN                 string `mapstructure:"bin" validate:"required,numeric,len=6"`
	CreditValidityYears int    `mapstructure:"credit_validity_years" validate:"gte=1"`
	DebitValidityYears  int    `mapstructure:"debit_validity_years" validate:"gte=1"`
	NumberRetries       int    `mapstructure:"number_retries" validate:"gte=1"`
}
