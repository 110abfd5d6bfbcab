package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Idempotency IdempotencyConfig
	Fulfillment FulfillmentConfig
	Inventory   InventoryConfig
	Kafka       KafkaConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Idempotency backends
const (
	IdempotencyBackendPostgres = "postgres"
	IdempotencyBackendRedis    = "redis"
	IdempotencyBackendMemory   = "memory"
)

// IdempotencyConfig holds idempotency record settings
type IdempotencyConfig struct {
	Backend       string        // postgres, redis, memory
	TTL           time.Duration // how long a PROCESSING attempt holds its key
	Retention     time.Duration // redis/memory record retention, 0 = keep
	RedisFallback bool          // fall back to memory when redis is unavailable
}

// Partial invoice policies
const (
	PartialInvoiceDefer            = "DEFER"
	PartialInvoiceInvoiceDelivered = "INVOICE_DELIVERED"
)

// FulfillmentConfig holds confirmation behaviour
type FulfillmentConfig struct {
	InvoiceOnFulfillment bool
	PartialInvoicePolicy string // DEFER, INVOICE_DELIVERED; required when invoicing on fulfillment
	TransactionTimeout   time.Duration
}

// InventoryConfig holds stock rules
type InventoryConfig struct {
	AllowNegativeStock bool
}

// KafkaConfig holds the notification transport settings
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	GroupID      string
	BufferSize   int
	WriteTimeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled               bool    // Whether to enable OpenTelemetry
	CollectorEndpoint     string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio         float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName           string
	Insecure              bool // Use insecure (non-TLS) connection (development only)
	MetricsExportInterval time.Duration
	DBTraceEnabled        bool // Enable database query tracing (otelgorm)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFILLMENT_ prefix (e.g., FULFILLMENT_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Idempotency: IdempotencyConfig{
			Backend:       v.GetString("idempotency.backend"),
			TTL:           v.GetDuration("idempotency.ttl"),
			Retention:     v.GetDuration("idempotency.retention"),
			RedisFallback: v.GetBool("idempotency.redis_fallback"),
		},
		Fulfillment: FulfillmentConfig{
			InvoiceOnFulfillment: v.GetBool("fulfillment.invoice_on_fulfillment"),
			PartialInvoicePolicy: strings.ToUpper(v.GetString("fulfillment.partial_invoice_policy")),
			TransactionTimeout:   v.GetDuration("fulfillment.transaction_timeout"),
		},
		Inventory: InventoryConfig{
			AllowNegativeStock: v.GetBool("inventory.allow_negative_stock"),
		},
		Kafka: KafkaConfig{
			Enabled:      v.GetBool("kafka.enabled"),
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			GroupID:      v.GetString("kafka.group_id"),
			BufferSize:   v.GetInt("kafka.buffer_size"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment-service"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 45 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "fulfillment"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = IdempotencyBackendPostgres
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}

	if cfg.Fulfillment.TransactionTimeout == 0 {
		cfg.Fulfillment.TransactionTimeout = 30 * time.Second
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "fulfillment.events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "fulfillment-notifier"
	}
	if cfg.Kafka.BufferSize == 0 {
		cfg.Kafka.BufferSize = 256
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Idempotency.Backend {
	case IdempotencyBackendPostgres, IdempotencyBackendRedis, IdempotencyBackendMemory:
	default:
		return fmt.Errorf("idempotency.backend must be one of postgres, redis, memory, got %q", c.Idempotency.Backend)
	}
	if c.Idempotency.TTL < 0 {
		return fmt.Errorf("idempotency.ttl cannot be negative")
	}

	if c.Fulfillment.InvoiceOnFulfillment {
		switch c.Fulfillment.PartialInvoicePolicy {
		case PartialInvoiceDefer, PartialInvoiceInvoiceDelivered:
		case "":
			return fmt.Errorf("fulfillment.partial_invoice_policy is required when fulfillment.invoice_on_fulfillment is true (DEFER or INVOICE_DELIVERED)")
		default:
			return fmt.Errorf("fulfillment.partial_invoice_policy must be DEFER or INVOICE_DELIVERED, got %q", c.Fulfillment.PartialInvoicePolicy)
		}
	}
	if c.Fulfillment.TransactionTimeout < time.Second || c.Fulfillment.TransactionTimeout > 2*time.Minute {
		return fmt.Errorf("fulfillment.transaction_timeout must be between 1s and 2m, got %s", c.Fulfillment.TransactionTimeout)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Kafka.BufferSize < 0 {
		return fmt.Errorf("kafka.buffer_size cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Idempotency.Backend == IdempotencyBackendMemory {
			return fmt.Errorf("idempotency.backend=memory is not allowed in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
