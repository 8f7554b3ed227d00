// Package config provides application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backend names.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds the complete application configuration.
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Cache    CacheConfig
	Database DatabaseConfig
	Audit    AuditConfig
	Worker   WorkerConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          int  `mapstructure:"port"`
	ServeSwagger  bool `mapstructure:"serve_swagger"`
	ServeAsynqmon bool `mapstructure:"serve_asynqmon"`
}

// ProviderConfig holds settings for the open.er-api.com rate provider.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout_sec"`
}

// CacheConfig holds rate table caching settings. TTLMs is the staleness
// threshold in milliseconds (3,600,000 ms in the reference policy).
type CacheConfig struct {
	TTLMs     int64  `mapstructure:"ttl_ms"`
	Backend   string `mapstructure:"backend"`
	RedisAddr string `mapstructure:"redis_addr"`
}

// DatabaseConfig holds PostgreSQL connection settings for the audit log.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	Name               string `mapstructure:"name"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSec int    `mapstructure:"conn_max_lifetime_sec"`
	DSN                string
}

// AuditConfig holds conversion audit log settings.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkerConfig holds background rate refresh worker settings.
type WorkerConfig struct {
	Enabled            bool `mapstructure:"enabled"`
	Concurrency        int  `mapstructure:"concurrency"`
	RefreshIntervalSec int  `mapstructure:"refresh_interval_sec"`
	MaxRetry           int  `mapstructure:"max_retry"`
	TimeoutSec         int  `mapstructure:"timeout_sec"`
}

// RedisConfig holds the Redis instance used by the Asynq task queue.
type RedisConfig struct {
	AsynqAddr string `mapstructure:"asynq_addr"`
}

// LoadConfig reads configuration from config files, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Printf("No .env file found or error loading it: %v\n", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Config search paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("./internal/config")

	viper.SetEnvPrefix("CONVSVC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.serve_swagger", true)
	viper.SetDefault("server.serve_asynqmon", false)
	viper.SetDefault("provider.base_url", "https://open.er-api.com")
	viper.SetDefault("provider.timeout_sec", 5)
	viper.SetDefault("cache.ttl_ms", 3600000)
	viper.SetDefault("cache.backend", CacheBackendMemory)
	viper.SetDefault("cache.redis_addr", "")
	viper.SetDefault("database.host", "db")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "conversionsdb")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime_sec", 300)
	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("worker.enabled", false)
	viper.SetDefault("worker.concurrency", 1)
	viper.SetDefault("worker.refresh_interval_sec", 300)
	viper.SetDefault("worker.max_retry", 0)
	viper.SetDefault("worker.timeout_sec", 30)
	viper.SetDefault("redis.asynq_addr", "")

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if no config file, we have defaults and env
		fmt.Printf("Config file not found: %v\n", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeSec <= 0 {
		cfg.Database.ConnMaxLifetimeSec = 300
	}

	cfg.Database.DSN = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Name, cfg.Database.SSLMode)

	return &cfg, nil
}

// Validate checks that all required configuration fields are set and valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}

	if c.Provider.BaseURL == "" {
		errs = append(errs, fmt.Errorf("provider.base_url is required"))
	}
	if c.Provider.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("provider.timeout_sec must be positive, got %d", c.Provider.Timeout))
	}

	if c.Cache.TTLMs <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_ms must be positive, got %d", c.Cache.TTLMs))
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("cache.redis_addr is required when cache.backend is %q (set CONVSVC_CACHE_REDIS_ADDR)", CacheBackendRedis))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q, got %q", CacheBackendMemory, CacheBackendRedis, c.Cache.Backend))
	}

	if c.Audit.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when audit.enabled is true"))
		}
		if c.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("database.port must be positive, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when audit.enabled is true"))
		}
		if c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when audit.enabled is true"))
		}
	}

	if c.Worker.Enabled {
		if c.Redis.AsynqAddr == "" {
			errs = append(errs, fmt.Errorf("redis.asynq_addr is required when worker.enabled is true (set CONVSVC_REDIS_ASYNQ_ADDR)"))
		}
		if c.Worker.Concurrency <= 0 {
			errs = append(errs, fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency))
		}
		if c.Worker.RefreshIntervalSec <= 0 {
			errs = append(errs, fmt.Errorf("worker.refresh_interval_sec must be positive, got %d", c.Worker.RefreshIntervalSec))
		}
		if c.Worker.MaxRetry < 0 {
			errs = append(errs, fmt.Errorf("worker.max_retry must be non-negative, got %d", c.Worker.MaxRetry))
		}
		if c.Worker.TimeoutSec <= 0 {
			errs = append(errs, fmt.Errorf("worker.timeout_sec must be positive, got %d", c.Worker.TimeoutSec))
		}
	}

	if c.Server.ServeAsynqmon && c.Redis.AsynqAddr == "" {
		errs = append(errs, fmt.Errorf("redis.asynq_addr is required when server.serve_asynqmon is true"))
	}

	return errors.Join(errs...)
}
