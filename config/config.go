package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "NAKEDPANTRY"

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverREST     = "rest"
)

// Cache types
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig selects and configures the data store
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"` // "postgres" or "rest"
	Postgres PostgresConfig `mapstructure:"postgres"`
	REST     RESTConfig     `mapstructure:"rest"`
}

// PostgresConfig holds direct database settings
type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns the lib/pq connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// RESTConfig holds hosted API settings
type RESTConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	RelatedTTL      time.Duration `mapstructure:"related_ttl"`
	AisleTTL        time.Duration `mapstructure:"aisle_ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP float64 `mapstructure:"per_ip"` // requests per second per client
	Burst int     `mapstructure:"burst"`
	Store float64 `mapstructure:"store"` // outbound requests per second to the REST store
}

// ClassifierConfig holds NOVA classifier configuration
type ClassifierConfig struct {
	LoadStoreIndicators bool   `mapstructure:"load_store_indicators"`
	IndicatorsFile      string `mapstructure:"indicators_file"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/nakedpantry/")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a local .env without overriding the real environment
func loadEnvFile() error {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8081"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	// Store defaults
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.postgres.host", "localhost")
	v.SetDefault("store.postgres.port", 5432)
	v.SetDefault("store.postgres.user", "postgres")
	v.SetDefault("store.postgres.password", "")
	v.SetDefault("store.postgres.dbname", "nakedpantry")
	v.SetDefault("store.postgres.sslmode", "disable")
	v.SetDefault("store.postgres.max_open_conns", 25)
	v.SetDefault("store.postgres.max_idle_conns", 5)
	v.SetDefault("store.rest.url", "")
	v.SetDefault("store.rest.api_key", "")
	v.SetDefault("store.rest.timeout", "30s")

	// Cache defaults
	v.SetDefault("cache.type", CacheMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.related_ttl", "10m")
	v.SetDefault("cache.aisle_ttl", "5m")
	v.SetDefault("cache.janitor_interval", "1m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.store", 50)

	// Classifier defaults
	v.SetDefault("classifier.load_store_indicators", false)
	v.SetDefault("classifier.indicators_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Driver {
	case DriverPostgres:
		if config.Store.Postgres.Host == "" || config.Store.Postgres.DBName == "" {
			return fmt.Errorf("postgres host and dbname are required")
		}
	case DriverREST:
		if config.Store.REST.URL == "" {
			return fmt.Errorf("store URL is required when driver is 'rest' (set %s_STORE_REST_URL)", envPrefix)
		}
	default:
		return fmt.Errorf("store driver must be 'postgres' or 'rest', got: %s", config.Store.Driver)
	}

	if config.Cache.Type != CacheMemory && config.Cache.Type != CacheRedis {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == CacheRedis && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis'")
	}

	if config.Cache.RelatedTTL <= 0 || config.Cache.AisleTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("per-IP rate limit and burst must be positive")
	}

	return nil
}
