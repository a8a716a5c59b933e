package config

import (
	"fmt"
	"time"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Provider ProviderConfig `mapstructure:"provider"`
	Search   SearchConfig   `mapstructure:"search"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Server   ServerConfig   `mapstructure:"server"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Provider modes.
const (
	ModePlaces  = "places"
	ModeMaps    = "maps"
	ModeBrowser = "browser"
)

type ProviderConfig struct {
	Mode        string        `mapstructure:"mode"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	MapsURL     string        `mapstructure:"maps_url"`
	Language    string        `mapstructure:"language"`
	ProxyURL    string        `mapstructure:"proxy"`
	Fingerprint string        `mapstructure:"fingerprint"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FeedTimeout time.Duration `mapstructure:"feed_timeout"`
	Headless    bool          `mapstructure:"headless"`
	ChromePath  string        `mapstructure:"chrome_path"`
}

type SearchConfig struct {
	MaxPages     int           `mapstructure:"max_pages"`
	MaxVariants  int           `mapstructure:"max_variants"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
	VariantDelay time.Duration `mapstructure:"variant_delay"`
	Concurrency  int           `mapstructure:"concurrency"`
}

// Cache drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverNop      = "nop"
)

type CacheConfig struct {
	Driver        string        `mapstructure:"driver"`
	TTL           time.Duration `mapstructure:"ttl"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	PostgresDSN   string        `mapstructure:"postgres_dsn"`
}

type QuotaConfig struct {
	Driver string `mapstructure:"driver"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Secret          string        `mapstructure:"secret"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GeocoderConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// Validate rejects combinations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Provider.Mode {
	case ModePlaces:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required in %s mode", ModePlaces)
		}
	case ModeMaps, ModeBrowser:
	default:
		return fmt.Errorf("unknown provider.mode %q", c.Provider.Mode)
	}

	switch c.Cache.Driver {
	case DriverMemory, DriverSQLite:
	case DriverRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis driver")
		}
	case DriverPostgres:
		if c.Cache.PostgresDSN == "" {
			return fmt.Errorf("cache.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}

	switch c.Quota.Driver {
	case DriverNop:
	case DriverRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis quota driver")
		}
	default:
		return fmt.Errorf("unknown quota.driver %q", c.Quota.Driver)
	}

	if c.Search.MaxPages < 1 {
		return fmt.Errorf("search.max_pages must be at least 1")
	}
	if c.Search.MaxVariants < 1 {
		return fmt.Errorf("search.max_variants must be at least 1")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	return nil
}
