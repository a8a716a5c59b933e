package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const envPrefix = "LEADFINDER"

// Load reads configuration from defaults, an optional YAML file, a .env file
// in the working directory and LEADFINDER_* environment variables, in
// increasing order of precedence. An empty cfgFile searches the home
// directory and the working directory for .leadfinder.yaml.
func Load(cfgFile string) (*Config, error) {
	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".leadfinder")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if p, err := homedir.Expand(cfg.Cache.SQLitePath); err == nil {
		cfg.Cache.SQLitePath = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("provider.mode", ModeMaps)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "https://maps.googleapis.com")
	v.SetDefault("provider.maps_url", "https://www.google.com")
	v.SetDefault("provider.language", "en")
	v.SetDefault("provider.proxy", "")
	v.SetDefault("provider.fingerprint", "chrome")
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.feed_timeout", 15*time.Second)
	v.SetDefault("provider.headless", true)
	v.SetDefault("provider.chrome_path", "")

	v.SetDefault("search.max_pages", 5)
	v.SetDefault("search.max_variants", 6)
	v.SetDefault("search.page_delay", 200*time.Millisecond)
	v.SetDefault("search.variant_delay", 500*time.Millisecond)
	v.SetDefault("search.concurrency", 1)

	v.SetDefault("cache.driver", DriverSQLite)
	v.SetDefault("cache.ttl", 7*24*time.Hour)
	v.SetDefault("cache.sqlite_path", "~/.leadfinder.db")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.postgres_dsn", "")

	v.SetDefault("quota.driver", DriverNop)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.secret", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "leadfinder/1.0 (business search)")
}
