package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/config"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/cache"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/geo"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/provider"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/quota"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
)

func openStore(ctx context.Context, cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return cache.NewMemoryStore(), nil
	case config.DriverSQLite:
		s, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverRedis:
		return cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	case config.DriverPostgres:
		s, err := cache.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}

func newExecutor(cfg *config.Config, log *zap.Logger) (provider.Executor, error) {
	p := cfg.Provider
	switch p.Mode {
	case config.ModePlaces:
		client := provider.NewHTTPClient(provider.TransportOptions{
			Fingerprint: provider.FingerprintNone,
			ProxyURL:    p.ProxyURL,
			Timeout:     p.Timeout,
		})
		return provider.NewPlacesExecutor(p.BaseURL, p.APIKey, p.Language, client, log), nil
	case config.ModeMaps:
		client := provider.NewHTTPClient(provider.TransportOptions{
			Fingerprint: p.Fingerprint,
			ProxyURL:    p.ProxyURL,
			Timeout:     p.Timeout,
		})
		locator := geo.NewGeocoder(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, log)
		return provider.NewMapsExecutor(p.MapsURL, p.Language, client, locator, log), nil
	case config.ModeBrowser:
		return provider.NewBrowserExecutor(provider.BrowserOptions{
			Lang:        p.Language,
			Headless:    p.Headless,
			ChromePath:  p.ChromePath,
			ProxyURL:    p.ProxyURL,
			FeedTimeout: p.FeedTimeout,
		}, log), nil
	}
	return nil, fmt.Errorf("unknown provider mode %q", p.Mode)
}

func settingsFrom(cfg config.SearchConfig) search.Settings {
	return search.Settings{
		MaxPages:     cfg.MaxPages,
		MaxVariants:  cfg.MaxVariants,
		PageDelay:    cfg.PageDelay,
		VariantDelay: cfg.VariantDelay,
		Concurrency:  cfg.Concurrency,
	}
}

func newCacheManager(ctx context.Context, cfg *config.Config, log *zap.Logger) (*cache.Manager, func(), error) {
	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s cache: %w", cfg.Cache.Driver, err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Warn("closing cache store", zap.Error(err))
		}
	}
	return cache.NewManager(store, log, cache.WithTTL(cfg.Cache.TTL)), closeFn, nil
}

// newService assembles the search service from configuration. The returned
// func releases the cache store.
func newService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*search.Service, func(), error) {
	exec, err := newExecutor(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cm, closeFn, err := newCacheManager(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return search.NewService(exec, cm, settingsFrom(cfg.Search), log), closeFn, nil
}

func newAccountant(cfg *config.Config) (quota.Accountant, func(), error) {
	switch cfg.Quota.Driver {
	case config.DriverNop:
		return quota.Nop, func() {}, nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		return quota.NewRedisLedger(rdb), func() { rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown quota driver %q", cfg.Quota.Driver)
}
