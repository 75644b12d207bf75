package config

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/waitlist-landing/internal/log"
	pkgredis "github.com/akeren/waitlist-landing/pkg/redis"
	"github.com/akeren/waitlist-landing/pkg/utils"
)

// Cache is the shared store behind the submission guard and the scoped rate
// limiters. Implementations that expose a *redis.Client also back the limiters.
type Cache interface {
	// SetIfAbsent reports false when the key already exists.
	SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrCacheNotConfigured = errors.New("cache: neither REDIS_URL nor REDIS_HOST is set")

type CacheConfig struct {
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		URL:      sanitizeEnv(utils.GetEnvTrimmed("REDIS_URL")),
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: sanitizeEnv(utils.GetEnvTrimmed("REDIS_PASSWORD")),
		DB:       utils.GetEnvPositiveInt("REDIS_DB", 0),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.URL != "" || cc.Host != ""
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		URL:      cc.URL,
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "db", cc.DB, "from_url", cc.URL != "")
	return cache, nil
}

// NewCacheOrNil never fails startup. Without a cache the guard and the
// rate limiters stay process local.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Cache (Redis) not configured; submission guard and rate limiters are process local")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		logger.Error("Failed to connect Cache (Redis); continuing without it", "error", err)
		return nil
	}

	return cache
}

func CloseCache(cache Cache, logger *log.Logger) error {
	if cache == nil {
		return nil
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return err
	}

	logger.Info("Cache connection closed")
	return nil
}
