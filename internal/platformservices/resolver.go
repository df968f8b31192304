// Package platformservices resolves the shared-service dependencies a
// manifest can declare (cache, relational, vector) into the environment
// variables injected into the plugin's container, and holds a
// redis/go-redis client for the cache service. Install injects the cache
// variables without checking that the cache is reachable.
package platformservices

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowforge/plugin-orchestrator/internal/config"
	"github.com/flowforge/plugin-orchestrator/internal/models"
)

// Resolver hands out env vars for each platform service a manifest depends on.
type Resolver struct {
	cfg         *config.Config
	cacheClient *redis.Client
}

// New builds a resolver from process configuration.
func New(cfg *config.Config) *Resolver {
	return &Resolver{
		cfg: cfg,
		cacheClient: redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.CacheHost, cfg.CachePort),
			Password: cfg.CachePassword,
		}),
	}
}

// Close releases the cache client's connections.
func (r *Resolver) Close() error {
	return r.cacheClient.Close()
}

// PingCache verifies the shared cache is reachable, with a 3-second timeout.
// The install sequence does not call it.
func (r *Resolver) PingCache(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.cacheClient.Ping(ctx).Err()
}

// EnvFor returns the environment variables a dependency on svc contributes,
// following the naming convention `<SERVICE>_HOST` / `_PORT` / `_PASSWORD`.
func (r *Resolver) EnvFor(svc string) map[string]string {
	switch svc {
	case models.PlatformServiceCache:
		return map[string]string{
			"CACHE_HOST":     r.cfg.CacheHost,
			"CACHE_PORT":     r.cfg.CachePort,
			"CACHE_PASSWORD": r.cfg.CachePassword,
		}
	case models.PlatformServiceRelational:
		return map[string]string{
			"RELATIONAL_HOST": r.cfg.RelationalHost,
			"RELATIONAL_PORT": r.cfg.RelationalPort,
		}
	case models.PlatformServiceVector:
		return map[string]string{
			"VECTOR_HOST": r.cfg.VectorHost,
			"VECTOR_PORT": r.cfg.VectorPort,
		}
	default:
		return nil
	}
}
