package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/buscador-adesoes/pkg/ata"
	"github.com/Sternrassler/buscador-adesoes/pkg/sphere"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// KeyPrefix namespaces catalog hashes in Redis.
const KeyPrefix = "adesoes:catalog:"

// RedisSource is a read-through cache of another Source. Each mapping is
// stored as one Redis hash so several processes share a single copy. Redis
// failures are logged and the fallback is used directly.
type RedisSource struct {
	redis    *redis.Client
	fallback Source
	ttl      time.Duration
	logger   zerolog.Logger
}

// NewRedisSource creates a Redis-backed source. A ttl of 0 keeps entries
// until Invalidate is called.
func NewRedisSource(redisClient *redis.Client, fallback Source, ttl time.Duration) *RedisSource {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if fallback == nil {
		panic("fallback source cannot be nil")
	}
	return &RedisSource{
		redis:    redisClient,
		fallback: fallback,
		ttl:      ttl,
		logger:   log.With().Str("component", "catalog").Logger(),
	}
}

// Catalog returns the material or service catalog.
func (s *RedisSource) Catalog(ctx context.Context, kind ata.ItemKind) (Catalog, error) {
	file, err := fileFor(kind)
	if err != nil {
		return nil, err
	}
	m, err := s.load(ctx, file, func(ctx context.Context) (map[string]string, error) {
		return s.fallback.Catalog(ctx, kind)
	})
	if err != nil {
		return nil, err
	}
	return Catalog(m), nil
}

// SphereTable returns the unit sphere table.
func (s *RedisSource) SphereTable(ctx context.Context) (sphere.Table, error) {
	m, err := s.load(ctx, SpheresFile, func(ctx context.Context) (map[string]string, error) {
		return s.fallback.SphereTable(ctx)
	})
	if err != nil {
		return nil, err
	}
	return sphere.Table(m), nil
}

// Invalidate removes every cached mapping.
func (s *RedisSource) Invalidate(ctx context.Context) error {
	keys := []string{KeyPrefix + MaterialsFile, KeyPrefix + ServicesFile, KeyPrefix + SpheresFile}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisSource) load(ctx context.Context, name string, fill func(context.Context) (map[string]string, error)) (map[string]string, error) {
	key := KeyPrefix + name

	cached, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache get error")
		return fill(ctx)
	}
	if len(cached) > 0 {
		CacheHits.WithLabelValues(name).Inc()
		s.logger.Debug().Str("key", key).Int("entries", len(cached)).Msg("Catalog cache hit")
		return cached, nil
	}

	CacheMisses.WithLabelValues(name).Inc()
	m, err := fill(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, key, m); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache catalog")
	}
	return m, nil
}

func (s *RedisSource) store(ctx context.Context, key string, m map[string]string) error {
	if len(m) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(m))
	for k, v := range m {
		fields[k] = v
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}
