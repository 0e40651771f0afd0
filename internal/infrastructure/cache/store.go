// Package cache holds the idempotency store backends: an in-process LRU, a
// Redis store for multi-replica deployments, and selection between them and
// the database-backed store.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/config"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"gorm.io/gorm"
)

const janitorInterval = time.Minute

// NewStore builds the idempotency store selected by cfg.Idempotency.Store.
// The returned close function stops background work and releases
// connections; it is never nil.
func NewStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (domainRepo.IdempotencyStore, func(), error) {
	ttl := cfg.Idempotency.TTL

	switch cfg.Idempotency.Store {
	case "", "memory":
		log.Info().Int("max_entries", cfg.Idempotency.MaxEntries).Msg("using in-memory idempotency store")
		return NewMemoryStore(cfg.Idempotency.MaxEntries, ttl), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// the gate decides what to do with an unreachable store per request
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis not reachable at startup")
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("using redis idempotency store")
		return NewRedisStore(client, ttl), func() { _ = client.Close() }, nil

	case "database":
		store := repository.NewIdempotencyRepository(db, ttl)
		janitorCtx, cancel := context.WithCancel(ctx)
		go store.RunJanitor(janitorCtx, janitorInterval)
		log.Info().Msg("using database idempotency store")
		return store, cancel, nil

	default:
		return nil, nil, fmt.Errorf("unknown idempotency store %q", cfg.Idempotency.Store)
	}
}
