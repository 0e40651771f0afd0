package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
)

const redisKeyPrefix = "idempotency:"

// claimMarker is the value stored while a request holds a key. Release only
// deletes a key whose value is still this marker.
var claimMarker = []byte(`{"in_flight":true}`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore is an IdempotencyStore shared by every API replica through
// Redis. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

var _ domainRepo.IdempotencyStore = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) (*entity.IdempotencyEntry, error) {
	entry, err := s.get(ctx, key)
	if err != nil || entry == nil || entry.InFlight {
		return nil, err
	}
	return entry, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry *entity.IdempotencyEntry) error {
	stored := *entry
	stored.Key = key
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode idempotency entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) Claim(ctx context.Context, key string) (domainRepo.ClaimResult, error) {
	ok, err := s.client.SetNX(ctx, redisKeyPrefix+key, claimMarker, s.ttl).Result()
	if err != nil {
		return domainRepo.ClaimResult{}, unavailable(err)
	}
	if ok {
		return domainRepo.ClaimResult{Status: domainRepo.ClaimAcquired}, nil
	}

	entry, err := s.get(ctx, key)
	if err != nil {
		return domainRepo.ClaimResult{}, err
	}
	if entry == nil || entry.InFlight {
		// a nil entry expired between SETNX and GET; report busy and let the client retry
		return domainRepo.ClaimResult{Status: domainRepo.ClaimInFlight}, nil
	}
	return domainRepo.ClaimResult{Status: domainRepo.ClaimReplay, Entry: entry}, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	err := releaseScript.Run(ctx, s.client, []string{redisKeyPrefix + key}, claimMarker).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return unavailable(err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string) (*entity.IdempotencyEntry, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	var entry entity.IdempotencyEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode idempotency entry: %w", err)
	}
	return &entry, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domainRepo.ErrStoreUnavailable, err)
}
