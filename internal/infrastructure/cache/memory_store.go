package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
)

// MemoryStore is a process-local IdempotencyStore. Entries are evicted by
// TTL and, once maxEntries is reached, least recently used first.
type MemoryStore struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, *entity.IdempotencyEntry]
	ttl time.Duration
	now func() time.Time
}

// NewMemoryStore creates an in-memory store holding at most maxEntries keys
func NewMemoryStore(maxEntries int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, *entity.IdempotencyEntry](maxEntries, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

var _ domainRepo.IdempotencyStore = (*MemoryStore)(nil)

func (s *MemoryStore) Get(_ context.Context, key string) (*entity.IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok || entry.InFlight {
		return nil, nil
	}
	return entry, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, entry *entity.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.Key = key
	s.lru.Add(key, &stored)
	return nil
}

func (s *MemoryStore) Claim(_ context.Context, key string) (domainRepo.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.live(key); ok {
		if entry.InFlight {
			return domainRepo.ClaimResult{Status: domainRepo.ClaimInFlight}, nil
		}
		return domainRepo.ClaimResult{Status: domainRepo.ClaimReplay, Entry: entry}, nil
	}

	s.lru.Add(key, &entity.IdempotencyEntry{
		Key:        key,
		CapturedAt: s.now(),
		InFlight:   true,
	})
	return domainRepo.ClaimResult{Status: domainRepo.ClaimAcquired}, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.lru.Peek(key); ok && entry.InFlight {
		s.lru.Remove(key)
	}
	return nil
}

// Len returns the number of keys currently held, claims included
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

// live returns the entry for key unless it has expired. Expired entries are
// dropped on the spot. Callers hold s.mu.
func (s *MemoryStore) live(key string) (*entity.IdempotencyEntry, bool) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, false
	}
	if entry.IsExpired(s.now(), s.ttl) {
		s.lru.Remove(key)
		return nil, false
	}
	return entry, true
}
