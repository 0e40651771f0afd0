package repository

import (
	"context"
	"errors"

	"github.com/sangkips/dinein-api/internal/domain/entity"
)

// ErrStoreUnavailable wraps backend failures of an IdempotencyStore so callers
// can decide between failing open and failing closed.
var ErrStoreUnavailable = errors.New("idempotency store unavailable")

// ClaimStatus is the outcome of IdempotencyStore.Claim
type ClaimStatus int

const (
	// ClaimAcquired means the caller owns the key and must Put or Release it.
	ClaimAcquired ClaimStatus = iota
	// ClaimReplay means a completed response is cached under the key.
	ClaimReplay
	// ClaimInFlight means another request holds the key right now.
	ClaimInFlight
)

// ClaimResult carries the cached entry when Status is ClaimReplay
type ClaimResult struct {
	Status ClaimStatus
	Entry  *entity.IdempotencyEntry
}

// IdempotencyStore is the fingerprint cache: captured responses keyed by
// idempotency key, valid for a fixed TTL.
type IdempotencyStore interface {
	// Get returns the completed entry for key, or nil when absent, expired or in flight
	Get(ctx context.Context, key string) (*entity.IdempotencyEntry, error)
	// Put stores entry under key, overwriting any previous value or claim
	Put(ctx context.Context, key string, entry *entity.IdempotencyEntry) error
	// Claim atomically checks key and, when it is free, marks it in flight
	Claim(ctx context.Context, key string) (ClaimResult, error)
	// Release drops an in-flight claim; completed entries are left untouched
	Release(ctx context.Context, key string) error
}
