package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyRepository is an IdempotencyStore persisted in the
// idempotency_entries table. It lets several API replicas share one
// fingerprint cache.
type IdempotencyRepository struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyRepository creates a database-backed idempotency store
func NewIdempotencyRepository(db *gorm.DB, ttl time.Duration) *IdempotencyRepository {
	return &IdempotencyRepository{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

var _ domainRepo.IdempotencyStore = (*IdempotencyRepository)(nil)

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*entity.IdempotencyEntry, error) {
	rec, err := r.find(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	entry, err := recordToEntry(rec)
	if err != nil {
		return nil, err
	}
	if entry.InFlight || entry.IsExpired(r.now(), r.ttl) {
		return nil, nil
	}
	return entry, nil
}

func (r *IdempotencyRepository) Put(ctx context.Context, key string, entry *entity.IdempotencyEntry) error {
	rec, err := entryToRecord(key, entry)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(rec).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *IdempotencyRepository) Claim(ctx context.Context, key string) (domainRepo.ClaimResult, error) {
	now := r.now()
	claim := &entity.IdempotencyRecord{Key: key, InFlight: true, CapturedAt: now}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(claim)
	if res.Error != nil {
		return domainRepo.ClaimResult{}, unavailable(res.Error)
	}
	if res.RowsAffected == 1 {
		return domainRepo.ClaimResult{Status: domainRepo.ClaimAcquired}, nil
	}

	rec, err := r.find(ctx, key)
	if err != nil {
		return domainRepo.ClaimResult{}, err
	}
	if rec == nil {
		// deleted between the insert and the read; the caller may retry
		return domainRepo.ClaimResult{Status: domainRepo.ClaimInFlight}, nil
	}

	if now.Sub(rec.CapturedAt) >= r.ttl {
		// Expired row: take it over only if nobody else did first.
		res := r.db.WithContext(ctx).Model(&entity.IdempotencyRecord{}).
			Where("key = ? AND captured_at < ?", key, now.Add(-r.ttl)).
			Updates(map[string]interface{}{
				"in_flight":   true,
				"status_code": 0,
				"body":        nil,
				"header":      "",
				"captured_at": now,
			})
		if res.Error != nil {
			return domainRepo.ClaimResult{}, unavailable(res.Error)
		}
		if res.RowsAffected == 1 {
			return domainRepo.ClaimResult{Status: domainRepo.ClaimAcquired}, nil
		}
		return domainRepo.ClaimResult{Status: domainRepo.ClaimInFlight}, nil
	}

	if rec.InFlight {
		return domainRepo.ClaimResult{Status: domainRepo.ClaimInFlight}, nil
	}

	entry, err := recordToEntry(rec)
	if err != nil {
		return domainRepo.ClaimResult{}, err
	}
	return domainRepo.ClaimResult{Status: domainRepo.ClaimReplay, Entry: entry}, nil
}

func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).
		Where("key = ? AND in_flight = ?", key, true).
		Delete(&entity.IdempotencyRecord{}).Error
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteExpired removes entries older than the TTL
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("captured_at < ?", r.now().Add(-r.ttl)).
		Delete(&entity.IdempotencyRecord{})
	return res.RowsAffected, res.Error
}

// RunJanitor calls DeleteExpired every interval until ctx is done
func (r *IdempotencyRepository) RunJanitor(ctx context.Context, interval time.Duration) {
	logger := log.With().Str("component", "idempotency_janitor").Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.DeleteExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("failed to delete expired idempotency entries")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("deleted", n).Msg("deleted expired idempotency entries")
			}
		}
	}
}

func (r *IdempotencyRepository) find(ctx context.Context, key string) (*entity.IdempotencyRecord, error) {
	var rec entity.IdempotencyRecord
	err := r.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return &rec, nil
}

func recordToEntry(rec *entity.IdempotencyRecord) (*entity.IdempotencyEntry, error) {
	entry := &entity.IdempotencyEntry{
		Key:        rec.Key,
		CapturedAt: rec.CapturedAt,
		StatusCode: rec.StatusCode,
		Body:       rec.Body,
		InFlight:   rec.InFlight,
	}
	if rec.Header != "" {
		if err := json.Unmarshal([]byte(rec.Header), &entry.Header); err != nil {
			return nil, fmt.Errorf("decode idempotency headers: %w", err)
		}
	}
	return entry, nil
}

func entryToRecord(key string, entry *entity.IdempotencyEntry) (*entity.IdempotencyRecord, error) {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency headers: %w", err)
	}
	return &entity.IdempotencyRecord{
		Key:        key,
		InFlight:   entry.InFlight,
		StatusCode: entry.StatusCode,
		Body:       entry.Body,
		Header:     string(header),
		CapturedAt: entry.CapturedAt.UTC(),
	}, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", domainRepo.ErrStoreUnavailable, err)
}
