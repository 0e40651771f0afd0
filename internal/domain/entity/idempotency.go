package entity

import (
	"net/http"
	"time"
)

// IdempotencyEntry is a captured HTTP response replayed for repeated
// requests carrying the same idempotency key. An entry with InFlight set is a
// claim held by the request that is currently executing.
type IdempotencyEntry struct {
	Key        string      `json:"key"`
	CapturedAt time.Time   `json:"captured_at"`
	StatusCode int         `json:"status_code"`
	Body       []byte      `json:"body"`
	Header     http.Header `json:"header"`
	InFlight   bool        `json:"in_flight"`
}

// IsExpired reports whether the entry is older than ttl at now
func (e *IdempotencyEntry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CapturedAt) >= ttl
}

// IdempotencyRecord is the database row backing IdempotencyEntry
type IdempotencyRecord struct {
	Key        string `gorm:"primaryKey;size:255"`
	InFlight   bool   `gorm:"not null;default:false"`
	StatusCode int    `gorm:"not null;default:0"`
	Body       []byte
	Header     string    `gorm:"type:text"` // JSON encoded http.Header
	CapturedAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for IdempotencyRecord
func (IdempotencyRecord) TableName() string {
	return "idempotency_entries"
}
