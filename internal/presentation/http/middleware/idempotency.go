package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/internal/metrics"
	"github.com/sangkips/dinein-api/pkg/sanitize"
)

const (
	// IdempotencyKeyHeader is the HTTP header for idempotency keys
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayedHeader marks responses served from the cache
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"

	headerKeyPrefix      = "key:"
	fingerprintKeyPrefix = "fp:"
)

// Headers owned by other middleware that must reflect the current request,
// not the one that was captured.
var uncachedHeaders = map[string]bool{
	"X-Ratelimit-Limit":     true,
	"X-Ratelimit-Remaining": true,
	"X-Ratelimit-Reset":     true,
	"Retry-After":           true,
	"X-Request-Id":          true,
	"Date":                  true,
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store repository.IdempotencyStore
	// FailOpen runs requests without deduplication when the store is down;
	// otherwise they are rejected with 503.
	FailOpen bool
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// responseWriter wraps gin.ResponseWriter to capture the response body
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POST requests safe to retry. The key is the
// Idempotency-Key header when present, otherwise a fingerprint of the
// restaurant, table, session and items. The first 2xx response for a key is
// captured and replayed verbatim for repeats until it expires; a repeat that
// arrives while the first is still running gets 409.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := log.With().Str("component", "idempotency").Logger()

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
			return
		}

		body, err := sanitize.OrderBody(raw)
		if err != nil {
			// malformed payloads are left to the handler to reject
			body = raw
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Request.ContentLength = int64(len(body))

		headerKey := c.GetHeader(IdempotencyKeyHeader)
		key, err := DeriveIdempotencyKey(c.Param("slug"), headerKey, body)
		if err != nil {
			cfg.Metrics.RecordIdempotency(c.Request.Context(), "bypass")
			c.Next()
			return
		}

		ctx := c.Request.Context()
		claim, err := cfg.Store.Claim(ctx, key)
		if err != nil {
			if !cfg.FailOpen {
				logger.Error().Err(err).Str("key", key).Msg("idempotency store unavailable, rejecting request")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "idempotency store unavailable"})
				return
			}
			logger.Warn().Err(err).Str("key", key).Msg("idempotency store unavailable, skipping deduplication")
			cfg.Metrics.RecordIdempotency(ctx, "bypass")
			c.Next()
			return
		}

		switch claim.Status {
		case repository.ClaimReplay:
			cfg.Metrics.RecordIdempotency(ctx, "replay")
			replay(c, claim.Entry)
			return
		case repository.ClaimInFlight:
			cfg.Metrics.RecordIdempotency(ctx, "in_flight")
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is in progress"})
			return
		}

		cfg.Metrics.RecordIdempotency(ctx, "miss")

		if headerKey != "" {
			c.Header(IdempotencyKeyHeader, headerKey)
		} else {
			c.Header(IdempotencyKeyHeader, key)
		}

		// outlives a client disconnect so the claim is always settled
		storeCtx := context.WithoutCancel(ctx)

		blw := &responseWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = blw

		completed := false
		defer func() {
			if completed {
				return
			}
			// handler panicked: free the key so a retry runs again
			if err := cfg.Store.Release(storeCtx, key); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
			}
		}()

		c.Next()
		completed = true

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			if err := cfg.Store.Release(storeCtx, key); err != nil {
				logger.Warn().Err(err).Str("key", key).Msg("failed to release idempotency key")
			}
			return
		}

		entry := &entity.IdempotencyEntry{
			Key:        key,
			CapturedAt: cfg.Now(),
			StatusCode: status,
			Body:       append([]byte(nil), blw.body.Bytes()...),
			Header:     cacheableHeaders(c.Writer.Header()),
		}
		if err := cfg.Store.Put(storeCtx, key, entry); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("failed to store idempotent response")
			_ = cfg.Store.Release(storeCtx, key)
		}
	}
}

// DeriveIdempotencyKey returns the namespaced key for a request: the
// caller's header value scoped to the restaurant, or a SHA-1 fingerprint of
// the canonical JSON of {restaurant, table, session, items}.
func DeriveIdempotencyKey(restaurant, headerKey string, body []byte) (string, error) {
	if headerKey != "" {
		return headerKeyPrefix + restaurant + ":" + headerKey, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("decode body for fingerprint: %w", err)
	}
	if payload == nil {
		return "", errors.New("empty body")
	}

	// Field order is fixed by the struct; map keys inside items are sorted
	// by encoding/json.
	canonical, err := json.Marshal(struct {
		Restaurant string `json:"restaurant"`
		Table      any    `json:"table"`
		Session    any    `json:"session"`
		Items      any    `json:"items"`
	}{
		Restaurant: restaurant,
		Table:      payload["table"],
		Session:    payload["session"],
		Items:      payload["items"],
	})
	if err != nil {
		return "", fmt.Errorf("encode fingerprint: %w", err)
	}

	sum := sha1.Sum(canonical)
	return fingerprintKeyPrefix + hex.EncodeToString(sum[:]), nil
}

func replay(c *gin.Context, entry *entity.IdempotencyEntry) {
	h := c.Writer.Header()
	for k, v := range entry.Header {
		if uncachedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		h[k] = append([]string(nil), v...)
	}
	h.Set(IdempotencyReplayedHeader, "true")

	c.Writer.WriteHeader(entry.StatusCode)
	_, _ = c.Writer.Write(entry.Body)
	c.Abort()
}

func cacheableHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if uncachedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
