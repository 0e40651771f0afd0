// Package payment is the client for the payment processor REST API
// (payments lookup and checkout preferences).
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sangkips/dinein-api/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

var (
	// ErrNotConfigured is returned when no access token is configured
	ErrNotConfigured = errors.New("payment processor access token is not configured")
	// ErrLookupFailed wraps transport and processor errors
	ErrLookupFailed = errors.New("payment processor request failed")
)

// Payment status values reported by the processor
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// Payment is the subset of the processor payment resource used here
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
}

// PreferenceItem is a checkout line item
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id,omitempty"`
}

// PreferenceRequest describes a checkout preference to create
type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	ExternalReference   string           `json:"external_reference"`
	NotificationURL     string           `json:"notification_url,omitempty"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
}

// Preference is a created checkout preference
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Client calls the processor API. Outbound calls are throttled and bounded
// by the configured timeout.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	configured      bool
	notificationURL string
	limiter         *rate.Limiter
}

// NewClient creates a processor client from configuration
func NewClient(cfg *config.PaymentConfig) *Client {
	var httpClient *http.Client
	if cfg.AccessToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   "Bearer",
		})
		httpClient = oauth2.NewClient(context.Background(), src)
	} else {
		httpClient = &http.Client{}
	}
	httpClient.Timeout = cfg.Timeout

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		httpClient:      httpClient,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		configured:      cfg.AccessToken != "",
		notificationURL: cfg.NotificationURL,
		limiter:         rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// IsConfigured reports whether an access token is available
func (c *Client) IsConfigured() bool {
	return c.configured
}

// GetPayment fetches the authoritative payment record
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePreference creates a checkout preference. The configured
// notification URL is used when the request has none.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if req.NotificationURL == "" {
		req.NotificationURL = c.notificationURL
	}
	var p Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if !c.configured {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: status %d after %s: %s",
			ErrLookupFailed, method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond), string(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}
	return nil
}
