// Package places implements the place lookup client: one text search per
// search key against a Places-style searchText endpoint, followed by the
// café-first best-match selection.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/coffeemap/internal/cafe"
	"github.com/JakeFAU/coffeemap/internal/metrics"
)

// DefaultEndpoint is the production text search endpoint.
const DefaultEndpoint = "https://places.googleapis.com/v1/places:searchText"

const maxResponseBytes = 8 << 20

// Config controls the lookup client.
type Config struct {
	Endpoint          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// Client performs place lookups. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      *RetryPolicy
	logger     *zap.Logger
}

// New builds a Client. A nil httpClient uses a client without its own
// timeout; per-call deadlines come from cfg.Timeout.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("places api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		retry:      NewRetryPolicy(cfg.MaxRetries),
		logger:     logger,
	}, nil
}

// Query looks up key and returns the best matching place.
func (c *Client) Query(ctx context.Context, key string) (cafe.PlaceRecord, error) {
	for attempt := 0; ; attempt++ {
		rec, err := c.queryOnce(ctx, key)
		if err == nil {
			return rec, nil
		}
		if !c.retry.ShouldRetry(err, attempt) {
			return cafe.PlaceRecord{}, err
		}
		wait := c.retry.Backoff(attempt)
		metrics.ObserveLookupRetry()
		c.logger.Debug("retrying place lookup",
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cafe.PlaceRecord{}, transportErr(key, 0, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) queryOnce(ctx context.Context, key string) (rec cafe.PlaceRecord, err error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return cafe.PlaceRecord{}, transportErr(key, 0, fmt.Errorf("rate limit wait: %w", err))
	}
	metrics.ObserveRateLimitDelay(time.Since(waitStart))
	start := time.Now()
	defer func() { metrics.ObserveLookup(err, time.Since(start)) }()
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(searchRequest{TextQuery: key})
	if err != nil {
		return cafe.PlaceRecord{}, transportErr(key, 0, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return cafe.PlaceRecord{}, transportErr(key, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", FieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cafe.PlaceRecord{}, transportErr(key, 0, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return cafe.PlaceRecord{}, transportErr(key, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return cafe.PlaceRecord{}, transportErr(key, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}
	return parseResponse(key, body)
}

func parseResponse(key string, body []byte) (cafe.PlaceRecord, error) {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return cafe.PlaceRecord{}, &cafe.LookupError{Kind: cafe.LookupMalformed, Key: key, Err: err}
	}
	if parsed.Places == nil {
		return cafe.PlaceRecord{}, &cafe.LookupError{Kind: cafe.LookupNotFound, Key: key}
	}
	candidates := *parsed.Places
	for i, cand := range candidates {
		if err := cand.validate(); err != nil {
			return cafe.PlaceRecord{}, &cafe.LookupError{
				Kind: cafe.LookupMalformed,
				Key:  key,
				Err:  fmt.Errorf("candidate %d: %w", i, err),
			}
		}
	}
	best, ok := SelectBestMatch(candidates)
	if !ok {
		return cafe.PlaceRecord{}, &cafe.LookupError{Kind: cafe.LookupNotFound, Key: key}
	}
	return best.record(), nil
}

func transportErr(key string, status int, err error) error {
	return &cafe.LookupError{Kind: cafe.LookupTransport, Key: key, Status: status, Err: err}
}
