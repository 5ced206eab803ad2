// Package rest implements the store interfaces against the hosted
// platform's PostgREST-style HTTP API.
package rest

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

	"github.com/nakedpantry/backend/internal/logger"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	userAgent          = "NakedPantry/1.0"
	maxErrorBody       = 512
	maxResponseBody    = 10 << 20
)

// ErrUnexpectedStatus is returned when the API answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status from store API")

// Config configures the REST client
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	Logger            logger.Logger
}

// Client handles communication with the hosted data API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
	maxBody     int64
	log         logger.Logger
}

// NewClient creates a new REST API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
		maxAttempts: defaultMaxAttempts,
		backoff:     exponentialBackoff,
		maxBody:     maxResponseBody,
		log:         log,
	}
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempts 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) get(ctx context.Context, table string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())
	return c.do(ctx, http.MethodGet, reqURL, nil, out)
}

func (c *Client) rpc(ctx context.Context, fn string, args interface{}, out interface{}) error {
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode rpc args: %w", err)
	}
	reqURL := fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, fn)
	return c.do(ctx, http.MethodPost, reqURL, body, out)
}

// do executes a request, retrying transport errors, 429 and 5xx responses
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, c.backoff(attempt-1)); err != nil {
				return err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		retry, err := c.attempt(ctx, method, reqURL, body, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}

		c.log.Debug("store API request failed, retrying",
			logger.String("method", method),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		lastErr = err
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, reqURL string, body []byte, out interface{}) (bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return retry, fmt.Errorf("%w: status %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return false, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// quote renders a PostgREST filter value in double quotes
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// inList renders values for an in.(...) filter
func inList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quote(v))
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
