// Package remote wraps the third-party audit API: saved-report definitions,
// paginated report rows, and audit fetch/update/run.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/siteproof/linkaudit/internal/telemetry"
)

// Config controls client behavior. APIKey is the bearer credential attached
// to every request.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64
	RateBurst  int
	UserAgent  string
	Transport  http.RoundTripper
}

const (
	defaultTimeout   = 30 * time.Second
	defaultRetries   = 2
	defaultRateLimit = 10.0
	defaultRateBurst = 5
	defaultUserAgent = "linkaudit/1.0"
	retryBaseDelay   = 250 * time.Millisecond
)

// Client is a rate-limited, retry-capable HTTP wrapper around the audit API.
// Retries cover transport failures only; a non-2xx response is returned to the
// caller as *Error without retrying.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient builds a Client, applying defaults for zero-valued knobs.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("remote API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:  logger,
	}, nil
}

// do executes one API call, decoding a 2xx JSON body into out when out is
// non-nil. Transport errors are retried up to MaxRetries with fixed-base
// doubling backoff; context cancellation and non-2xx statuses are not.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			c.logger.Debug("retrying remote call",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
			)
		}
		err := c.doOnce(ctx, method, path, query, payload, out)
		if err == nil {
			return nil
		}
		if !transientErr(ctx, err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("remote call %s %s failed after %d attempts: %w", method, path, c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, payload []byte, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.ObserveRemoteRequest(method, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	telemetry.ObserveRemoteRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transientErr reports whether the failure is worth another transport attempt.
// A remote *Error is a delivered response and never retried, and a dead
// caller context stops the loop. Everything else that escapes http.Client.Do
// is a transport failure (per-attempt timeout, connection reset, refused
// connection, truncated response) and gets the remaining attempts. The
// caller's context is the discriminator rather than error sentinels because
// the HTTP client wraps its own per-attempt timeout in the same
// context.DeadlineExceeded a cancelled caller produces.
func transientErr(ctx context.Context, err error) bool {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return true
}
