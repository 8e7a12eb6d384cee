// Package ra is the RetroAchievements web API gateway. It owns the raw wire
// schemas and converts them into internal/model entities at the boundary.
package ra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the API host. Overridable for tests.
	BaseURL = "https://retroachievements.org"

	defaultTimeout = 15 * time.Second
	maxRetries     = 3
)

// UpstreamError wraps any transport, HTTP-status, or decode failure from the
// achievement API. Callers treat it as a per-account/per-game soft failure.
type UpstreamError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ra: %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("ra: %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

type Config struct {
	Username string
	APIKey   string

	BaseURL    string  // defaults to BaseURL
	Timeout    time.Duration
	RatePerSec float64 // API budget; defaults to 2 req/s
}

// Client issues parameterized requests against the web API. Safe for
// concurrent use; all requests share one rate limiter.
type Client struct {
	baseURL  string
	username string
	apiKey   string

	http    *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ra: username and api key are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		baseURL:  strings.TrimRight(base, "/"),
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// get performs a GET against one API endpoint and decodes the JSON response.
// Transient failures (network, 429, 5xx) are retried with exponential
// backoff; anything left over surfaces as *UpstreamError.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("z", c.username)
	params.Set("y", c.apiKey)
	u := fmt.Sprintf("%s/API/%s?%s", c.baseURL, endpoint, params.Encode())

	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err // retryable
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, resp.Body)
			return &UpstreamError{Endpoint: endpoint, Status: resp.StatusCode}
		default:
			_, _ = io.Copy(io.Discard, resp.Body)
			return backoff.Permanent(&UpstreamError{Endpoint: endpoint, Status: resp.StatusCode})
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(&UpstreamError{Endpoint: endpoint, Err: err})
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return ue
		}
		return &UpstreamError{Endpoint: endpoint, Err: err}
	}
	return nil
}
