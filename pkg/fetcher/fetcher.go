// Package fetcher is the shared HTTP client every platform fetcher goes
// through: one user agent, one timeout, one status-to-error mapping, and
// an optional TTL response cache for GET requests.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dtnitsch/capturemd/pkg/apperr"
	"github.com/dtnitsch/capturemd/pkg/caching"
)

// retryDelay spaces the single retry a GET gets after a 5xx response.
var retryDelay = 500 * time.Millisecond

// DefaultUserAgent identifies the tool to APIs that demand one (reddit,
// algolia).
const DefaultUserAgent = "capturemd/0.1.0"

// BrowserUserAgent is used against sites that reject unknown clients
// (steam storefront, generic pages).
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type Client struct {
	client    *http.Client
	userAgent string
	cache     *caching.Cache // optional, GETs only
}

// New builds a client. cache may be nil to disable response caching.
func New(timeout time.Duration, cache *caching.Cache) *Client {
	return &Client{
		client:    &http.Client{Timeout: timeout},
		userAgent: DefaultUserAgent,
		cache:     cache,
	}
}

// GetBytes fetches a URL body. Extra headers override the defaults;
// responses are served from the cache when fresh.
func (c *Client) GetBytes(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(rawURL); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNetwork, "get "+rawURL, err)
	}
	// Server errors on the public APIs this client talks to are usually
	// transient; GETs are idempotent, so retry exactly once.
	if resp.StatusCode >= http.StatusInternalServerError {
		resp.Body.Close()
		time.Sleep(retryDelay)
		resp, err = c.client.Do(req)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrNetwork, "get "+rawURL, err)
		}
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, rawURL); err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNetwork, "read "+rawURL, err)
	}

	if c.cache != nil {
		_ = c.cache.Set(rawURL, bodyBytes) // cache write failure never fails the fetch
	}
	return bodyBytes, nil
}

// GetJSON fetches and unmarshals a JSON API response.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, v any) error {
	data, err := c.GetBytes(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode JSON from %s: %w", rawURL, err)
	}
	return nil
}

// statusError maps HTTP status codes onto the failure taxonomy.
func statusError(code int, rawURL string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return apperr.Wrap(apperr.ErrNotFound, rawURL, nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return apperr.Wrap(apperr.ErrAuthFailure, rawURL, nil)
	case code == http.StatusTooManyRequests:
		return apperr.Wrap(apperr.ErrRateLimited, rawURL, nil)
	default:
		return apperr.Wrap(apperr.ErrNetwork, rawURL, fmt.Errorf("status code %d", code))
	}
}
