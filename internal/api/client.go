// Package api is the typed gateway to the accounting backend's REST API.
// One typed method per backend operation; no method performs client-side
// computation on the numeric fields it returns. Responses are decoded,
// optionally cached, and handed to callers as immutable snapshots.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jcalder/ledgerlens/internal/respcache"
)

// Client talks to the accounting backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	cache      *respcache.Repository // optional - nil disables caching

	// In-flight GET deduplication: concurrent identical requests share one
	// network call. Scheduled refreshes therefore never overlap a manual
	// fetch for the same key.
	mu       sync.Mutex
	inflight map[string]*inflightCall
}

type inflightCall struct {
	done chan struct{}
	body []byte
	err  error
}

// New creates a new backend client.
// cache is optional - if nil, response caching is disabled.
func New(baseURL string, cache *respcache.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("client", "accounts-api").Logger(),
		cache:      cache,
		inflight:   make(map[string]*inflightCall),
	}
}

// envelope is the backend's response convention. Success may legitimately be
// absent on endpoints that return bare payloads; only an explicit false is a
// domain failure.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// get issues a GET request for one logical operation, decoding the body into
// target. When table is non-empty the response is read through the cache:
// fresh entries short-circuit the network, and stale entries serve as a
// fallback when the backend fails (stale data beats no data for a read-only
// monitor).
func (c *Client) get(ctx context.Context, op, path string, params url.Values, table, cacheKey string, ttl time.Duration, target interface{}) error {
	if c.cache != nil && table != "" {
		data, err := c.cache.GetIfFresh(table, cacheKey)
		if err == nil && data != nil {
			if err := decodeBody(op, data, target); err == nil {
				c.log.Debug().Str("op", op).Str("key", cacheKey).Msg("Cache hit")
				return nil
			}
		}
	}

	body, err := c.fetch(ctx, op, path, params)
	if err != nil {
		// Transport-level failure: fall back to stale cache if we have it.
		if IsTransport(err) && c.cache != nil && table != "" {
			if data, cacheErr := c.cache.Get(table, cacheKey); cacheErr == nil && data != nil {
				if decodeErr := decodeBody(op, data, target); decodeErr == nil {
					c.log.Warn().Err(err).Str("op", op).Str("key", cacheKey).
						Msg("Backend unavailable, serving stale cached response")
					return nil
				}
			}
		}
		return err
	}

	if err := decodeBody(op, body, target); err != nil {
		return err
	}

	if c.cache != nil && table != "" {
		if err := c.cache.Store(table, cacheKey, json.RawMessage(body), ttl); err != nil {
			c.log.Warn().Err(err).Str("op", op).Str("key", cacheKey).Msg("Failed to cache response")
		}
	}

	return nil
}

// fetch performs the HTTP request with in-flight deduplication and envelope
// checking. Returns the raw body on success.
func (c *Client) fetch(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	c.mu.Lock()
	if call, ok := c.inflight[requestURL]; ok {
		c.mu.Unlock()
		select {
		case <-call.done:
			return call.body, call.err
		case <-ctx.Done():
			return nil, &Error{Kind: KindTransport, Op: op, Err: ctx.Err()}
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[requestURL] = call
	c.mu.Unlock()

	call.body, call.err = c.doRequest(ctx, op, requestURL)

	c.mu.Lock()
	delete(c.inflight, requestURL)
	c.mu.Unlock()
	close(call.done)

	return call.body, call.err
}

func (c *Client) doRequest(ctx context.Context, op, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	// Both channels must be checked: the backend reports domain failures as
	// {success: false} with HTTP 200, and transport failures as non-2xx.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyStr := string(body)
		if len(bodyStr) > 500 {
			bodyStr = bodyStr[:500] + "..."
		}
		c.log.Error().
			Int("status_code", resp.StatusCode).
			Str("op", op).
			Str("response_body", bodyStr).
			Msg("API returned non-2xx status")
		return nil, &Error{Kind: KindTransport, Op: op, StatusCode: resp.StatusCode}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &Error{Kind: KindDecode, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if env.Success != nil && !*env.Success {
		c.log.Warn().Str("op", op).Str("error", env.Error).Msg("API returned domain error")
		return nil, &Error{Kind: KindDomain, Op: op, StatusCode: resp.StatusCode, Message: env.Error}
	}

	return body, nil
}

// decodeBody unmarshals a response body into target.
func decodeBody(op string, body []byte, target interface{}) error {
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &Error{Kind: KindDecode, Op: op, Err: fmt.Errorf("failed to decode payload: %w", err)}
	}
	return nil
}

// InvalidateCache clears every cached response. Called when the active
// company changes: all cached responses belong to the previous company's
// books.
func (c *Client) InvalidateCache() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear()
}
