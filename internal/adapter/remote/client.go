// Package remote is the HTTP client for the authoritative lifestyle API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"lifesync/internal/domain"
	"lifesync/internal/metrics"
)

const maxBody = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps requests per second. Zero disables pacing.
	RateLimit float64
	Burst     int
	// TokenSource, when set, authorizes every request with a bearer token.
	TokenSource oauth2.TokenSource
	Metrics     *metrics.Collector
}

// Client implements domain.Gateway over HTTP.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	metrics *metrics.Collector
}

var _ domain.Gateway = (*Client)(nil)

// New creates a Client. Requests go to {BaseURL}/api{endpoint}.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := &http.Client{Timeout: timeout}
	if opts.TokenSource != nil {
		hc.Transport = &oauth2.Transport{Source: opts.TokenSource, Base: http.DefaultTransport}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		limiter: limiter,
		metrics: opts.Metrics,
	}
}

// Replay issues r and discards the response body.
func (c *Client) Replay(ctx context.Context, r domain.Request) error {
	_, err := c.do(ctx, r)
	return err
}

// do sends r and returns the response body of a 2xx reply. Other statuses
// become *domain.RemoteError.
func (c *Client) do(ctx context.Context, r domain.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.base + "/api" + r.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("remote url: %w", err)
	}
	if len(r.Params) > 0 {
		q := u.Query()
		for k, v := range r.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRemoteRequest(r.Method, 0)
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.metrics.RecordRemoteRequest(r.Method, resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", r.Method, r.Endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.RemoteError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
	}
	return data, nil
}

// errorMessage pulls a readable message out of an error response.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error", "message", "detail"} {
			if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
				return v.String()
			}
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" && len(msg) <= 200 {
		return msg
	}
	return http.StatusText(status)
}

// decodeList unmarshals the array under key. Bare arrays are accepted too;
// a body with neither decodes to an empty list.
func decodeList(body []byte, key string, dst any) error {
	raw := ""
	if v := gjson.GetBytes(body, key); v.Exists() && v.IsArray() {
		raw = v.Raw
	} else if v := gjson.ParseBytes(body); v.IsArray() {
		raw = v.Raw
	}
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// decodeOne unmarshals a single entity, unwrapping {key: {...}} envelopes.
// It reports false when the body is empty.
func decodeOne(body []byte, key string, dst any) (bool, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return false, nil
	}
	raw := body
	if v := gjson.GetBytes(body, key); v.Exists() && v.IsObject() {
		raw = []byte(v.Raw)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
