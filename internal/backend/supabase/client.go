// Package supabase implements the service contracts using Supabase Auth and
// the Supabase REST API.
package supabase

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

	"golang.org/x/oauth2"

	"supatodo/internal/config"
	"supatodo/internal/service"
)

const (
	// DefaultTimeout is the timeout for API calls when none is configured.
	DefaultTimeout = 10 * time.Second

	authPath = "/auth/v1"
	restPath = "/rest/v1"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Client implements service.Backend against a Supabase project.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	events  *broker
}

var _ service.Backend = (*Client)(nil)

// New creates a client for the project configured in cfg.
func New(cfg *config.Config) (*Client, error) {
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.Supabase.URL); err != nil {
		return nil, fmt.Errorf("invalid supabase.url: %w", err)
	}
	return NewWithHTTPClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.Timeout, nil), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// A nil httpClient uses http.DefaultTransport.
func NewWithHTTPClient(baseURL, anonKey string, timeout time.Duration, httpClient *http.Client) *Client {
	base := http.DefaultTransport
	if httpClient != nil && httpClient.Transport != nil {
		base = httpClient.Transport
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{Transport: &apiKeyTransport{key: anonKey, base: base}},
		events:  newBroker(),
	}
}

// Subscribe implements service.IdentityProvider.
func (c *Client) Subscribe(fn func(service.Event)) func() {
	return c.events.subscribe(fn)
}

// authorized returns an HTTP client that sends the session's bearer token,
// refreshing it through the auth API when it has expired.
func (c *Client) authorized(ctx context.Context, sess *service.Session) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, c.TokenSource(ctx, sess))
}

// do performs one JSON request. query and body may be nil; dst may be nil.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, query url.Values, body any, header http.Header, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return wrapError(err)
	}
	if resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if dst == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiKeyTransport adds the project's public key to every request.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("apikey", t.key)
	return t.base.RoundTrip(req)
}

// wrapError maps transport errors to service errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	return err
}
