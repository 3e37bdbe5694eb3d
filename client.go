package dkr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is used when NewClient is given an empty base URL.
	DefaultBaseURL = "/api/v1"
	// DefaultOrigin resolves relative base URLs.
	DefaultOrigin = "http://localhost:8000"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 60 * time.Second
)

// RequestInterceptor runs on every outbound request before dispatch.
// Returning an error aborts the call with a RequestError.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes every response that arrived, with its full
// payload, before the client unwraps or normalizes it.
type ResponseInterceptor func(resp *http.Response, payload []byte)

// Client is a DKR API client. It is safe for concurrent use.
type Client struct {
	baseURL     string
	origin      string
	headers     http.Header
	credentials CredentialProvider
	outbound    []RequestInterceptor
	inbound     []ResponseInterceptor
	httpClient  *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The client is copied and its
// Timeout replaced by the configured timeout; c itself is not modified.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		if c != nil {
			client.httpClient = c
		}
	}
}

// WithTimeout sets the timeout bounding each request. Non-positive values
// are ignored.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		if d > 0 {
			client.timeout = d
		}
	}
}

// WithOrigin sets the scheme and host used when the base URL is relative.
func WithOrigin(origin string) Option {
	return func(client *Client) {
		client.origin = origin
	}
}

// WithHeader sets a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(client *Client) {
		client.headers.Set(key, value)
	}
}

// WithCredentials sets the source of the bearer token.
func WithCredentials(p CredentialProvider) Option {
	return func(client *Client) {
		if p == nil {
			p = noCredentials
		}
		client.credentials = p
	}
}

// WithRequestInterceptor appends an outbound interceptor. Interceptors run
// in the order added, after the Authorization header is set.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(client *Client) {
		client.outbound = append(client.outbound, fn)
	}
}

// WithResponseInterceptor appends an inbound interceptor.
func WithResponseInterceptor(fn ResponseInterceptor) Option {
	return func(client *Client) {
		client.inbound = append(client.inbound, fn)
	}
}

// WithLogger sets the logger for diagnostic output. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		if l != nil {
			client.logger = l
		}
	}
}

// NewClient creates a new DKR API client.
// baseURL is the API prefix, absolute ("https://dkr.example.com/api/v1")
// or relative to the origin ("/api/v1"). An empty baseURL means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		origin:  DefaultOrigin,
		headers: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
		credentials: noCredentials,
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Timeout = c.timeout
	c.httpClient = &hc

	c.outbound = append([]RequestInterceptor{bearerAuth(c.credentials)}, c.outbound...)

	return c
}

// BaseURL returns the base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// bearerAuth sets the Authorization header when the provider has a token.
func bearerAuth(creds CredentialProvider) RequestInterceptor {
	return func(req *http.Request) error {
		token, err := creds.Token(req.Context())
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// resolveURL joins an escaped endpoint path and query onto the base URL.
func (c *Client) resolveURL(path string, query url.Values) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if !base.IsAbs() {
		origin, err := url.Parse(c.origin)
		if err != nil {
			return "", fmt.Errorf("invalid origin: %w", err)
		}
		if !origin.IsAbs() {
			return "", fmt.Errorf("relative base URL %q needs an absolute origin, got %q", c.baseURL, c.origin)
		}
		base = origin.ResolveReference(base)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}

	u := base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// send performs one call through the interceptor pipeline. On success the
// payload is decoded into result (when non-nil). Every failure is one of
// *RequestError, *NetworkError or *ServerError.
func (c *Client) send(ctx context.Context, ep endpoint, path string, query url.Values, body, result any) error {
	req, reqErr := c.newRequest(ctx, ep, path, query, body)
	if reqErr != nil {
		return c.fail(ep, reqErr)
	}

	c.logger.Debug("api request", "op", ep.Op, "method", req.Method, "url", req.URL.String())
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ep, &NetworkError{Op: ep.Op, Timeout: isTimeout(err), Err: err})
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(ep, &NetworkError{Op: ep.Op, Timeout: isTimeout(err), Err: fmt.Errorf("read response: %w", err)})
	}

	c.logger.Debug("api response", "op", ep.Op, "status", resp.StatusCode, "duration", time.Since(start))

	for _, observe := range c.inbound {
		observe(resp, payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(ep, &ServerError{
			Op:         ep.Op,
			StatusCode: resp.StatusCode,
			Payload:    payload,
		})
	}

	if result != nil && len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, result); err != nil {
			return c.fail(ep, &RequestError{Op: ep.Op, Message: "decode response", Err: err})
		}
	}

	return nil
}

// newRequest builds the request and runs the outbound interceptors.
func (c *Client) newRequest(ctx context.Context, ep endpoint, path string, query url.Values, body any) (*http.Request, *RequestError) {
	fullURL, err := c.resolveURL(path, query)
	if err != nil {
		return nil, &RequestError{Op: ep.Op, Message: "build URL", Err: err}
	}

	encoded, contentType, err := ep.Encoding.encode(body)
	if err != nil {
		return nil, &RequestError{Op: ep.Op, Message: "encode " + ep.Encoding.String() + " body", Err: err}
	}
	var reader io.Reader
	if encoded != nil {
		reader = encoded
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, fullURL, reader)
	if err != nil {
		return nil, &RequestError{Op: ep.Op, Message: "create request", Err: err}
	}

	for key, values := range c.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, intercept := range c.outbound {
		if err := intercept(req); err != nil {
			return nil, &RequestError{Op: ep.Op, Message: "request interceptor", Err: err}
		}
	}

	return req, nil
}

// fail logs err at the level its kind deserves and returns it unchanged.
func (c *Client) fail(ep endpoint, err Error) error {
	switch e := err.(type) {
	case *ServerError:
		c.logger.Warn("api server error", "op", ep.Op, "status", e.StatusCode, "payload", string(e.Payload))
	case *NetworkError:
		c.logger.Error("api network error", "op", ep.Op, "timeout", e.Timeout, "error", e.Err)
	case *RequestError:
		c.logger.Error("api request error", "op", ep.Op, "error", e.Error())
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
