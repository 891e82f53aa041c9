package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/Team-SSOK/ssok-auth-client/internal/errors"
	"github.com/Team-SSOK/ssok-auth-client/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20
)

// Client is the backend HTTP client. Requests carry the stored bearer token
// and are re-issued once with a refreshed token when the backend answers 401.
type Client struct {
	baseURL   string
	http      *http.Client
	transport *authTransport
	log       zerolog.Logger
}

type Option func(*Client)

// WithBaseTransport sets the transport below the auth interceptor.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport.base = rt
	}
}

// WithSoftPaths lists path prefixes whose refresh failures are downgraded to a soft no-refresh-token error.
func WithSoftPaths(paths ...string) Option {
	return func(c *Client) {
		c.transport.softPaths = append(c.transport.softPaths, paths...)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
		c.transport.log = l
	}
}

func New(baseURL string, store token.Store, refresher Refresher, options ...Option) *Client {
	t := &authTransport{
		base:      http.DefaultTransport,
		store:     store,
		refresher: refresher,
		log:       log.Logger,
	}
	c := &Client{
		baseURL:   baseURL,
		transport: t,
		http:      &http.Client{Transport: t, Timeout: defaultTimeout},
		log:       log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// OnAuthFailure registers the handler told when a refresh failure ends the session.
// It is set after construction because the session manager depends on the client.
func (c *Client) OnAuthFailure(h AuthFailureHandler) {
	c.transport.onAuthFailure = h
}

// HTTPClient exposes the intercepting *http.Client for callers building their own requests.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Do sends req through the interceptor chain.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Response is a decoded backend reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into out.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("%w: empty body", apperrors.ErrInvalidResponse)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidResponse, err)
	}
	return nil
}

// Call sends in as JSON to path and returns the raw reply. Transport failures
// are KindNetwork errors unless the interceptor already produced a typed error.
func (c *Client) Call(ctx context.Context, method, path string, in any) (*Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("[Client.Call] marshal: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("[Client.Call] build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if apperrors.KindOf(err) != "" {
			return nil, err
		}
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return nil, apperrors.New(apperrors.KindNetwork, "Network error. Check your connection and try again.",
			fmt.Errorf("%w: %w", apperrors.ErrNetwork, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperrors.New(apperrors.KindNetwork, "Network error. Check your connection and try again.",
			fmt.Errorf("%w: read body: %w", apperrors.ErrNetwork, err))
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("Request completed")
	return &Response{StatusCode: resp.StatusCode, Body: raw}, nil
}
