package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kbukum/mediaflow/resilience"
)

// Client sends requests to one backend, optionally through a rate limiter,
// a circuit breaker and a retry loop, applied in that order per attempt.
type Client struct {
	http    *http.Client
	cfg     Config
	breaker *resilience.CircuitBreaker
	limiter *resilience.RateLimiter
}

// New creates a client from cfg.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		http: &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.Timeout,
		},
		cfg: cfg,
	}
	if cfg.CircuitBreaker != nil {
		c.breaker = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		c.limiter = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return c, nil
}

// Do sends req. A non-2xx answer returns both the response and a
// classified *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.cfg.Retry == nil {
		return c.attempt(ctx, req)
	}
	return resilience.Retry(ctx, *c.cfg.Retry, func() (*Response, error) {
		return c.attempt(ctx, req)
	})
}

// Ping reports whether GET path answers 2xx. It bypasses the limiter and
// the breaker so health probes never trip or consume them.
func (c *Client) Ping(ctx context.Context, path string) bool {
	resp, err := c.send(ctx, Request{Method: http.MethodGet, Path: path})
	return err == nil && resp.IsSuccess()
}

func (c *Client) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.breaker == nil {
		return c.send(ctx, req)
	}
	var resp *Response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.send(ctx, req)
		return err
	})
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if e := ClassifyStatusCode(resp.StatusCode, body); e != nil {
		return out, e
	}
	return out, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if c.cfg.BaseURL != "" && !strings.Contains(req.Path, "://") {
		joined, err := url.JoinPath(c.cfg.BaseURL, req.Path)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("join %q: %v", req.Path, err))
		}
		target = joined
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}
