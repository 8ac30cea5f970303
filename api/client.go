// Package api talks to the CinEase backend. Every request carries the
// session's bearer token when there is one.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource yields the current bearer token, or "" when logged out.
type TokenSource interface {
	Token() string
}

type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type Client struct {
	base    string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	log     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout bounds every request, body included.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.http.Timeout = d } }

func WithTokens(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

func WithLogger(l *log.Logger) Option { return func(c *Client) { c.log = l } }

// New builds a client for the API rooted at base, e.g. "http://host/api".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens:  TokenFunc(func() string { return "" }),
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, path string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Printf("[API]: %s %s failed: %v", req.Method, path, err)
		return fmt.Errorf("%s %s: %w", req.Method, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", req.Method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Method: req.Method, Path: path, Message: errorMessage(b)}
		c.log.Printf("[API]: %v", apiErr)
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", req.Method, path, err)
	}
	return nil
}

// unwrapList decodes either a bare JSON array or an object holding the
// array under key.
func unwrapList(raw json.RawMessage, key string, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	inner, ok := wrapped[key]
	if !ok {
		return fmt.Errorf("response has no %q list", key)
	}
	return json.Unmarshal(inner, out)
}

// unwrapOne decodes a bare object or one wrapped under key.
func unwrapOne(raw json.RawMessage, key string, out any) error {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	if inner, ok := wrapped[key]; ok && len(inner) > 0 && inner[0] == '{' {
		return json.Unmarshal(inner, out)
	}
	return json.Unmarshal(raw, out)
}
