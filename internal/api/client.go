// Package api is the authorized HTTP client for the journal backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/me/journal/internal/config"
	"github.com/me/journal/pkg/model"
)

// TokenSource supplies the bearer token at call time. *session.Session
// satisfies it.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token() string { return string(t) }

// TransportError means no response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrCancelled reports a declined confirmation; no request was sent.
var ErrCancelled = errors.New("cancelled")

// UserMessage returns the backend-provided text carried by err if there is
// any, and fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client is an HTTP client for the journal backend.
type Client struct {
	cfg        config.APIConfig
	baseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	tokens     TokenSource
}

// New creates a Client for cfg. It sends no token until WithToken is used.
func New(cfg config.APIConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger.With("component", "api"),
	}
}

// WithToken returns a copy of c that authorizes requests with the token
// src holds at the time of each call.
func (c *Client) WithToken(src TokenSource) *Client {
	cp := *c
	cp.tokens = src
	return &cp
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Do sends method to path with body JSON-encoded (when non-nil), attaching
// the bearer token if one is held. A 2xx body is decoded into out (when
// non-nil and the body is not empty); an out of type *[]byte receives the
// raw body instead. Failures are *TransportError or *model.APIError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	c.Logger.Debug("HTTP request", "method", method, "url", url, "authorized", req.Header.Get("Authorization") != "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: url, Err: fmt.Errorf("read response: %w", err)}
	}

	c.Logger.Debug("HTTP response", "method", method, "url", url, "status", resp.StatusCode, "duration", time.Since(start).String())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.NewAPIError(resp.StatusCode, respBody)
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = respBody
		return nil
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func (c *Client) path(name string, params map[string]string) (string, error) {
	return c.cfg.Path(name, params)
}
