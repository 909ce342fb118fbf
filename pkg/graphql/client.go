package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token of the current session.
// *appstate.Context satisfies it.
type TokenSource interface {
	Token() (string, error)
}

// Request is the wire shape of a GraphQL call.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors Errors                     `json:"errors"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTokenSource attaches bearer tokens to every request.
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithLogger overrides the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client posts named operations to a single GraphQL endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	tokens   TokenSource
	logger   *zap.Logger
}

// NewClient builds a client for endpoint.
func NewClient(endpoint string, options ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("graphql: endpoint is required")
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Do runs operation op and decodes data.<op> into out. out may be nil for
// mutations whose result is ignored. A null result decodes to ErrNotFound.
func (c *Client) Do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(Request{Query: query, OperationName: op, Variables: variables})
	if err != nil {
		return fmt.Errorf("graphql: %s: encode: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("graphql: %s: request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token, err := c.tokens.Token(); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("graphql: %s: do request: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("graphql call",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("graphql: %s: %w", op, ErrUnauthenticated)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Operation: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("graphql: %s: decode: %w", op, err)
	}
	if len(payload.Errors) > 0 {
		if payload.Errors.unauthenticated() {
			return fmt.Errorf("graphql: %s: %w", op, ErrUnauthenticated)
		}
		return fmt.Errorf("graphql: %s: %w", op, payload.Errors)
	}

	raw, ok := payload.Data[op]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("graphql: %s: %w", op, ErrNotFound)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("graphql: %s: decode result: %w", op, err)
	}
	return nil
}
