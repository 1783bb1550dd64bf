// Package crmclient is the Go client for the clinic CRM API. It mirrors the
// browser client's session handling: a durable token cache, a navigation
// guard working from unverified cached claims, and a transport decorator that
// attaches the bearer token and reacts to session expiry.
package crmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Identity is the resolved account returned by login, register and me.
type Identity struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the CRM API with the cached session token attached.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *TokenCache
	logger  *zap.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithSessionExpiredHandler installs a callback fired when the server rejects
// the cached token; the UI layer uses it to show a "session expired" message
// distinguishable from a wrong password.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) {
		if transport, ok := c.http.Transport.(*AuthTransport); ok {
			transport.OnSessionExpired = fn
		}
	}
}

// New builds a client whose transport attaches the cached token to every
// outgoing request.
func New(baseURL string, cache *TokenCache, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		logger:  logger,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &AuthTransport{
				Cache:  cache,
				Logger: logger,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenCache exposes the cache shared with the guard and transport.
func (c *Client) TokenCache() *TokenCache {
	return c.cache
}

type loginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

type meResponse struct {
	User Identity `json:"user"`
}

// Login authenticates and stores the issued token in the cache.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	body := map[string]string{"email": email, "password": password}
	var res loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.cache.SetToken(res.Token)
	return &res.User, nil
}

// RegisterRequest carries the registration payload.
type RegisterRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`
	Birthday *string `json:"birthday,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// Register creates a patient account and stores the issued token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	var res loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &res); err != nil {
		return nil, err
	}
	c.cache.SetToken(res.Token)
	return &res.User, nil
}

// Me asks the server who the cached token belongs to. The route guard's slow
// path relies on this call.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var res meResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &res); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Logout discards the cached token. The server call is best-effort since the
// token cannot be invalidated server-side anyway.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	c.cache.Clear()
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
