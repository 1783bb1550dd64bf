package crmclient

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// AuthTransport decorates an http.RoundTripper: it attaches the cached token
// as a bearer header when the request carries none, and on a 401 outside the
// login/register endpoints it clears the cache and fires OnSessionExpired.
// It never retries and never swallows a response.
type AuthTransport struct {
	Base             http.RoundTripper
	Cache            *TokenCache
	Logger           *zap.Logger
	OnSessionExpired func()
}

// RoundTrip implements http.RoundTripper.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Header.Get("Authorization") == "" {
		if token := t.Cache.Token(); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthExempt(req.URL.Path) {
		t.logger().Warn("session rejected by server, clearing cached token",
			zap.String("path", req.URL.Path))
		t.Cache.Clear()
		if t.OnSessionExpired != nil {
			t.OnSessionExpired()
		}
	}
	return resp, nil
}

func (t *AuthTransport) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}

// isAuthExempt reports whether a 401 from this path means "bad credentials"
// rather than "expired session"; clearing the cache there would cause
// redirect loops on the login view.
func isAuthExempt(path string) bool {
	return strings.HasSuffix(path, "/auth/login") || strings.HasSuffix(path, "/auth/register")
}
