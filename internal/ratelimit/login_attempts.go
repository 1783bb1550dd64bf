package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LoginAttemptTracker counts failed logins per email in Redis and locks the
// account out once the limit is reached inside the window. Redis being down
// must never block logins, so every check fails open with a warning.
type LoginAttemptTracker struct {
	client *redis.Client
	logger *zap.Logger
	limit  int
	window time.Duration
}

// NewLoginAttemptTracker builds a tracker. A nil client disables tracking.
func NewLoginAttemptTracker(client *redis.Client, logger *zap.Logger, limit, windowMinutes int) *LoginAttemptTracker {
	if limit <= 0 {
		limit = 5
	}
	if windowMinutes <= 0 {
		windowMinutes = 15
	}
	return &LoginAttemptTracker{
		client: client,
		logger: logger,
		limit:  limit,
		window: time.Duration(windowMinutes) * time.Minute,
	}
}

func attemptKey(email string) string {
	return "login_attempts:" + strings.ToLower(email)
}

// TooManyAttempts reports whether the email is currently locked out.
func (t *LoginAttemptTracker) TooManyAttempts(ctx context.Context, email string) bool {
	if t == nil || t.client == nil {
		return false
	}
	count, err := t.client.Get(ctx, attemptKey(email)).Int()
	if err != nil {
		if err != redis.Nil {
			t.logger.Warn("login attempt lookup failed", zap.Error(err))
		}
		return false
	}
	return count >= t.limit
}

// RecordFailure increments the failure counter and starts the window on the
// first failure.
func (t *LoginAttemptTracker) RecordFailure(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	key := attemptKey(email)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Warn("login attempt record failed", zap.Error(err))
		return
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Warn("login attempt expire failed", zap.Error(err))
		}
	}
}

// Reset clears the counter after a successful login.
func (t *LoginAttemptTracker) Reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	if err := t.client.Del(ctx, attemptKey(email)).Err(); err != nil {
		t.logger.Warn("login attempt reset failed", zap.Error(err))
	}
}
