package crmclient

import (
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeToken builds a structurally valid token with an arbitrary signature;
// the cache never verifies it.
func makeToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	body := base64.RawURLEncoding.EncodeToString(payload)
	return header + "." + body + ".c2lnbmF0dXJl"
}

func newCache() *TokenCache {
	return NewTokenCache(NewMemoryStore(), nil)
}

func TestCacheEmpty(t *testing.T) {
	cache := newCache()
	assert.Empty(t, cache.Token())
	assert.Nil(t, cache.Claims())
	assert.Empty(t, cache.Role())
	assert.True(t, cache.IsExpired())
}

func TestCacheDecodesClaims(t *testing.T) {
	cache := newCache()
	cache.SetToken(makeToken(t, map[string]interface{}{
		"user_id": 42,
		"email":   "doc@example.com",
		"role":    "doctor",
		"iat":     1700000000,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}))

	claims := cache.Claims()
	require.NotNil(t, claims)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "doc@example.com", claims.Email)
	assert.Equal(t, "doctor", cache.Role())
	assert.False(t, cache.IsExpired())
}

func TestCacheMalformedTokens(t *testing.T) {
	cases := map[string]string{
		"not a jwt":        "opaque-session-id",
		"two parts":        "aaa.bbb",
		"four parts":       "a.b.c.d",
		"bad base64":       "aaa.!!!.ccc",
		"payload not json": "aaa." + base64.RawURLEncoding.EncodeToString([]byte("plain text")) + ".ccc",
	}
	for name, token := range cases {
		cache := newCache()
		cache.SetToken(token)
		assert.Nil(t, cache.Claims(), name)
		assert.Empty(t, cache.Role(), name)
		assert.True(t, cache.IsExpired(), name)
		// The raw token stays cached; only interpretation fails.
		assert.Equal(t, token, cache.Token(), name)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := newCache()

	cache.SetToken(makeToken(t, map[string]interface{}{
		"user_id": 1, "role": "staff",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}))
	assert.True(t, cache.IsExpired())

	// Missing exp counts as expired.
	cache.SetToken(makeToken(t, map[string]interface{}{
		"user_id": 1, "role": "staff",
	}))
	assert.True(t, cache.IsExpired())

	cache.SetToken(makeToken(t, map[string]interface{}{
		"user_id": 1, "role": "staff",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	assert.False(t, cache.IsExpired())
}

func TestCacheClear(t *testing.T) {
	cache := newCache()
	cache.SetToken(makeToken(t, map[string]interface{}{"user_id": 1, "role": "admin"}))
	require.NotEmpty(t, cache.Token())

	cache.Clear()
	assert.Empty(t, cache.Token())
	assert.Nil(t, cache.Claims())
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileStore(path)

	// Missing file reads as empty, not as an error.
	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("the-token"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "the-token", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	// Clearing twice is fine.
	assert.NoError(t, store.Clear())
}
