package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "correct horse")

	assert.NoError(t, ComparePassword(hash, "correct horse battery staple"))
	assert.Error(t, ComparePassword(hash, "wrong password"))
}

func TestComparePasswordMalformedHash(t *testing.T) {
	// Must return an error, never panic.
	assert.Error(t, ComparePassword("not-a-bcrypt-hash", "anything"))
	assert.Error(t, ComparePassword("", "anything"))
}

func TestHashPasswordDistinctSalts(t *testing.T) {
	first, err := HashPassword("same input", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("same input", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
