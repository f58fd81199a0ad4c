package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.Contains(t, string(hash), "$argon2id$v=19$")

	ok, err := VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h1, err := HashPassword("same input")
	require.NoError(t, err)
	h2, err := HashPassword("same input")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := VerifyPassword("anything", []byte("not-a-hash"))
	assert.Error(t, err)
}
