package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomToken(t *testing.T) {
	token, err := accounts.GenerateRandomToken(accounts.TokenByteLength)
	require.NoError(t, err)
	// 32 bytes base64url encoded without padding
	assert.Len(t, token, 43)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
}

func TestGenerateRandomTokenUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 10000; i++ {
		token, err := accounts.GenerateRandomToken(accounts.TokenByteLength)
		require.NoError(t, err)
		require.False(t, seen[token])
		seen[token] = true
	}
}

func TestGenerateRandomTokenDefaultsLength(t *testing.T) {
	token, err := accounts.GenerateRandomToken(0)
	require.NoError(t, err)
	assert.Len(t, token, 43)
}
