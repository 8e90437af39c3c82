package accounts_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPITokensGetOrCreate(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "api@example.com", "api")

	token, created, err := repo.APITokens().GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, token.Key)

	// repeated logins reuse the same key
	again, created, err := repo.APITokens().GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, token.Key, again.Key)
}

func TestAPITokensGetByKey(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "key@example.com", "key")

	token, _, err := repo.APITokens().GetOrCreate(ctx, user.ID)
	require.NoError(t, err)

	found, err := repo.APITokens().GetByKey(ctx, token.Key)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)

	_, err = repo.APITokens().GetByKey(ctx, "bogus-key")
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestAPITokensDeleteByUser(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "del@example.com", "del")

	token, _, err := repo.APITokens().GetOrCreate(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, repo.APITokens().DeleteByUser(ctx, user.ID))

	_, err = repo.APITokens().GetByKey(ctx, token.Key)
	require.Error(t, err)

	// logout is idempotent
	require.NoError(t, repo.APITokens().DeleteByUser(ctx, user.ID))

	// a later login mints a new key
	fresh, created, err := repo.APITokens().GetOrCreate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, token.Key, fresh.Key)
}
