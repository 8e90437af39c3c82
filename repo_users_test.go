package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersGetByIdentifier(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "peter@example.com", "peter")

	t.Run("by email", func(t *testing.T) {
		found, err := repo.Users().GetByIdentifier(ctx, "peter@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("by username", func(t *testing.T) {
		found, err := repo.Users().GetByIdentifier(ctx, "peter")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("by uuid", func(t *testing.T) {
		found, err := repo.Users().GetByIdentifier(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, user.Email, found.Email)
	})

	t.Run("with profile relation", func(t *testing.T) {
		found, err := repo.Users().GetByIdentifier(ctx, "peter", accounts.WithProfile())
		require.NoError(t, err)
		require.NotNil(t, found.Profile)
		assert.Equal(t, user.ID, found.Profile.UserID)
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := repo.Users().GetByIdentifier(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
	})
}

func TestUsersActivate(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "inactive@example.com", "inactive", func(u *accounts.User, p *accounts.Profile) {
		u.IsActive = false
		p.EmailVerified = false
	})

	activated, err := repo.Users().Activate(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	reloaded, err := repo.Users().GetByIdentifier(ctx, user.ID.String())
	require.NoError(t, err)
	assert.True(t, reloaded.IsActive)
}

func TestUsersResetPassword(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "reset@example.com", "reset")

	newHash, err := accounts.HashPassword("another-password-1")
	require.NoError(t, err)

	require.NoError(t, repo.Users().ResetPassword(ctx, user.ID, newHash))

	reloaded, err := repo.Users().GetByIdentifier(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, newHash, reloaded.PasswordHash)
	assert.NoError(t, accounts.ComparePasswordAndHash("another-password-1", reloaded.PasswordHash))
}

func TestUsersSearch(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "alice@example.com", "alice", func(u *accounts.User, p *accounts.Profile) {
		u.FirstName = "Alice"
		u.LastName = "Anderson"
	})
	seedAccount(t, repo, "bob@example.com", "bob", func(u *accounts.User, p *accounts.Profile) {
		u.FirstName = "Bob"
		u.LastName = "Builder"
	})

	t.Run("empty query returns all", func(t *testing.T) {
		users, err := repo.Users().Search(ctx, "")
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("matches username", func(t *testing.T) {
		users, err := repo.Users().Search(ctx, "ali")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)
	})

	t.Run("matches last name case-insensitive", func(t *testing.T) {
		users, err := repo.Users().Search(ctx, "BUILD")
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "bob", users[0].Username)
	})

	t.Run("no matches", func(t *testing.T) {
		users, err := repo.Users().Search(ctx, "zelda")
		require.NoError(t, err)
		assert.Empty(t, users)
	})
}

func TestProfilesEnsureProfile(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, err := repo.Users().Create(ctx, &accounts.User{
		Username:     "bare",
		Email:        "bare@example.com",
		PasswordHash: passwordHash(t),
		IsActive:     true,
	})
	require.NoError(t, err)

	profile, created, err := repo.Profiles().EnsureProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, accounts.RoleUser, profile.Role)
	assert.Equal(t, user.ID, profile.UserID)

	again, created, err := repo.Profiles().EnsureProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, profile.ID, again.ID)
}

func TestProfilesMarkVerified(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	_, profile := seedAccount(t, repo, "verify@example.com", "verify", func(u *accounts.User, p *accounts.Profile) {
		p.EmailVerified = false
	})

	updated, err := repo.Profiles().MarkVerified(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)
}
