package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyIdentity(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "login@example.com", "login")

	provider := accounts.NewUserProvider(repo)

	t.Run("valid credentials by email", func(t *testing.T) {
		identity, err := provider.VerifyIdentity(ctx, "login@example.com", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "login", identity.Username())
		assert.Equal(t, accounts.RoleUser, identity.Role())
	})

	t.Run("valid credentials by username", func(t *testing.T) {
		identity, err := provider.VerifyIdentity(ctx, "login", testPassword)
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", identity.Email())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := provider.VerifyIdentity(ctx, "login@example.com", "wrong-password")
		require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	})

	t.Run("unknown identifier gives the same error", func(t *testing.T) {
		_, err := provider.VerifyIdentity(ctx, "ghost@example.com", testPassword)
		require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	})
}

func TestVerifyIdentityInactiveAccount(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "pending@example.com", "pending", func(u *accounts.User, p *accounts.Profile) {
		u.IsActive = false
		p.EmailVerified = false
	})

	provider := accounts.NewUserProvider(repo)

	_, err := provider.VerifyIdentity(ctx, "pending@example.com", testPassword)
	require.ErrorIs(t, err, accounts.ErrAccountNotVerified)

	// wrong password on an inactive account still reports bad credentials,
	// not the activation state
	_, err = provider.VerifyIdentity(ctx, "pending@example.com", "wrong-password")
	require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
}

func TestVerifyIdentityVerificationBypass(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "unverified@example.com", "unverified", func(u *accounts.User, p *accounts.Profile) {
		u.IsActive = false
	})
	seedAccount(t, repo, "root@example.com", "root", func(u *accounts.User, p *accounts.Profile) {
		u.IsActive = false
		u.IsSuperuser = true
	})

	provider := accounts.NewUserProvider(repo).WithVerificationBypass(true)

	// bypass admits unverified regular accounts
	_, err := provider.VerifyIdentity(ctx, "unverified@example.com", testPassword)
	require.NoError(t, err)

	// a deactivated superuser stays blocked
	_, err = provider.VerifyIdentity(ctx, "root@example.com", testPassword)
	require.ErrorIs(t, err, accounts.ErrAccountNotVerified)
}

func TestVerifyIdentityResolvesRole(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "boss@example.com", "boss", func(u *accounts.User, p *accounts.Profile) {
		p.Role = accounts.RoleAdmin
	})
	seedAccount(t, repo, "staff@example.com", "staff", func(u *accounts.User, p *accounts.Profile) {
		u.IsStaff = true
	})

	provider := accounts.NewUserProvider(repo)

	identity, err := provider.VerifyIdentity(ctx, "boss@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleAdmin, identity.Role())

	identity, err = provider.VerifyIdentity(ctx, "staff@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleAdmin, identity.Role())
}

func TestVerifyIdentityHealsMissingProfile(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	// account created outside the registration flow, no profile row
	user, err := repo.Users().Create(ctx, &accounts.User{
		Username:     "legacy",
		Email:        "legacy@example.com",
		PasswordHash: passwordHash(t),
		IsActive:     true,
	})
	require.NoError(t, err)

	provider := accounts.NewUserProvider(repo)

	identity, err := provider.VerifyIdentity(ctx, "legacy@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleUser, identity.Role())

	profile, err := repo.Profiles().GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, accounts.RoleUser, profile.Role)
}

func TestFindIdentityByIdentifier(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, _ := seedAccount(t, repo, "find@example.com", "find")

	provider := accounts.NewUserProvider(repo)

	identity, err := provider.FindIdentityByIdentifier(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), identity.ID())

	_, err = provider.FindIdentityByIdentifier(ctx, "missing@example.com")
	require.ErrorIs(t, err, accounts.ErrIdentityNotFound)
}
