package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() accounts.Config {
	return accounts.NewConfig(
		accounts.WithSigningKey("test-signing-key"),
		accounts.WithIssuer("accounts-test"),
		accounts.WithAudience("accounts-test"),
	)
}

func TestAutherLoginRoundTrip(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()
	sink := &capturingSink{}

	seedAccount(t, repo, "web@example.com", "web")

	provider := accounts.NewUserProvider(repo)
	auther := accounts.NewAuthenticator(provider, newTestConfig()).
		WithActivitySink(sink)

	token, err := auther.Login(ctx, "web@example.com", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, "accounts-test", session.GetIssuer())
	assert.Equal(t, accounts.RoleUser, session.GetRole())
	assert.False(t, session.IsAdmin())

	_, err = session.GetUserUUID()
	assert.NoError(t, err)

	identity, err := auther.IdentityFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "web", identity.Username())

	assert.Contains(t, sink.eventTypes(), accounts.ActivityEventLoginSuccess)
}

func TestAutherLoginAdminRole(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "admin@example.com", "admin", func(u *accounts.User, p *accounts.Profile) {
		p.Role = accounts.RoleAdmin
	})

	provider := accounts.NewUserProvider(repo)
	auther := accounts.NewAuthenticator(provider, newTestConfig())

	token, err := auther.Login(ctx, "admin@example.com", testPassword)
	require.NoError(t, err)

	session, err := auther.SessionFromToken(token)
	require.NoError(t, err)
	assert.True(t, session.IsAdmin())
	assert.Equal(t, accounts.DestinationAdminDashboard, accounts.Destination(session.GetRole()))
}

func TestAutherLoginFailureEmitsEvent(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()
	sink := &capturingSink{}

	seedAccount(t, repo, "fail@example.com", "fail")

	provider := accounts.NewUserProvider(repo)
	auther := accounts.NewAuthenticator(provider, newTestConfig()).
		WithActivitySink(sink)

	_, err := auther.Login(ctx, "fail@example.com", "wrong-password")
	require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
	assert.Contains(t, sink.eventTypes(), accounts.ActivityEventLoginFailure)
}

func TestSessionFromTokenRejectsForgedToken(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	seedAccount(t, repo, "forged@example.com", "forged")

	provider := accounts.NewUserProvider(repo)
	auther := accounts.NewAuthenticator(provider, newTestConfig())

	token, err := auther.Login(ctx, "forged@example.com", testPassword)
	require.NoError(t, err)

	otherCfg := accounts.NewConfig(
		accounts.WithSigningKey("a-different-key"),
		accounts.WithIssuer("accounts-test"),
		accounts.WithAudience("accounts-test"),
	)
	other := accounts.NewAuthenticator(provider, otherCfg)

	_, err = other.SessionFromToken(token)
	require.Error(t, err)

	_, err = other.SessionFromToken("not.a.jwt")
	require.Error(t, err)
}

func TestTokenServiceValidate(t *testing.T) {
	svc := accounts.NewTokenService(
		[]byte("test-signing-key"), 24, "accounts-test", []string{"accounts-test"}, nil,
	)

	expired := accounts.NewTokenService(
		[]byte("test-signing-key"), -1, "accounts-test", []string{"accounts-test"}, nil,
	)

	identity := testIdentity{
		id:       "7b0d2b8e-0000-4000-8000-000000000001",
		username: "claims",
		email:    "claims@example.com",
		role:     accounts.RoleAdmin,
	}

	t.Run("round trip", func(t *testing.T) {
		token, err := svc.Generate(identity)
		require.NoError(t, err)

		claims, err := svc.Validate(token)
		require.NoError(t, err)
		assert.Equal(t, identity.id, claims.UserID())
		assert.Equal(t, accounts.RoleAdmin, claims.Role())
		assert.True(t, claims.IsAdmin())
		assert.True(t, claims.HasRole(accounts.RoleAdmin))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := expired.Generate(identity)
		require.NoError(t, err)

		_, err = svc.Validate(token)
		require.ErrorIs(t, err, accounts.ErrTokenExpired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("garbage")
		require.Error(t, err)
	})
}

type testIdentity struct {
	id       string
	username string
	email    string
	role     accounts.UserRole
}

func (i testIdentity) ID() string              { return i.id }
func (i testIdentity) Username() string        { return i.username }
func (i testIdentity) Email() string           { return i.email }
func (i testIdentity) Role() accounts.UserRole { return i.role }
