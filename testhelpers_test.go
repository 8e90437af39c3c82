package accounts_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testPassword = "sup3r-secret-pwd"

var (
	testPasswordOnce sync.Once
	testPasswordHash string
)

// passwordHash hashes testPassword once per test binary; hashing is the
// slowest part of the suite.
func passwordHash(t *testing.T) string {
	t.Helper()
	testPasswordOnce.Do(func() {
		h, err := accounts.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testPasswordHash = h
	})
	return testPasswordHash
}

func setupTestDB(t *testing.T) (accounts.RepositoryManager, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	ctx := context.Background()
	for _, model := range []any{
		(*accounts.User)(nil),
		(*accounts.Profile)(nil),
		(*accounts.VerificationToken)(nil),
		(*accounts.APIToken)(nil),
	} {
		_, err = db.NewCreateTable().
			Model(model).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	repo := accounts.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())

	return repo, db
}

// seedAccount creates an active, verified account with a profile. Mutators
// run before the records are persisted.
func seedAccount(t *testing.T, repo accounts.RepositoryManager, email, username string, mutators ...func(*accounts.User, *accounts.Profile)) (*accounts.User, *accounts.Profile) {
	t.Helper()
	ctx := context.Background()

	user := &accounts.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash(t),
		IsActive:     true,
	}

	profile := &accounts.Profile{
		Role:          accounts.RoleUser,
		EmailVerified: true,
	}

	for _, m := range mutators {
		m(user, profile)
	}

	user, err := repo.Users().Create(ctx, user)
	require.NoError(t, err)

	profile.UserID = user.ID
	profile, err = repo.Profiles().Create(ctx, profile)
	require.NoError(t, err)

	user.Profile = profile
	return user, profile
}

type capturingSink struct {
	events []accounts.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt accounts.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) eventTypes() []accounts.ActivityEventType {
	types := make([]accounts.ActivityEventType, 0, len(c.events))
	for _, evt := range c.events {
		types = append(types, evt.EventType)
	}
	return types
}

type capturingMailer struct {
	messages []accounts.EmailMessage
	fail     bool
}

func (m *capturingMailer) Send(ctx context.Context, msg accounts.EmailMessage) error {
	if m.fail {
		return accounts.ErrEmailDelivery
	}
	m.messages = append(m.messages, msg)
	return nil
}
