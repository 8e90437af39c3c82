package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationTokensIssueAndClaim(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, profile := seedAccount(t, repo, "tokens@example.com", "tokens")

	token, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindEmailVerification)
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
	assert.False(t, token.Consumed())

	claimed, err := repo.VerificationTokens().Claim(ctx, token.Token, accounts.KindEmailVerification)
	require.NoError(t, err)
	assert.True(t, claimed.Consumed())
	assert.Equal(t, user.ID, claimed.UserID)
	assert.Equal(t, profile.ID, claimed.ProfileID)
}

func TestVerificationTokensClaimIsSingleUse(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, profile := seedAccount(t, repo, "once@example.com", "once")

	token, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindPasswordReset)
	require.NoError(t, err)

	_, err = repo.VerificationTokens().Claim(ctx, token.Token, accounts.KindPasswordReset)
	require.NoError(t, err)

	// second claim finds no unspent row
	_, err = repo.VerificationTokens().Claim(ctx, token.Token, accounts.KindPasswordReset)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	// the spent record is still readable
	spent, err := repo.VerificationTokens().GetByToken(ctx, token.Token, accounts.KindPasswordReset)
	require.NoError(t, err)
	assert.True(t, spent.Consumed())
}

func TestVerificationTokensClaimChecksKind(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, profile := seedAccount(t, repo, "kinds@example.com", "kinds")

	token, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindEmailVerification)
	require.NoError(t, err)

	// a verification token cannot authorize a password reset
	_, err = repo.VerificationTokens().Claim(ctx, token.Token, accounts.KindPasswordReset)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))
}

func TestVerificationTokensIssueRetiresOutstanding(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, profile := seedAccount(t, repo, "retire@example.com", "retire")

	first, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindPasswordReset)
	require.NoError(t, err)

	second, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindPasswordReset)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	// only the latest link works
	_, err = repo.VerificationTokens().Claim(ctx, first.Token, accounts.KindPasswordReset)
	require.Error(t, err)
	assert.True(t, goerrors.IsNotFound(err))

	_, err = repo.VerificationTokens().Claim(ctx, second.Token, accounts.KindPasswordReset)
	require.NoError(t, err)
}

func TestVerificationTokensIssueLeavesOtherKindsAlone(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	user, profile := seedAccount(t, repo, "mixed@example.com", "mixed")

	verify, err := repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindEmailVerification)
	require.NoError(t, err)

	_, err = repo.VerificationTokens().Issue(ctx, user, profile, accounts.KindPasswordReset)
	require.NoError(t, err)

	// issuing a reset token does not retire the verification token
	_, err = repo.VerificationTokens().Claim(ctx, verify.Token, accounts.KindEmailVerification)
	require.NoError(t, err)
}
