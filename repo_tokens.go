package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ClaimVerificationTokenSQL spends a token in one statement. The used_at
// guard makes the claim atomic: of two concurrent claimants only one gets a
// row back.
var ClaimVerificationTokenSQL = `UPDATE "verification_tokens" AS "vtk"
SET
	"used_at" = ?
WHERE
	"vtk"."token" = ?
AND "vtk"."kind" = ?
AND "vtk"."used_at" IS NULL
RETURNING *;`

var invalidateOutstandingTokensSQL = `UPDATE "verification_tokens" AS "vtk"
SET
	"used_at" = ?
WHERE
	"vtk"."profile_id" = ?
AND "vtk"."kind" = ?
AND "vtk"."used_at" IS NULL;`

type VerificationTokens interface {
	repository.Repository[*VerificationToken]

	Issue(ctx context.Context, user *User, profile *Profile, kind TokenKind) (*VerificationToken, error)
	IssueTx(ctx context.Context, tx bun.IDB, user *User, profile *Profile, kind TokenKind) (*VerificationToken, error)

	Claim(ctx context.Context, token string, kind TokenKind) (*VerificationToken, error)
	ClaimTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind) (*VerificationToken, error)

	GetByToken(ctx context.Context, token string, kind TokenKind) (*VerificationToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind) (*VerificationToken, error)
}

type verificationTokens struct {
	repository.Repository[*VerificationToken]
	db *bun.DB
}

var (
	_ VerificationTokens                        = (*verificationTokens)(nil)
	_ repository.Repository[*VerificationToken] = (*verificationTokens)(nil)
)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
		NewRecord: func() *VerificationToken { return &VerificationToken{} },
		GetID: func(t *VerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *VerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *verificationTokens) Issue(ctx context.Context, user *User, profile *Profile, kind TokenKind) (*VerificationToken, error) {
	return a.IssueTx(ctx, a.db, user, profile, kind)
}

// IssueTx mints a fresh token for the profile and retires any outstanding
// unspent token of the same kind, so only the latest emailed link works.
func (a *verificationTokens) IssueTx(ctx context.Context, tx bun.IDB, user *User, profile *Profile, kind TokenKind) (*VerificationToken, error) {
	value, err := GenerateRandomToken(TokenByteLength)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.NewRaw(invalidateOutstandingTokensSQL, now, profile.ID.String(), kind).Exec(ctx); err != nil {
		return nil, err
	}

	record := &VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		ProfileID: profile.ID,
		Kind:      kind,
		Token:     value,
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *verificationTokens) Claim(ctx context.Context, token string, kind TokenKind) (*VerificationToken, error) {
	return a.ClaimTx(ctx, a.db, token, kind)
}

func (a *verificationTokens) ClaimTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind) (*VerificationToken, error) {
	res, err := a.Repository.RawTx(ctx, tx, ClaimVerificationTokenSQL, time.Now(), token, kind)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"kind": kind,
			})
	}

	return res[0], nil
}

func (a *verificationTokens) GetByToken(ctx context.Context, token string, kind TokenKind) (*VerificationToken, error) {
	return a.GetByTokenTx(ctx, a.db, token, kind)
}

func (a *verificationTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string, kind TokenKind) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Where("?TableAlias.kind = ?", kind).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"kind": kind,
				})
		}
		return nil, err
	}

	return record, nil
}
