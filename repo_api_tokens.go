package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type APITokens interface {
	repository.Repository[*APIToken]

	GetByKey(ctx context.Context, key string) (*APIToken, error)
	GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*APIToken, error)

	GetOrCreate(ctx context.Context, userID uuid.UUID) (*APIToken, bool, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*APIToken, bool, error)

	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type apiTokens struct {
	repository.Repository[*APIToken]
	db *bun.DB
}

var (
	_ APITokens                        = (*apiTokens)(nil)
	_ repository.Repository[*APIToken] = (*apiTokens)(nil)
)

func NewAPITokensRepository(db *bun.DB) APITokens {
	repo := repository.NewRepository[*APIToken](db, repository.ModelHandlers[*APIToken]{
		NewRecord: func() *APIToken { return &APIToken{} },
		GetID: func(t *APIToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *APIToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "key"
		},
	})

	return &apiTokens{
		Repository: repo,
		db:         db,
	}
}

func (a *apiTokens) GetByKey(ctx context.Context, key string) (*APIToken, error) {
	return a.GetByKeyTx(ctx, a.db, key)
}

func (a *apiTokens) GetByKeyTx(ctx context.Context, tx bun.IDB, key string) (*APIToken, error) {
	record := &APIToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *apiTokens) GetOrCreate(ctx context.Context, userID uuid.UUID) (*APIToken, bool, error) {
	return a.GetOrCreateTx(ctx, a.db, userID)
}

// GetOrCreateTx returns the user's bearer token, minting one on first use.
// The second return value reports whether a record was created.
func (a *apiTokens) GetOrCreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*APIToken, bool, error) {
	record := &APIToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err == nil {
		return record, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	key, err := GenerateRandomToken(TokenByteLength)
	if err != nil {
		return nil, false, err
	}

	record = &APIToken{
		ID:     uuid.New(),
		UserID: userID,
		Key:    key,
	}

	record, err = a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, false, err
	}

	return record, true, nil
}

func (a *apiTokens) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return a.DeleteByUserTx(ctx, a.db, userID)
}

// DeleteByUserTx removes the user's bearer token. Deleting a token that does
// not exist is not an error, logout is idempotent.
func (a *apiTokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*APIToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)

	return err
}
