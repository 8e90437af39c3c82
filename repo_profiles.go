package accounts

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Profiles interface {
	repository.Repository[*Profile]

	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)

	GetByUserID(ctx context.Context, userID uuid.UUID, criteria ...repository.SelectCriteria) (*Profile, error)
	GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, criteria ...repository.SelectCriteria) (*Profile, error)

	EnsureProfile(ctx context.Context, userID uuid.UUID) (*Profile, bool, error)
	EnsureProfileTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, bool, error)

	MarkVerified(ctx context.Context, id uuid.UUID) (*Profile, error)
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	prepareProfileDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *profiles) GetByUserID(ctx context.Context, userID uuid.UUID, criteria ...repository.SelectCriteria) (*Profile, error) {
	return a.GetByUserIDTx(ctx, a.db, userID, criteria...)
}

func (a *profiles) GetByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, criteria ...repository.SelectCriteria) (*Profile, error) {
	record := &Profile{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) EnsureProfile(ctx context.Context, userID uuid.UUID) (*Profile, bool, error) {
	return a.EnsureProfileTx(ctx, a.db, userID)
}

// EnsureProfileTx returns the profile for the user, creating a default one
// when the account predates profile provisioning. The second return value
// reports whether a record was created.
func (a *profiles) EnsureProfileTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Profile, bool, error) {
	record, err := a.GetByUserIDTx(ctx, tx, userID)
	if err == nil {
		return record, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	record, err = a.CreateTx(ctx, tx, &Profile{UserID: userID})
	if err != nil {
		return nil, false, err
	}

	return record, true, nil
}

func (a *profiles) MarkVerified(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

func (a *profiles) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record := &Profile{
		ID:            id,
		EmailVerified: true,
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}

	record.EnsureRole()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
