package onboarding

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles resolves role names to rows and links them to accounts.
type Roles interface {
	repository.Repository[*Role]

	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	GetOrCreate(ctx context.Context, name string) (*Role, error)
	Attach(ctx context.Context, accountID, roleID uuid.UUID) error
	AttachTx(ctx context.Context, tx bun.IDB, accountID, roleID uuid.UUID) error
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"name": name,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetOrCreate resolves a role by name, creating the row on first use.
func (r *roles) GetOrCreate(ctx context.Context, name string) (*Role, error) {
	record, err := r.GetByName(ctx, name)
	if err == nil {
		return record, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return r.Repository.Create(ctx, &Role{
		ID:   uuid.New(),
		Name: name,
	})
}

func (r *roles) Attach(ctx context.Context, accountID, roleID uuid.UUID) error {
	return r.AttachTx(ctx, r.db, accountID, roleID)
}

// AttachTx links a role to an account; attaching twice is a no-op.
func (r *roles) AttachTx(ctx context.Context, tx bun.IDB, accountID, roleID uuid.UUID) error {
	row := &AccountRole{
		AccountID: accountID,
		RoleID:    roleID,
	}

	_, err := tx.NewInsert().
		Model(row).
		On("CONFLICT DO NOTHING").
		Exec(ctx)

	return err
}
