package onboarding

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	Profiles() Profiles
	Assets() Assets
	Roles() Roles
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
	profiles Profiles
	assets   Assets
	roles    Roles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	db.RegisterModel((*AccountRole)(nil))

	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
		profiles: NewProfilesRepository(db),
		assets:   NewAssetsRepository(db),
		roles:    NewRolesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.assets == nil {
		return errors.New("repository assets should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts { return m.accounts }
func (m mngr) Profiles() Profiles { return m.profiles }
func (m mngr) Assets() Assets     { return m.assets }
func (m mngr) Roles() Roles       { return m.roles }
