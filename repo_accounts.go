package onboarding

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetAccountPasswordSQL = `UPDATE "accounts" AS "acc"
SET
	"is_email_verified" = TRUE,
	"password_hash" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var TrackSuccessfulLoginSQL = `UPDATE "accounts" AS "acc"
SET
	"loggedin_at" = ?,
	"is_first_login" = FALSE
WHERE
	("acc".id = ?)
	AND "acc"."deleted_at" IS NULL;`

// Accounts is the account repository. Token and credential columns are
// updated with raw SQL so clearing a column to its zero value is not
// silently dropped by the ORM update.
type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	GetWithRoles(ctx context.Context, id uuid.UUID) (*Account, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	HardDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	SetAuthToken(ctx context.Context, id uuid.UUID, kind TokenKind, token string, expiresAt time.Time) error
	ClearAuthToken(ctx context.Context, id uuid.UUID) error
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Relation("Roles").
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) GetWithRoles(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Roles").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// HardDelete removes the row instead of soft deleting; compensation
// must leave the email free for a retry.
func (a *accounts) HardDelete(ctx context.Context, id uuid.UUID) error {
	return a.HardDeleteTx(ctx, a.db, id)
}

func (a *accounts) HardDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		ForceDelete().
		Exec(ctx)
	return err
}

func (a *accounts) SetAuthToken(ctx context.Context, id uuid.UUID, kind TokenKind, token string, expiresAt time.Time) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"auth_token" = ?,
			"auth_token_kind" = ?,
			"auth_token_expires_at" = ?
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, token, kind, expiresAt, id).Exec(ctx)

	return err
}

func (a *accounts) ClearAuthToken(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"auth_token" = '',
			"auth_token_kind" = '',
			"auth_token_expires_at" = NULL
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, id).Exec(ctx)

	return err
}

func (a *accounts) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"refresh_token" = ?
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, token, id).Exec(ctx)

	return err
}

// SetPassword stores a fresh hash and marks the email verified: the
// reset token only ever reaches the mailbox owner.
func (a *accounts) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, a.db, SetAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) MarkVerified(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"is_email_verified" = TRUE
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, id).Exec(ctx)

	return err
}

func (a *accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, a.db, `
		UPDATE "accounts" AS "acc"
		SET
			"status" = ?,
			"is_active" = ?
		WHERE
			"acc"."deleted_at" IS NULL
		AND (
			"acc"."id" = ?
		) RETURNING *;
	`, status, status == AccountStatusActive, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	_, err := a.db.NewRaw(TrackSuccessfulLoginSQL, time.Now(), account.ID).Exec(ctx)
	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
