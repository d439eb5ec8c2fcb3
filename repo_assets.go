package onboarding

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Assets persists asset rows and their NGO provenance links.
type Assets interface {
	repository.Repository[*Asset]

	CreateAsset(ctx context.Context, record *Asset) (*Asset, error)
	CreateAssetTx(ctx context.Context, tx bun.IDB, record *Asset) (*Asset, error)
	AddProvenance(ctx context.Context, assetID, ngoID uuid.UUID) error
	AddProvenanceTx(ctx context.Context, tx bun.IDB, assetID, ngoID uuid.UUID) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Asset, error)
}

type assets struct {
	repository.Repository[*Asset]
	db *bun.DB
}

var _ Assets = (*assets)(nil)

func NewAssetsRepository(db *bun.DB) Assets {
	repo := repository.NewRepository[*Asset](db, repository.ModelHandlers[*Asset]{
		NewRecord: func() *Asset { return &Asset{} },
		GetID: func(a *Asset) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Asset, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "storage_key"
		},
	})

	return &assets{
		Repository: repo,
		db:         db,
	}
}

func (a *assets) CreateAsset(ctx context.Context, record *Asset) (*Asset, error) {
	return a.CreateAssetTx(ctx, a.db, record)
}

func (a *assets) CreateAssetTx(ctx context.Context, tx bun.IDB, record *Asset) (*Asset, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *assets) AddProvenance(ctx context.Context, assetID, ngoID uuid.UUID) error {
	return a.AddProvenanceTx(ctx, a.db, assetID, ngoID)
}

func (a *assets) AddProvenanceTx(ctx context.Context, tx bun.IDB, assetID, ngoID uuid.UUID) error {
	row := &AssetProvenance{
		ID:      uuid.New(),
		AssetID: assetID,
		NgoID:   ngoID,
	}

	_, err := tx.NewInsert().Model(row).Exec(ctx)
	return err
}

func (a *assets) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Asset, error) {
	var records []*Asset
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", accountID).
		Order("created_at ASC").
		Scan(ctx)

	return records, err
}
