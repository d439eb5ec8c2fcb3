package onboarding

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles aggregates the three profile families behind one surface so
// the saga and facade do not juggle three generic repositories.
type Profiles interface {
	Candidates() repository.Repository[*CandidateProfile]
	Companies() repository.Repository[*CompanyProfile]
	Ngos() repository.Repository[*NgoProfile]

	CreateCandidate(ctx context.Context, record *CandidateProfile) (*CandidateProfile, error)
	CreateCandidateTx(ctx context.Context, tx bun.IDB, record *CandidateProfile) (*CandidateProfile, error)
	CreateCompany(ctx context.Context, record *CompanyProfile) (*CompanyProfile, error)
	CreateCompanyTx(ctx context.Context, tx bun.IDB, record *CompanyProfile) (*CompanyProfile, error)
	CreateNgo(ctx context.Context, record *NgoProfile) (*NgoProfile, error)
	CreateNgoTx(ctx context.Context, tx bun.IDB, record *NgoProfile) (*NgoProfile, error)

	UpdateCompletion(ctx context.Context, kind ProfileKind, accountID uuid.UUID, pct int) error
	UpdateCompletionTx(ctx context.Context, tx bun.IDB, kind ProfileKind, accountID uuid.UUID, pct int) error

	GetOrganizationOwner(ctx context.Context, orgID uuid.UUID) (uuid.UUID, ProfileKind, error)
}

type profiles struct {
	db         *bun.DB
	candidates repository.Repository[*CandidateProfile]
	companies  repository.Repository[*CompanyProfile]
	ngos       repository.Repository[*NgoProfile]
}

var _ Profiles = (*profiles)(nil)

func NewProfilesRepository(db *bun.DB) Profiles {
	return &profiles{
		db: db,
		candidates: repository.NewRepository[*CandidateProfile](db, repository.ModelHandlers[*CandidateProfile]{
			NewRecord: func() *CandidateProfile { return &CandidateProfile{} },
			GetID: func(p *CandidateProfile) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *CandidateProfile, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
		companies: repository.NewRepository[*CompanyProfile](db, repository.ModelHandlers[*CompanyProfile]{
			NewRecord: func() *CompanyProfile { return &CompanyProfile{} },
			GetID: func(p *CompanyProfile) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *CompanyProfile, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
		ngos: repository.NewRepository[*NgoProfile](db, repository.ModelHandlers[*NgoProfile]{
			NewRecord: func() *NgoProfile { return &NgoProfile{} },
			GetID: func(p *NgoProfile) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *NgoProfile, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
		}),
	}
}

func (p *profiles) Candidates() repository.Repository[*CandidateProfile] { return p.candidates }
func (p *profiles) Companies() repository.Repository[*CompanyProfile]    { return p.companies }
func (p *profiles) Ngos() repository.Repository[*NgoProfile]             { return p.ngos }

func (p *profiles) CreateCandidate(ctx context.Context, record *CandidateProfile) (*CandidateProfile, error) {
	return p.CreateCandidateTx(ctx, p.db, record)
}

func (p *profiles) CreateCandidateTx(ctx context.Context, tx bun.IDB, record *CandidateProfile) (*CandidateProfile, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return p.candidates.CreateTx(ctx, tx, record)
}

func (p *profiles) CreateCompany(ctx context.Context, record *CompanyProfile) (*CompanyProfile, error) {
	return p.CreateCompanyTx(ctx, p.db, record)
}

func (p *profiles) CreateCompanyTx(ctx context.Context, tx bun.IDB, record *CompanyProfile) (*CompanyProfile, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return p.companies.CreateTx(ctx, tx, record)
}

func (p *profiles) CreateNgo(ctx context.Context, record *NgoProfile) (*NgoProfile, error) {
	return p.CreateNgoTx(ctx, p.db, record)
}

func (p *profiles) CreateNgoTx(ctx context.Context, tx bun.IDB, record *NgoProfile) (*NgoProfile, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return p.ngos.CreateTx(ctx, tx, record)
}

func (p *profiles) UpdateCompletion(ctx context.Context, kind ProfileKind, accountID uuid.UUID, pct int) error {
	return p.UpdateCompletionTx(ctx, p.db, kind, accountID, pct)
}

func (p *profiles) UpdateCompletionTx(ctx context.Context, tx bun.IDB, kind ProfileKind, accountID uuid.UUID, pct int) error {
	table, ok := profileTable(kind)
	if !ok {
		return goerrors.New("unknown profile kind", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"kind": kind,
			})
	}

	_, err := tx.NewRaw(`
		UPDATE `+table+`
		SET "completion_pct" = ?
		WHERE "account_id" = ?;
	`, pct, accountID).Exec(ctx)

	return err
}

// GetOrganizationOwner resolves an organization profile ID (company or
// ngo) to the owning account.
func (p *profiles) GetOrganizationOwner(ctx context.Context, orgID uuid.UUID) (uuid.UUID, ProfileKind, error) {
	company, err := p.companies.GetByID(ctx, orgID.String())
	if err == nil {
		return company.AccountID, ProfileKindCompany, nil
	}
	if !repository.IsRecordNotFound(err) {
		return uuid.Nil, "", err
	}

	ngo, err := p.ngos.GetByID(ctx, orgID.String())
	if err == nil {
		return ngo.AccountID, ProfileKindNgo, nil
	}
	if !repository.IsRecordNotFound(err) {
		return uuid.Nil, "", err
	}

	return uuid.Nil, "", repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"organization_id": orgID.String(),
		})
}

func profileTable(kind ProfileKind) (string, bool) {
	switch kind {
	case ProfileKindCandidate:
		return `"candidate_profiles"`, true
	case ProfileKindCompany:
		return `"company_profiles"`, true
	case ProfileKindNgo:
		return `"ngo_profiles"`, true
	default:
		return "", false
	}
}
