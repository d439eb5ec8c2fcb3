package onboarding

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TokenKind labels the purpose of the single-use token in the
// account's token slot. The slot is shared: issuing a token of any
// kind overwrites whatever was there.
type TokenKind = string

const (
	// TokenKindVerification is issued after password registration.
	TokenKindVerification TokenKind = "verification"
	// TokenKindPasswordReset is issued by the forgot-password flow.
	TokenKindPasswordReset TokenKind = "password_reset"
	// TokenKindMagicLink is issued for passwordless login.
	TokenKindMagicLink TokenKind = "magic_link"
)

// AccountStatus is the lifecycle status of an account.
type AccountStatus = string

const (
	// AccountStatusPending marks password-less applications awaiting approval.
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive marks accounts that may authenticate.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended marks temporarily blocked accounts.
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusArchived is terminal.
	AccountStatusArchived AccountStatus = "archived"
)

// Account is the email-keyed identity record.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID                 uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email              string        `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash       string        `bun:"password_hash" json:"-"`
	Status             AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	IsActive           bool          `bun:"is_active" json:"is_active"`
	EmailVerified      bool          `bun:"is_email_verified" json:"is_email_verified"`
	FirstLogin         bool          `bun:"is_first_login" json:"is_first_login"`
	ProfilePicture     string        `bun:"profile_picture" json:"profile_picture,omitempty"`
	AuthToken          string        `bun:"auth_token" json:"-"`
	AuthTokenKind      TokenKind     `bun:"auth_token_kind" json:"-"`
	AuthTokenExpiresAt *time.Time    `bun:"auth_token_expires_at,nullzero" json:"-"`
	RefreshToken       string        `bun:"refresh_token" json:"-"`
	LoggedInAt         *time.Time    `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	Roles              []*Role       `bun:"m2m:account_roles,join:Account=Role" json:"roles,omitempty"`
	CreatedAt          *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status column for rows created before it existed.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		if a.IsActive {
			a.Status = AccountStatusActive
		} else {
			a.Status = AccountStatusPending
		}
	}
}

// RoleNames returns the attached role names, empty slice when none loaded.
func (a *Account) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		if r != nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// PrimaryRole returns the first attached role, or the platform default.
func (a *Account) PrimaryRole() string {
	if len(a.Roles) > 0 && a.Roles[0] != nil {
		return a.Roles[0].Name
	}
	return RoleDefault
}

// Sanitized returns a copy safe to hand back to callers: credential
// hash and token material stripped.
func (a *Account) Sanitized() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.PasswordHash = ""
	clone.AuthToken = ""
	clone.RefreshToken = ""
	return &clone
}

// Role is a platform role attachable to many accounts.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID          uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name        string    `bun:"name,notnull,unique" json:"name,omitempty"`
	Description string    `bun:"description" json:"description,omitempty"`
}

// AccountRole is the accounts<->roles join row.
type AccountRole struct {
	bun.BaseModel `bun:"table:account_roles,alias:acr"`

	AccountID uuid.UUID `bun:"account_id,pk,type:uuid" json:"account_id,omitempty"`
	Account   *Account  `bun:"rel:belongs-to,join:account_id=id" json:"-"`
	RoleID    uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	Role      *Role     `bun:"rel:belongs-to,join:role_id=id" json:"-"`
}

// ProfileKind selects which profile family an account extends into.
type ProfileKind = string

const (
	ProfileKindCandidate ProfileKind = "candidate"
	ProfileKindCompany   ProfileKind = "company"
	ProfileKindNgo       ProfileKind = "ngo"
)

// CandidateProfile extends an Account for job seekers. Sponsored
// candidates carry a foreign key to the sponsoring NGO profile.
type CandidateProfile struct {
	bun.BaseModel `bun:"table:candidate_profiles,alias:cnd"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID    uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	FirstName    string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName     string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Phone        string     `bun:"phone_number" json:"phone_number,omitempty"`
	Headline     string     `bun:"headline" json:"headline,omitempty"`
	CVKey        string     `bun:"cv_key" json:"cv_key,omitempty"`
	VideoKey     string     `bun:"video_key" json:"video_key,omitempty"`
	SponsorNgoID *uuid.UUID `bun:"sponsor_ngo_id,nullzero,type:uuid" json:"sponsor_ngo_id,omitempty"`
	Completion   int        `bun:"completion_pct" json:"completion_pct"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// CompanyProfile extends an Account for employer organizations.
type CompanyProfile struct {
	bun.BaseModel `bun:"table:company_profiles,alias:cmp"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID  uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Name       string     `bun:"name,notnull" json:"name,omitempty"`
	Phone      string     `bun:"phone_number" json:"phone_number,omitempty"`
	Website    string     `bun:"website" json:"website,omitempty"`
	LogoKey    string     `bun:"logo_key" json:"logo_key,omitempty"`
	Completion int        `bun:"completion_pct" json:"completion_pct"`
	CreatedAt  *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt  *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NgoProfile extends an Account for support organizations.
type NgoProfile struct {
	bun.BaseModel `bun:"table:ngo_profiles,alias:ngo"`

	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID          uuid.UUID  `bun:"account_id,notnull,unique,type:uuid" json:"account_id,omitempty"`
	Name               string     `bun:"name,notnull" json:"name,omitempty"`
	Phone              string     `bun:"phone_number" json:"phone_number,omitempty"`
	RegistrationNumber string     `bun:"registration_number" json:"registration_number,omitempty"`
	LogoKey            string     `bun:"logo_key" json:"logo_key,omitempty"`
	Completion         int        `bun:"completion_pct" json:"completion_pct"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// AssetCategory is the logical category of a stored binary attachment.
type AssetCategory = string

const (
	AssetCategoryPhoto       AssetCategory = "photo"
	AssetCategoryCV          AssetCategory = "cv"
	AssetCategoryVideo       AssetCategory = "video"
	AssetCategoryCertificate AssetCategory = "certificate"
	AssetCategoryLogo        AssetCategory = "logo"
)

// Asset is the database side of a stored binary object. Once the
// provisioning saga completes, a row here implies the bytes exist in
// the asset store and vice versa.
type Asset struct {
	bun.BaseModel `bun:"table:assets,alias:ast"`

	ID          uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID   uuid.UUID     `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Category    AssetCategory `bun:"category,notnull" json:"category,omitempty"`
	StorageKey  string        `bun:"storage_key,notnull,unique" json:"storage_key,omitempty"`
	FileName    string        `bun:"file_name" json:"file_name,omitempty"`
	ContentType string        `bun:"content_type" json:"content_type,omitempty"`
	CreatedAt   *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AssetProvenance records that an asset was uploaded on behalf of a
// candidate by a sponsoring NGO.
type AssetProvenance struct {
	bun.BaseModel `bun:"table:asset_provenance,alias:apv"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AssetID   uuid.UUID  `bun:"asset_id,notnull,type:uuid" json:"asset_id,omitempty"`
	NgoID     uuid.UUID  `bun:"ngo_id,notnull,type:uuid" json:"ngo_id,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
