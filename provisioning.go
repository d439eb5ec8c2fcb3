package onboarding

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// RegistrationKind selects the provisioning variant. The set is
// closed: every kind has its own message type and required fields.
type RegistrationKind = string

const (
	KindUser      RegistrationKind = "user"
	KindCandidate RegistrationKind = "candidate"
	KindCompany   RegistrationKind = "company"
	KindNgo       RegistrationKind = "ngo"
)

// Result messages returned to callers after provisioning.
const (
	MessageVerificationEmailSent = "verification email sent"
	MessageApplicationReceived   = "application received"
	MessagePasswordSetupSent     = "password setup email sent"
)

// FileUpload is a binary attachment received with a registration.
type FileUpload struct {
	Category    AssetCategory `json:"category"`
	Name        string        `json:"name"`
	ContentType string        `json:"content_type"`
	Content     []byte        `json:"content"`
}

// RegisterUserMessage provisions a plain account with no profile.
// Password is optional: password-less registrations stay pending until
// approved.
type RegisterUserMessage struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Roles     []string `json:"roles"`
	UseHashID bool     `json:"-"`
}

func (m RegisterUserMessage) Type() string { return "onboarding.register.user" }

func (m RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Password, validation.Length(MinPasswordLength, 100)),
	)
}

// RegisterCandidateMessage provisions a job-seeker account. Password
// is optional: password-less registrations are applications that stay
// pending until approved. SponsorNgoID marks a registration performed
// by a support organization on the candidate's behalf.
type RegisterCandidateMessage struct {
	Email        string       `json:"email"`
	Password     string       `json:"password"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	Phone        string       `json:"phone"`
	Headline     string       `json:"headline"`
	SponsorNgoID *uuid.UUID   `json:"sponsor_ngo_id"`
	Photo        *FileUpload  `json:"photo"`
	CV           *FileUpload  `json:"cv"`
	Video        *FileUpload  `json:"video"`
	Certificates []FileUpload `json:"certificates"`
	Roles        []string     `json:"roles"`
	UseHashID    bool         `json:"-"`
}

func (m RegisterCandidateMessage) Type() string { return "onboarding.register.candidate" }

func (m RegisterCandidateMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Password, validation.Length(MinPasswordLength, 100)),
		validation.Field(&m.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Phone, validation.By(validatePhone)),
	)
}

// RegisterCompanyMessage provisions an employer organization account.
// No password is accepted: one is generated and a setup email sent.
type RegisterCompanyMessage struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Phone     string      `json:"phone"`
	Website   string      `json:"website"`
	Logo      *FileUpload `json:"logo"`
	Roles     []string    `json:"roles"`
	UseHashID bool        `json:"-"`
}

func (m RegisterCompanyMessage) Type() string { return "onboarding.register.company" }

func (m RegisterCompanyMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Phone, validation.By(validatePhone)),
		validation.Field(&m.Website, is.URL),
	)
}

// RegisterNgoMessage provisions a support organization account. Like
// companies, the password is generated.
type RegisterNgoMessage struct {
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	Phone              string      `json:"phone"`
	RegistrationNumber string      `json:"registration_number"`
	Logo               *FileUpload `json:"logo"`
	Roles              []string    `json:"roles"`
	UseHashID          bool        `json:"-"`
}

func (m RegisterNgoMessage) Type() string { return "onboarding.register.ngo" }

func (m RegisterNgoMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Phone, validation.By(validatePhone)),
	)
}

// validatePhone accepts empty values; otherwise the number must be a
// valid E.164 international number.
func validatePhone(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "ZZ")
	if err != nil {
		return errors.New("must be an international (E.164) phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// ProvisionedResult is the outcome of a completed registration.
type ProvisionedResult struct {
	Account            *Account `json:"account"`
	Session            *Session `json:"session,omitempty"`
	Message            string   `json:"message"`
	VerificationIssued bool     `json:"-"`
}

// ProvisioningSaga orchestrates multi-step registration. Steps that
// touch the database or the asset store register compensations; a
// failure unwinds completed steps in reverse so no orphan account or
// unreferenced stored object survives. Notification and auto-login run
// after the saga commits and are best-effort.
type ProvisioningSaga struct {
	repo      RepositoryManager
	stager    AssetStager
	vault     *TokenVault
	sessions  *SessionIssuer
	notifier  Notifier
	scorer    ProfileScorer
	activity  ActivitySink
	logger    Logger
	autoLogin bool
}

// NewProvisioningSaga wires the saga over the repository manager.
func NewProvisioningSaga(repo RepositoryManager) *ProvisioningSaga {
	return &ProvisioningSaga{
		repo:     repo,
		stager:   noopStager{},
		vault:    NewTokenVault(repo.Accounts()),
		notifier: noopNotifier{},
		scorer:   defaultScorer{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithAssetStager configures the binary attachment store.
func (p *ProvisioningSaga) WithAssetStager(stager AssetStager) *ProvisioningSaga {
	if stager != nil {
		p.stager = stager
	}
	return p
}

// WithTokenVault overrides the single-use token vault.
func (p *ProvisioningSaga) WithTokenVault(vault *TokenVault) *ProvisioningSaga {
	if vault != nil {
		p.vault = vault
	}
	return p
}

// WithSessionIssuer enables auto-login after active registrations.
func (p *ProvisioningSaga) WithSessionIssuer(issuer *SessionIssuer) *ProvisioningSaga {
	p.sessions = issuer
	return p
}

// WithNotifier configures outbound email.
func (p *ProvisioningSaga) WithNotifier(n Notifier) *ProvisioningSaga {
	p.notifier = normalizeNotifier(n)
	return p
}

// WithProfileScorer overrides the completion scorer.
func (p *ProvisioningSaga) WithProfileScorer(s ProfileScorer) *ProvisioningSaga {
	p.scorer = normalizeScorer(s)
	return p
}

// WithActivitySink configures the audit sink.
func (p *ProvisioningSaga) WithActivitySink(sink ActivitySink) *ProvisioningSaga {
	p.activity = normalizeActivitySink(sink)
	return p
}

// WithLogger overrides the logger.
func (p *ProvisioningSaga) WithLogger(logger Logger) *ProvisioningSaga {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithAutoLogin issues a session for accounts that come out of
// registration active.
func (p *ProvisioningSaga) WithAutoLogin(enabled bool) *ProvisioningSaga {
	p.autoLogin = enabled
	return p
}

// RegisterUser provisions a plain account.
func (p *ProvisioningSaga) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*ProvisionedResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, invalidPayload(err)
	}

	return p.run(ctx, &provisionPlan{
		kind:      KindUser,
		email:     msg.Email,
		password:  msg.Password,
		roles:     msg.Roles,
		useHashID: msg.UseHashID,
	})
}

// RegisterCandidate provisions a job-seeker account with its profile
// and attachments.
func (p *ProvisioningSaga) RegisterCandidate(ctx context.Context, msg RegisterCandidateMessage) (*ProvisionedResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, invalidPayload(err)
	}

	uploads := make([]FileUpload, 0, 3+len(msg.Certificates))
	uploads = appendUpload(uploads, msg.Photo, AssetCategoryPhoto)
	uploads = appendUpload(uploads, msg.CV, AssetCategoryCV)
	uploads = appendUpload(uploads, msg.Video, AssetCategoryVideo)
	for i := range msg.Certificates {
		uploads = appendUpload(uploads, &msg.Certificates[i], AssetCategoryCertificate)
	}

	return p.run(ctx, &provisionPlan{
		kind:       KindCandidate,
		email:      msg.Email,
		password:   msg.Password,
		roles:      msg.Roles,
		useHashID:  msg.UseHashID,
		uploads:    uploads,
		sponsorNgo: msg.SponsorNgoID,
		candidate:  &msg,
	})
}

// RegisterCompany provisions an employer organization account.
func (p *ProvisioningSaga) RegisterCompany(ctx context.Context, msg RegisterCompanyMessage) (*ProvisionedResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, invalidPayload(err)
	}

	return p.run(ctx, &provisionPlan{
		kind:      KindCompany,
		email:     msg.Email,
		roles:     msg.Roles,
		useHashID: msg.UseHashID,
		uploads:   appendUpload(nil, msg.Logo, AssetCategoryLogo),
		company:   &msg,
	})
}

// RegisterNgo provisions a support organization account.
func (p *ProvisioningSaga) RegisterNgo(ctx context.Context, msg RegisterNgoMessage) (*ProvisionedResult, error) {
	if err := msg.Validate(); err != nil {
		return nil, invalidPayload(err)
	}

	return p.run(ctx, &provisionPlan{
		kind:      KindNgo,
		email:     msg.Email,
		roles:     msg.Roles,
		useHashID: msg.UseHashID,
		uploads:   appendUpload(nil, msg.Logo, AssetCategoryLogo),
		ngo:       &msg,
	})
}

type provisionPlan struct {
	kind       RegistrationKind
	email      string
	password   string
	roles      []string
	useHashID  bool
	uploads    []FileUpload
	sponsorNgo *uuid.UUID
	candidate  *RegisterCandidateMessage
	company    *RegisterCompanyMessage
	ngo        *RegisterNgoMessage
}

type stagedUpload struct {
	ref    AssetRef
	upload FileUpload
}

type provisionState struct {
	account   *Account
	staged    []stagedUpload
	candidate *CandidateProfile
	company   *CompanyProfile
	ngo       *NgoProfile
}

func (s *provisionState) key(category AssetCategory) string {
	for _, st := range s.staged {
		if st.ref.Category == category {
			return st.ref.Key
		}
	}
	return ""
}

func (p *ProvisioningSaga) run(ctx context.Context, plan *provisionPlan) (*ProvisionedResult, error) {
	email := NormalizeEmail(plan.email)

	if _, err := p.repo.Accounts().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}

	roleNames, err := p.resolveRoleNames(plan)
	if err != nil {
		return nil, err
	}

	if plan.sponsorNgo != nil {
		if _, err := p.repo.Profiles().Ngos().GetByID(ctx, plan.sponsorNgo.String()); err != nil {
			if goerrors.IsNotFound(err) {
				return nil, goerrors.New("sponsoring organization not found", goerrors.CategoryValidation).
					WithCode(goerrors.CodeBadRequest).
					WithMetadata(map[string]any{
						"sponsor_ngo_id": plan.sponsorNgo.String(),
					})
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve sponsoring organization")
		}
	}

	password := plan.password
	generated := false
	if password == "" && (plan.kind == KindCompany || plan.kind == KindNgo) {
		password = GeneratePassword(GeneratedPasswordLength)
		generated = true
	}

	hash := ""
	if password != "" {
		if !generated {
			if err := ValidatePasswordStrength(password); err != nil {
				return nil, err
			}
		}
		if hash, err = HashPassword(password); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}
	}

	state := &provisionState{}

	saga := NewSaga("register_" + plan.kind).WithLogger(p.logger)

	saga.Step(SagaStep{
		Name: "stage_assets",
		Forward: func(ctx context.Context) error {
			return p.stageAssets(ctx, state, plan.uploads)
		},
		Compensate: func(ctx context.Context) error {
			p.unstageAll(ctx, state)
			return nil
		},
	})

	saga.Step(SagaStep{
		Name: "create_account",
		Forward: func(ctx context.Context) error {
			return p.createAccount(ctx, state, plan, email, hash)
		},
		Compensate: func(ctx context.Context) error {
			if state.account == nil {
				return nil
			}
			return p.repo.Accounts().HardDelete(ctx, state.account.ID)
		},
	})

	// Profile, asset, and role rows cascade away with the account
	// delete, so the remaining steps need no compensation of their own.
	saga.Then("create_profile", func(ctx context.Context) error {
		return p.createProfile(ctx, state, plan)
	})
	saga.Then("link_assets", func(ctx context.Context) error {
		return p.linkAssets(ctx, state, plan)
	})
	saga.Then("attach_roles", func(ctx context.Context) error {
		return p.attachRoles(ctx, state, roleNames)
	})
	saga.Then("score_profile", func(ctx context.Context) error {
		return p.scoreProfile(ctx, state, plan)
	})

	if err := saga.Run(ctx); err != nil {
		recordActivity(ctx, p.activity, p.logger, ActivityEvent{
			EventType: ActivityEventCompensation,
			Metadata: map[string]any{
				"kind":  plan.kind,
				"email": email,
			},
		})
		return nil, err
	}

	result := &ProvisionedResult{
		Account: state.account.Sanitized(),
	}

	p.notify(ctx, state, plan, generated, result)
	p.autoSession(ctx, state, result)

	recordActivity(ctx, p.activity, p.logger, ActivityEvent{
		EventType: ActivityEventRegistration,
		AccountID: state.account.ID.String(),
		ToStatus:  state.account.Status,
		Metadata: map[string]any{
			"kind": plan.kind,
		},
	})

	return result, nil
}

func (p *ProvisioningSaga) resolveRoleNames(plan *provisionPlan) ([]string, error) {
	names := plan.roles
	if len(names) == 0 {
		names = []string{defaultRoleForKind(plan.kind)}
	}

	seen := map[string]struct{}{}
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		if !IsKnownRole(name) {
			return nil, goerrors.New("unknown role", goerrors.CategoryValidation).
				WithTextCode(TextCodeUnknownRole).
				WithCode(goerrors.CodeBadRequest).
				WithMetadata(map[string]any{
					"role": name,
				})
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		resolved = append(resolved, name)
	}

	return resolved, nil
}

// stageAssets uploads each attachment. A partial failure unstages the
// uploads that made it before returning, so the saga never sees a half
// staged batch.
func (p *ProvisioningSaga) stageAssets(ctx context.Context, state *provisionState, uploads []FileUpload) error {
	for _, upload := range uploads {
		if len(upload.Content) == 0 {
			continue
		}

		ref, err := p.stager.Stage(ctx, upload.Content, AssetMeta{
			Category:    upload.Category,
			FileName:    upload.Name,
			ContentType: upload.ContentType,
		})
		if err != nil {
			p.unstageAll(ctx, state)
			state.staged = nil
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to store attachment").
				WithTextCode(TextCodeAssetStoreFailure).
				WithMetadata(map[string]any{
					"category":  upload.Category,
					"file_name": upload.Name,
				})
		}

		state.staged = append(state.staged, stagedUpload{ref: ref, upload: upload})
	}

	return nil
}

func (p *ProvisioningSaga) unstageAll(ctx context.Context, state *provisionState) {
	for _, st := range state.staged {
		if err := p.stager.Unstage(ctx, st.ref.Key); err != nil {
			p.logger.Error("failed to unstage asset %s: %v", st.ref.Key, err)
		}
	}
}

func (p *ProvisioningSaga) createAccount(ctx context.Context, state *provisionState, plan *provisionPlan, email, hash string) error {
	account := &Account{
		Email:        email,
		PasswordHash: hash,
		FirstLogin:   true,
	}

	if hash != "" {
		account.Status = AccountStatusActive
		account.IsActive = true
	} else {
		account.Status = AccountStatusPending
	}

	if key := state.key(AssetCategoryPhoto); key != "" {
		account.ProfilePicture = key
	}

	if plan.useHashID {
		if id, err := hashid.NewUUID(email); err == nil {
			account.ID = id
		}
	}

	created, err := p.repo.Accounts().Create(ctx, account)
	if err != nil {
		// A unique violation here means a concurrent registration won
		// the race after the availability check.
		return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account").
			WithTextCode(TextCodeEmailTaken).
			WithCode(goerrors.CodeConflict)
	}

	state.account = created
	return nil
}

func (p *ProvisioningSaga) createProfile(ctx context.Context, state *provisionState, plan *provisionPlan) error {
	switch plan.kind {
	case KindCandidate:
		msg := plan.candidate
		profile, err := p.repo.Profiles().CreateCandidate(ctx, &CandidateProfile{
			AccountID:    state.account.ID,
			FirstName:    msg.FirstName,
			LastName:     msg.LastName,
			Phone:        msg.Phone,
			Headline:     msg.Headline,
			CVKey:        state.key(AssetCategoryCV),
			VideoKey:     state.key(AssetCategoryVideo),
			SponsorNgoID: msg.SponsorNgoID,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create candidate profile")
		}
		state.candidate = profile

	case KindCompany:
		msg := plan.company
		profile, err := p.repo.Profiles().CreateCompany(ctx, &CompanyProfile{
			AccountID: state.account.ID,
			Name:      msg.Name,
			Phone:     msg.Phone,
			Website:   msg.Website,
			LogoKey:   state.key(AssetCategoryLogo),
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create company profile")
		}
		state.company = profile

	case KindNgo:
		msg := plan.ngo
		profile, err := p.repo.Profiles().CreateNgo(ctx, &NgoProfile{
			AccountID:          state.account.ID,
			Name:               msg.Name,
			Phone:              msg.Phone,
			RegistrationNumber: msg.RegistrationNumber,
			LogoKey:            state.key(AssetCategoryLogo),
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create ngo profile")
		}
		state.ngo = profile
	}

	return nil
}

func (p *ProvisioningSaga) linkAssets(ctx context.Context, state *provisionState, plan *provisionPlan) error {
	for _, st := range state.staged {
		asset, err := p.repo.Assets().CreateAsset(ctx, &Asset{
			AccountID:   state.account.ID,
			Category:    st.ref.Category,
			StorageKey:  st.ref.Key,
			FileName:    st.upload.Name,
			ContentType: st.upload.ContentType,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record asset")
		}

		if plan.sponsorNgo != nil {
			if err := p.repo.Assets().AddProvenance(ctx, asset.ID, *plan.sponsorNgo); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record asset provenance")
			}
		}
	}

	return nil
}

func (p *ProvisioningSaga) attachRoles(ctx context.Context, state *provisionState, names []string) error {
	attached := make([]*Role, 0, len(names))
	for _, name := range names {
		role, err := p.repo.Roles().GetOrCreate(ctx, name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not resolve role")
		}

		if err := p.repo.Roles().Attach(ctx, state.account.ID, role.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not attach role")
		}

		attached = append(attached, role)
	}

	state.account.Roles = attached
	return nil
}

func (p *ProvisioningSaga) scoreProfile(ctx context.Context, state *provisionState, plan *provisionPlan) error {
	switch plan.kind {
	case KindCandidate:
		state.candidate.Completion = p.scorer.ScoreCandidate(state.candidate)
		return p.repo.Profiles().UpdateCompletion(ctx, ProfileKindCandidate, state.account.ID, state.candidate.Completion)
	case KindCompany:
		state.company.Completion = p.scorer.ScoreCompany(state.company)
		return p.repo.Profiles().UpdateCompletion(ctx, ProfileKindCompany, state.account.ID, state.company.Completion)
	case KindNgo:
		state.ngo.Completion = p.scorer.ScoreNgo(state.ngo)
		return p.repo.Profiles().UpdateCompletion(ctx, ProfileKindNgo, state.account.ID, state.ngo.Completion)
	}

	return nil
}

// notify dispatches the post-registration email. Failures are logged,
// never surfaced: the account is committed by now and a mail hiccup
// must not unwind it.
func (p *ProvisioningSaga) notify(ctx context.Context, state *provisionState, plan *provisionPlan, generated bool, result *ProvisionedResult) {
	account := state.account

	switch {
	case account.PasswordHash != "" && !generated:
		result.Message = MessageVerificationEmailSent
		token, err := p.vault.Issue(ctx, account.ID, TokenKindVerification, VerificationTokenTTL)
		if err != nil {
			p.logger.Error("failed to issue verification token for %s: %v", account.ID, err)
			return
		}
		result.VerificationIssued = true
		if err := p.notifier.SendVerification(ctx, account.Email, token); err != nil {
			p.logger.Error("failed to send verification email to %s: %v", account.Email, err)
		}

	case generated:
		result.Message = MessagePasswordSetupSent
		token, err := p.vault.Issue(ctx, account.ID, TokenKindPasswordReset, PasswordResetTokenTTL)
		if err != nil {
			p.logger.Error("failed to issue password setup token for %s: %v", account.ID, err)
			return
		}
		if err := p.notifier.SendPasswordReset(ctx, account.Email, token); err != nil {
			p.logger.Error("failed to send password setup email to %s: %v", account.Email, err)
		}

	default:
		result.Message = MessageApplicationReceived
		if err := p.notifier.SendApplicationReceived(ctx, account.Email); err != nil {
			p.logger.Error("failed to send application email to %s: %v", account.Email, err)
		}
	}
}

// autoSession issues a session for accounts that came out active.
func (p *ProvisioningSaga) autoSession(ctx context.Context, state *provisionState, result *ProvisionedResult) {
	if !p.autoLogin || p.sessions == nil {
		return
	}
	if !state.account.IsActive || state.account.Status != AccountStatusActive {
		return
	}

	session, err := p.sessions.Issue(ctx, state.account)
	if err != nil {
		p.logger.Error("failed to issue session after registration for %s: %v", state.account.ID, err)
		return
	}

	result.Session = session
}

func appendUpload(uploads []FileUpload, upload *FileUpload, category AssetCategory) []FileUpload {
	if upload == nil || len(upload.Content) == 0 {
		return uploads
	}

	u := *upload
	u.Category = category
	return append(uploads, u)
}

func invalidPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
		WithCode(goerrors.CodeBadRequest)
}
