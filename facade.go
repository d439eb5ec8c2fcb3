package onboarding

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Enumeration-safe responses: the same message comes back whether or
// not the email is registered.
const (
	MessageMagicLinkSent     = "if the email is registered, a sign-in link has been sent"
	MessagePasswordResetSent = "if the email is registered, a password reset link has been sent"
)

// AuthResult is the outcome of an operation that establishes a session.
type AuthResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Account      *Account  `json:"account"`
}

// Onboarder is the produced surface of the subsystem: authentication,
// registration, token flows, and session management behind one type.
type Onboarder struct {
	repo     RepositoryManager
	auth     *CredentialAuthenticator
	vault    *TokenVault
	sessions *SessionIssuer
	saga     *ProvisioningSaga
	machine  AccountStateMachine
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewOnboarder wires the default component graph over the repository
// manager. Collaborators swap in through the With methods.
func NewOnboarder(repo RepositoryManager, signingKey []byte) *Onboarder {
	accounts := repo.Accounts()

	vault := NewTokenVault(accounts)
	sessions := NewSessionIssuer(accounts, signingKey)

	o := &Onboarder{
		repo:     repo,
		auth:     NewCredentialAuthenticator(accounts),
		vault:    vault,
		sessions: sessions,
		machine:  NewAccountStateMachine(accounts),
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}

	o.saga = NewProvisioningSaga(repo).
		WithTokenVault(vault).
		WithSessionIssuer(sessions)

	return o
}

// WithLogger propagates the logger to every component.
func (o *Onboarder) WithLogger(logger Logger) *Onboarder {
	if logger == nil {
		return o
	}
	o.logger = logger
	o.auth.WithLogger(logger)
	o.vault.WithLogger(logger)
	o.sessions.WithLogger(logger)
	o.saga.WithLogger(logger)
	return o
}

// WithActivitySink propagates the audit sink.
func (o *Onboarder) WithActivitySink(sink ActivitySink) *Onboarder {
	o.activity = normalizeActivitySink(sink)
	o.auth.WithActivitySink(sink)
	o.saga.WithActivitySink(sink)
	return o
}

// WithLockoutGuard swaps the lockout capability.
func (o *Onboarder) WithLockoutGuard(guard LockoutGuard) *Onboarder {
	o.auth.WithLockoutGuard(guard)
	return o
}

// WithAssetStager configures the binary attachment store used during
// registration.
func (o *Onboarder) WithAssetStager(stager AssetStager) *Onboarder {
	o.saga.WithAssetStager(stager)
	return o
}

// WithNotifier configures outbound email.
func (o *Onboarder) WithNotifier(n Notifier) *Onboarder {
	o.notifier = normalizeNotifier(n)
	o.saga.WithNotifier(n)
	return o
}

// WithProfileScorer overrides the completion scorer.
func (o *Onboarder) WithProfileScorer(s ProfileScorer) *Onboarder {
	o.saga.WithProfileScorer(s)
	return o
}

// WithAutoLogin issues sessions for registrations that come out active.
func (o *Onboarder) WithAutoLogin(enabled bool) *Onboarder {
	o.saga.WithAutoLogin(enabled)
	return o
}

// WithAccessTokenTTL overrides the access token lifetime.
func (o *Onboarder) WithAccessTokenTTL(ttl time.Duration) *Onboarder {
	o.sessions.WithAccessTTL(ttl)
	return o
}

// WithTokenIssuer sets the iss claim on minted access tokens.
func (o *Onboarder) WithTokenIssuer(issuer string) *Onboarder {
	o.sessions.WithIssuer(issuer)
	return o
}

// WithTokenAudience sets the aud claim on minted access tokens.
func (o *Onboarder) WithTokenAudience(audience ...string) *Onboarder {
	o.sessions.WithAudience(audience...)
	return o
}

// Sessions exposes the session issuer, e.g. for transport middleware
// that validates access tokens.
func (o *Onboarder) Sessions() *SessionIssuer {
	return o.sessions
}

// Login authenticates the pair and establishes a session.
func (o *Onboarder) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := o.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return o.issueFor(ctx, account)
}

// LoginWithOrganizationContext authenticates and scopes the session to
// one organization the account owns. The access token carries an
// owner role entry for that organization.
func (o *Onboarder) LoginWithOrganizationContext(ctx context.Context, email, password string, orgID uuid.UUID) (*AuthResult, error) {
	account, err := o.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	ownerID, _, err := o.repo.Profiles().GetOrganizationOwner(ctx, orgID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, organizationAccessDenied(orgID)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve organization")
	}

	if ownerID != account.ID {
		return nil, organizationAccessDenied(orgID)
	}

	return o.issueFor(ctx, account, WithResourceRole("org:"+orgID.String(), "owner"))
}

// RegisterUser provisions a plain account.
func (o *Onboarder) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*ProvisionedResult, error) {
	return o.saga.RegisterUser(ctx, msg)
}

// RegisterCandidate provisions a job-seeker account.
func (o *Onboarder) RegisterCandidate(ctx context.Context, msg RegisterCandidateMessage) (*ProvisionedResult, error) {
	return o.saga.RegisterCandidate(ctx, msg)
}

// RegisterCompany provisions an employer organization account.
func (o *Onboarder) RegisterCompany(ctx context.Context, msg RegisterCompanyMessage) (*ProvisionedResult, error) {
	return o.saga.RegisterCompany(ctx, msg)
}

// RegisterNgo provisions a support organization account.
func (o *Onboarder) RegisterNgo(ctx context.Context, msg RegisterNgoMessage) (*ProvisionedResult, error) {
	return o.saga.RegisterNgo(ctx, msg)
}

// RequestMagicLink issues a passwordless sign-in token when the email
// belongs to an active account. The response never discloses whether
// it does.
func (o *Onboarder) RequestMagicLink(ctx context.Context, email string) (string, error) {
	account, err := o.repo.Accounts().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !goerrors.IsNotFound(err) {
			o.logger.Error("magic link lookup failed for %s: %v", email, err)
		}
		return MessageMagicLinkSent, nil
	}

	account.EnsureStatus()
	if !account.IsActive || account.Status != AccountStatusActive {
		return MessageMagicLinkSent, nil
	}

	token, err := o.vault.Issue(ctx, account.ID, TokenKindMagicLink, MagicLinkTokenTTL)
	if err != nil {
		o.logger.Error("failed to issue magic link token for %s: %v", account.ID, err)
		return MessageMagicLinkSent, nil
	}

	if err := o.notifier.SendMagicLink(ctx, account.Email, token); err != nil {
		o.logger.Error("failed to send magic link to %s: %v", account.Email, err)
	}

	return MessageMagicLinkSent, nil
}

// VerifyMagicLink redeems a sign-in token and establishes a session.
// A successful redeem also proves mailbox ownership, so the email is
// marked verified.
func (o *Onboarder) VerifyMagicLink(ctx context.Context, email, token string) (*AuthResult, error) {
	account, err := o.redeemKind(ctx, email, token, TokenKindMagicLink)
	if err != nil {
		return nil, err
	}

	account.EnsureStatus()
	if !account.IsActive || account.Status != AccountStatusActive {
		return nil, ErrAccountInactive
	}

	if !account.EmailVerified {
		if err := o.repo.Accounts().MarkVerified(ctx, account.ID); err != nil {
			o.logger.Error("failed to mark email verified for %s: %v", account.ID, err)
		} else {
			account.EmailVerified = true
		}
	}

	if err := o.repo.Accounts().TrackSuccessfulLogin(ctx, account); err != nil {
		o.logger.Error("failed to track magic link login: %v", err)
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType: ActivityEventTokenRedeemed,
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"kind": TokenKindMagicLink,
		},
	})

	return o.issueFor(ctx, account)
}

// ForgotPassword issues a password reset token. The response never
// discloses whether the email is registered.
func (o *Onboarder) ForgotPassword(ctx context.Context, email string) (string, error) {
	account, err := o.repo.Accounts().GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !goerrors.IsNotFound(err) {
			o.logger.Error("password reset lookup failed for %s: %v", email, err)
		}
		return MessagePasswordResetSent, nil
	}

	token, err := o.vault.Issue(ctx, account.ID, TokenKindPasswordReset, PasswordResetTokenTTL)
	if err != nil {
		o.logger.Error("failed to issue password reset token for %s: %v", account.ID, err)
		return MessagePasswordResetSent, nil
	}

	if err := o.notifier.SendPasswordReset(ctx, account.Email, token); err != nil {
		o.logger.Error("failed to send password reset to %s: %v", account.Email, err)
	}

	return MessagePasswordResetSent, nil
}

// ResetPassword redeems a reset token and stores the new credential.
// The account's email is marked verified and any outstanding refresh
// token is revoked.
func (o *Onboarder) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	account, err := o.redeemKind(ctx, email, token, TokenKindPasswordReset)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := o.repo.Accounts().SetPassword(ctx, account.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new password")
	}

	if err := o.sessions.Revoke(ctx, account.ID); err != nil {
		o.logger.Error("failed to revoke refresh token after password reset: %v", err)
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType: ActivityEventPasswordReset,
		AccountID: account.ID.String(),
	})

	return nil
}

// VerifyEmail redeems a verification token and marks the email
// verified.
func (o *Onboarder) VerifyEmail(ctx context.Context, email, token string) error {
	account, err := o.redeemKind(ctx, email, token, TokenKindVerification)
	if err != nil {
		return err
	}

	if err := o.repo.Accounts().MarkVerified(ctx, account.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType: ActivityEventTokenRedeemed,
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"kind": TokenKindVerification,
		},
	})

	return nil
}

// RefreshSession rotates an access/refresh pair.
func (o *Onboarder) RefreshSession(ctx context.Context, accountID uuid.UUID, refreshToken string) (*AuthResult, error) {
	session, err := o.sessions.Refresh(ctx, accountID, refreshToken)
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType: ActivityEventSessionRefreshed,
		AccountID: accountID.String(),
	})

	return &AuthResult{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Logout revokes the account's refresh token. Outstanding access
// tokens stay valid until expiry.
func (o *Onboarder) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := o.sessions.Revoke(ctx, accountID); err != nil {
		return err
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType: ActivityEventLogout,
		AccountID: accountID.String(),
	})

	return nil
}

// ApproveApplication moves a pending application to active and sends
// the applicant a password setup email.
func (o *Onboarder) ApproveApplication(ctx context.Context, actor ActorRef, accountID uuid.UUID) (*Account, error) {
	account, err := o.repo.Accounts().GetWithRoles(ctx, accountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, goerrors.New("account not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	if _, err := o.machine.Transition(ctx, actor, account, AccountStatusActive,
		WithTransitionReason("application approved")); err != nil {
		return nil, err
	}

	if account.PasswordHash == "" {
		token, err := o.vault.Issue(ctx, account.ID, TokenKindPasswordReset, PasswordResetTokenTTL)
		if err != nil {
			o.logger.Error("failed to issue password setup token for %s: %v", account.ID, err)
		} else if err := o.notifier.SendPasswordReset(ctx, account.Email, token); err != nil {
			o.logger.Error("failed to send password setup email to %s: %v", account.Email, err)
		}
	}

	recordActivity(ctx, o.activity, o.logger, ActivityEvent{
		EventType:  ActivityEventApplicationApproved,
		Actor:      actor,
		AccountID:  account.ID.String(),
		FromStatus: AccountStatusPending,
		ToStatus:   AccountStatusActive,
	})

	return account.Sanitized(), nil
}

// redeemKind redeems the outstanding token and rejects it when the
// slot was holding a token of another kind. The token is consumed
// either way: single use holds even across kinds.
func (o *Onboarder) redeemKind(ctx context.Context, email, token string, kind TokenKind) (*Account, error) {
	account, err := o.vault.Redeem(ctx, email, token)
	if err != nil {
		return nil, err
	}

	if account.AuthTokenKind != kind {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

func (o *Onboarder) issueFor(ctx context.Context, account *Account, opts ...SessionOption) (*AuthResult, error) {
	session, err := o.sessions.Issue(ctx, account, opts...)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		Account:      account,
	}, nil
}

func organizationAccessDenied(orgID uuid.UUID) error {
	return goerrors.New("organization access denied", goerrors.CategoryAuth).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(map[string]any{
			"organization_id": orgID.String(),
		})
}
