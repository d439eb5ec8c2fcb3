package onboarding

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// CredentialStore is the account access the authenticator needs.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

// CredentialAuthenticator validates email/password pairs behind the
// lockout guard.
type CredentialAuthenticator struct {
	store    CredentialStore
	guard    LockoutGuard
	activity ActivitySink
	logger   Logger
}

// NewCredentialAuthenticator creates an authenticator with an
// in-process lockout guard.
func NewCredentialAuthenticator(store CredentialStore) *CredentialAuthenticator {
	return &CredentialAuthenticator{
		store:    store,
		guard:    NewMemoryLockoutGuard(),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithLockoutGuard swaps the lockout capability, e.g. for a
// shared-cache implementation.
func (a *CredentialAuthenticator) WithLockoutGuard(guard LockoutGuard) *CredentialAuthenticator {
	if guard != nil {
		a.guard = guard
	}
	return a
}

// WithActivitySink configures the audit sink.
func (a *CredentialAuthenticator) WithActivitySink(sink ActivitySink) *CredentialAuthenticator {
	a.activity = normalizeActivitySink(sink)
	return a
}

// WithLogger overrides the logger.
func (a *CredentialAuthenticator) WithLogger(logger Logger) *CredentialAuthenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Guard exposes the lockout guard so callers can share it.
func (a *CredentialAuthenticator) Guard() LockoutGuard {
	return a.guard
}

// Authenticate validates the pair and returns a sanitized account.
//
// The guard is consulted before any lookup or hashing so a locked
// credential fails fast. Unknown emails still record a failure against
// the input string: the lockout signal stays meaningful and the timing
// difference between known and unknown emails shrinks.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)

	if decision := a.guard.CheckAllowed(email); !decision.Allowed {
		a.record(ctx, ActivityEventLoginLocked, email, "", map[string]any{
			"retry_after_minutes": decision.RetryAfterMinutes(),
		})
		return nil, NewLockedError(decision.RetryAfterMinutes())
	}

	account, err := a.store.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			a.guard.RecordFailure(email)
			a.record(ctx, ActivityEventLoginFailure, email, "", nil)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during authentication")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if !IsUnauthorized(err) {
			return nil, err
		}
		a.guard.RecordFailure(email)
		a.record(ctx, ActivityEventLoginFailure, email, account.ID.String(), nil)
		return nil, ErrInvalidCredentials
	}

	account.EnsureStatus()
	if !account.IsActive || account.Status != AccountStatusActive {
		a.record(ctx, ActivityEventLoginFailure, email, account.ID.String(), map[string]any{
			"status": account.Status,
		})
		return nil, ErrAccountInactive
	}

	a.guard.RecordSuccess(email)

	if err := a.store.TrackSuccessfulLogin(ctx, account); err != nil {
		a.logger.Error("failed to track successful login: %v", err)
	}

	a.record(ctx, ActivityEventLoginSuccess, email, account.ID.String(), nil)

	return account.Sanitized(), nil
}

func (a *CredentialAuthenticator) record(ctx context.Context, event ActivityEventType, email, accountID string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["email"] = email

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: event,
		AccountID: accountID,
		Metadata:  metadata,
	})
}
