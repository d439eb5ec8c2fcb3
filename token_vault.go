package onboarding

import (
	"context"
	"crypto/subtle"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Default lifetimes for the single-use token kinds.
const (
	VerificationTokenTTL  = 48 * time.Hour
	PasswordResetTokenTTL = time.Hour
	MagicLinkTokenTTL     = 15 * time.Minute
)

// TokenStore is the account access the vault needs. The token lives
// in a single slot on the account row.
type TokenStore interface {
	GetByEmail(ctx context.Context, email string) (*Account, error)
	SetAuthToken(ctx context.Context, id uuid.UUID, kind TokenKind, token string, expiresAt time.Time) error
	ClearAuthToken(ctx context.Context, id uuid.UUID) error
}

// TokenVault issues, stores, and redeems single-use expiring tokens
// for email verification, password reset, and magic-link login.
//
// All three kinds share the account's one token slot: issuing a token
// of any kind overwrites whatever was outstanding. The slot is kept
// behind this type so a later per-kind split stays a storage change.
type TokenVault struct {
	store  TokenStore
	logger Logger
	now    func() time.Time
}

// NewTokenVault creates a vault over the given store.
func NewTokenVault(store TokenStore) *TokenVault {
	return &TokenVault{
		store:  store,
		logger: defLogger{},
		now:    time.Now,
	}
}

// WithLogger overrides the logger.
func (v *TokenVault) WithLogger(logger Logger) *TokenVault {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// WithClock overrides the time source, used by tests.
func (v *TokenVault) WithClock(now func() time.Time) *TokenVault {
	if now != nil {
		v.now = now
	}
	return v
}

// Issue mints an opaque token and stores it in the account's slot,
// replacing any outstanding token regardless of kind.
func (v *TokenVault) Issue(ctx context.Context, accountID uuid.UUID, kind TokenKind, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", goerrors.New("token ttl must be positive", goerrors.CategoryBadInput)
	}

	token := newOpaqueToken()
	expiresAt := v.now().Add(ttl)

	if err := v.store.SetAuthToken(ctx, accountID, kind, token, expiresAt); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store auth token")
	}

	return token, nil
}

// Redeem consumes the outstanding token for the account registered
// under email. A matching token past its expiry fails with
// ErrTokenExpired without clearing the slot, so a retried redeem keeps
// failing the same way. A successful redeem clears the slot.
func (v *TokenVault) Redeem(ctx context.Context, email, token string) (*Account, error) {
	account, err := v.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during token redeem")
	}

	if account.AuthToken == "" || token == "" ||
		subtle.ConstantTimeCompare([]byte(account.AuthToken), []byte(token)) != 1 {
		return nil, ErrInvalidCredentials
	}

	if account.AuthTokenExpiresAt == nil || !v.now().Before(*account.AuthTokenExpiresAt) {
		return nil, ErrTokenExpired
	}

	if err := v.store.ClearAuthToken(ctx, account.ID); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear auth token after redeem")
	}

	return account.Sanitized(), nil
}

// Clear drops whatever token is outstanding for the account.
func (v *TokenVault) Clear(ctx context.Context, accountID uuid.UUID) error {
	return v.store.ClearAuthToken(ctx, accountID)
}

// newOpaqueToken mints an unguessable opaque token value.
func newOpaqueToken() string {
	return uuid.NewString() + uuid.NewString()
}
