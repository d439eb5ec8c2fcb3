package onboarding

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced alongside categorized errors so API clients can
// branch without string matching.
const (
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeWeakPassword       = "WEAK_PASSWORD"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeAccountInactive    = "ACCOUNT_INACTIVE"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeAssetStoreFailure  = "ASSET_STORE_FAILURE"
	TextCodeUnknownRole        = "UNKNOWN_ROLE"
)

// ErrEmailTaken is returned when registration hits an existing account.
var ErrEmailTaken = goerrors.New("email is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrWeakPassword is returned when a supplied password fails the
// length or composition policy.
var ErrWeakPassword = goerrors.New("password does not meet the strength policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials covers bad passwords, unknown identifiers,
// invalid single-use tokens, and refresh token mismatches. The cases
// are deliberately indistinguishable to callers.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountInactive is returned for deactivated or not-yet-approved
// accounts. Unlike credential failures this is surfaced distinctly.
var ErrAccountInactive = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(goerrors.CodeForbidden)

// ErrTokenExpired is returned when a single-use token matched but its
// expiry has passed.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrAssetStoreFailure wraps upstream asset store failures after
// compensation has run.
var ErrAssetStoreFailure = goerrors.New("asset store operation failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeAssetStoreFailure)

// NewLockedError builds the lockout rejection for a credential, with
// the retry hint callers show to the user.
func NewLockedError(retryAfterMinutes int) *goerrors.Error {
	return goerrors.New("too many failed attempts, account temporarily locked", goerrors.CategoryRateLimit).
		WithTextCode(TextCodeAccountLocked).
		WithMetadata(map[string]any{
			"retry_after_minutes": retryAfterMinutes,
		})
}

// IsLocked reports whether err is a lockout rejection.
func IsLocked(err error) bool {
	return hasCategory(err, goerrors.CategoryRateLimit)
}

// IsConflict reports whether err is a duplicate-registration conflict.
func IsConflict(err error) bool {
	return hasCategory(err, goerrors.CategoryConflict)
}

// IsUnauthorized reports whether err is a credential or token
// rejection, expired tokens included.
func IsUnauthorized(err error) bool {
	return hasCategory(err, goerrors.CategoryAuth)
}

// IsValidationFailed reports whether err is a validation rejection.
func IsValidationFailed(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

func hasCategory(err error, category goerrors.Category) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == category
}
