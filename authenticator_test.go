package onboarding_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	onboarding "github.com/goliatone/go-onboarding"
)

// bcrypt hash of "Sup3r-secret!" at the configured cost, computed once
// per run because hashing dominates test time otherwise.
var testPasswordHash string

func passwordHash(t *testing.T) string {
	t.Helper()
	if testPasswordHash == "" {
		h, err := onboarding.HashPassword("Sup3r-secret!")
		require.NoError(t, err)
		testPasswordHash = h
	}
	return testPasswordHash
}

func activeAccount(t *testing.T) *onboarding.Account {
	t.Helper()
	return &onboarding.Account{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: passwordHash(t),
		Status:       onboarding.AccountStatusActive,
		IsActive:     true,
	}
}

func TestCredentialAuthenticator(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return a sanitized account", func(t *testing.T) {
		store := &MockCredentialStore{}
		sink := &captureSink{}
		auth := onboarding.NewCredentialAuthenticator(store).
			WithActivitySink(sink)

		account := activeAccount(t)
		store.On("GetByEmail", ctx, "user@example.com").Return(account, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, account).Return(nil).Once()

		got, err := auth.Authenticate(ctx, "User@Example.COM", "Sup3r-secret!")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
		assert.Empty(t, got.PasswordHash)

		assert.Len(t, sink.byType(onboarding.ActivityEventLoginSuccess), 1)
		store.AssertExpectations(t)
	})

	t.Run("wrong password is an invalid credentials rejection", func(t *testing.T) {
		store := &MockCredentialStore{}
		auth := onboarding.NewCredentialAuthenticator(store)

		store.On("GetByEmail", ctx, "user@example.com").Return(activeAccount(t), nil).Once()

		_, err := auth.Authenticate(ctx, "user@example.com", "wrong-password")
		assert.ErrorIs(t, err, onboarding.ErrInvalidCredentials)
		store.AssertNotCalled(t, "TrackSuccessfulLogin")
	})

	t.Run("unknown email is the same rejection and counts toward lockout", func(t *testing.T) {
		store := &MockCredentialStore{}
		guard := onboarding.NewMemoryLockoutGuard().WithLimits(2, time.Minute)
		auth := onboarding.NewCredentialAuthenticator(store).
			WithLockoutGuard(guard)

		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, notFoundErr()).Twice()

		for i := 0; i < 2; i++ {
			_, err := auth.Authenticate(ctx, "ghost@example.com", "whatever1!")
			assert.ErrorIs(t, err, onboarding.ErrInvalidCredentials)
		}

		_, err := auth.Authenticate(ctx, "ghost@example.com", "whatever1!")
		assert.True(t, onboarding.IsLocked(err))
	})

	t.Run("locked credential fails fast with a retry hint", func(t *testing.T) {
		store := &MockCredentialStore{}
		sink := &captureSink{}
		guard := onboarding.NewMemoryLockoutGuard().WithLimits(1, 10*time.Minute)
		auth := onboarding.NewCredentialAuthenticator(store).
			WithLockoutGuard(guard).
			WithActivitySink(sink)

		guard.RecordFailure("user@example.com")

		_, err := auth.Authenticate(ctx, "user@example.com", "Sup3r-secret!")
		require.True(t, onboarding.IsLocked(err))

		assert.Contains(t, err.Error(), "locked")

		// no lookup, no hash comparison while locked
		store.AssertNotCalled(t, "GetByEmail")
		assert.Len(t, sink.byType(onboarding.ActivityEventLoginLocked), 1)
	})

	t.Run("correct password still fails while locked", func(t *testing.T) {
		store := &MockCredentialStore{}
		guard := onboarding.NewMemoryLockoutGuard().WithLimits(3, 10*time.Minute)
		auth := onboarding.NewCredentialAuthenticator(store).
			WithLockoutGuard(guard)

		account := activeAccount(t)
		store.On("GetByEmail", ctx, "user@example.com").Return(account, nil).Times(3)

		for i := 0; i < 3; i++ {
			_, err := auth.Authenticate(ctx, "user@example.com", "wrong-password")
			assert.ErrorIs(t, err, onboarding.ErrInvalidCredentials)
		}

		_, err := auth.Authenticate(ctx, "user@example.com", "Sup3r-secret!")
		assert.True(t, onboarding.IsLocked(err))
	})

	t.Run("success clears an accumulating counter", func(t *testing.T) {
		store := &MockCredentialStore{}
		guard := onboarding.NewMemoryLockoutGuard().WithLimits(3, 10*time.Minute)
		auth := onboarding.NewCredentialAuthenticator(store).
			WithLockoutGuard(guard)

		account := activeAccount(t)
		store.On("GetByEmail", ctx, "user@example.com").Return(account, nil)
		store.On("TrackSuccessfulLogin", ctx, account).Return(nil)

		for i := 0; i < 2; i++ {
			_, err := auth.Authenticate(ctx, "user@example.com", "wrong-password")
			assert.Error(t, err)
		}

		_, err := auth.Authenticate(ctx, "user@example.com", "Sup3r-secret!")
		require.NoError(t, err)

		assert.True(t, guard.CheckAllowed("user@example.com").Allowed)
	})

	t.Run("inactive account is rejected distinctly", func(t *testing.T) {
		store := &MockCredentialStore{}
		auth := onboarding.NewCredentialAuthenticator(store)

		account := activeAccount(t)
		account.Status = onboarding.AccountStatusPending
		account.IsActive = false
		store.On("GetByEmail", ctx, "user@example.com").Return(account, nil).Once()

		_, err := auth.Authenticate(ctx, "user@example.com", "Sup3r-secret!")
		assert.ErrorIs(t, err, onboarding.ErrAccountInactive)
		store.AssertNotCalled(t, "TrackSuccessfulLogin")
	})

	t.Run("tracking failure does not fail the login", func(t *testing.T) {
		store := &MockCredentialStore{}
		auth := onboarding.NewCredentialAuthenticator(store)

		account := activeAccount(t)
		store.On("GetByEmail", ctx, "user@example.com").Return(account, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, account).
			Return(assert.AnError).Once()

		_, err := auth.Authenticate(ctx, "user@example.com", "Sup3r-secret!")
		assert.NoError(t, err)
	})
}
