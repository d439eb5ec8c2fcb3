package onboarding_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	onboarding "github.com/goliatone/go-onboarding"
)

func statusAccount(status onboarding.AccountStatus) *onboarding.Account {
	return &onboarding.Account{
		ID:       uuid.New(),
		Email:    "user@example.com",
		Status:   status,
		IsActive: status == onboarding.AccountStatusActive,
	}
}

func TestAccountStateMachine(t *testing.T) {
	ctx := context.Background()
	actor := onboarding.ActorRef{ID: "admin-1", Type: "admin"}

	t.Run("pending account can be activated", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusPending)
		store.On("UpdateStatus", ctx, account.ID, onboarding.AccountStatusActive).
			Return(statusAccount(onboarding.AccountStatusActive), nil).Once()

		updated, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive)
		require.NoError(t, err)
		assert.Equal(t, onboarding.AccountStatusActive, updated.Status)
		assert.True(t, updated.IsActive)

		store.AssertExpectations(t)
	})

	t.Run("suspension deactivates the account", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusActive)
		store.On("UpdateStatus", ctx, account.ID, onboarding.AccountStatusSuspended).
			Return(statusAccount(onboarding.AccountStatusSuspended), nil).Once()

		updated, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusSuspended)
		require.NoError(t, err)
		assert.Equal(t, onboarding.AccountStatusSuspended, updated.Status)
		assert.False(t, updated.IsActive)
	})

	t.Run("pending cannot be suspended", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusPending)
		_, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusSuspended)
		assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)
		store.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("rejection metadata never accumulates on the shared error", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		_, err := machine.Transition(ctx, actor,
			statusAccount(onboarding.AccountStatusPending), onboarding.AccountStatusSuspended)
		require.ErrorIs(t, err, onboarding.ErrInvalidTransition)

		var first *goerrors.Error
		require.True(t, goerrors.As(err, &first))
		assert.Equal(t, onboarding.AccountStatusPending, first.Metadata["from"])

		_, err = machine.Transition(ctx, actor,
			statusAccount(onboarding.AccountStatusSuspended), onboarding.AccountStatusPending)
		require.ErrorIs(t, err, onboarding.ErrInvalidTransition)

		var second *goerrors.Error
		require.True(t, goerrors.As(err, &second))
		assert.Equal(t, onboarding.AccountStatusSuspended, second.Metadata["from"])

		// the first rejection keeps its own metadata and the shared
		// var carries none
		assert.Equal(t, onboarding.AccountStatusPending, first.Metadata["from"])
		assert.Empty(t, onboarding.ErrInvalidTransition.Metadata)
	})

	t.Run("archived is terminal", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusArchived)
		_, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive)
		assert.ErrorIs(t, err, onboarding.ErrTerminalState)
		store.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("force bypasses the transition table", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusArchived)
		store.On("UpdateStatus", ctx, account.ID, onboarding.AccountStatusActive).
			Return(statusAccount(onboarding.AccountStatusActive), nil).Once()

		updated, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive,
			onboarding.WithForceTransition())
		require.NoError(t, err)
		assert.Equal(t, onboarding.AccountStatusActive, updated.Status)
	})

	t.Run("no-op transition returns the account untouched", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusActive)
		updated, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive)
		require.NoError(t, err)
		assert.Same(t, account, updated)
		store.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("empty target is invalid", func(t *testing.T) {
		machine := onboarding.NewAccountStateMachine(&MockStatusStore{})

		_, err := machine.Transition(ctx, actor, statusAccount(onboarding.AccountStatusActive), "")
		assert.ErrorIs(t, err, onboarding.ErrInvalidTransition)
	})

	t.Run("hooks observe the transition context", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusPending)
		store.On("UpdateStatus", ctx, account.ID, onboarding.AccountStatusActive).
			Return(statusAccount(onboarding.AccountStatusActive), nil).Once()

		var phases []string
		hook := func(phase string) onboarding.TransitionHook {
			return func(ctx context.Context, tc onboarding.TransitionContext) error {
				phases = append(phases, phase)
				assert.Equal(t, onboarding.AccountStatusPending, tc.From)
				assert.Equal(t, onboarding.AccountStatusActive, tc.To)
				assert.Equal(t, "application approved", tc.Meta.Reason)
				return nil
			}
		}

		_, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive,
			onboarding.WithTransitionReason("application approved"),
			onboarding.WithBeforeTransitionHook(hook("before")),
			onboarding.WithAfterTransitionHook(hook("after")))
		require.NoError(t, err)
		assert.Equal(t, []string{"before", "after"}, phases)
	})

	t.Run("before hook failure aborts before persistence", func(t *testing.T) {
		store := &MockStatusStore{}
		machine := onboarding.NewAccountStateMachine(store)

		account := statusAccount(onboarding.AccountStatusPending)
		_, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive,
			onboarding.WithBeforeTransitionHook(func(ctx context.Context, tc onboarding.TransitionContext) error {
				return assert.AnError
			}))
		assert.Error(t, err)
		store.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("status change is published to the activity sink", func(t *testing.T) {
		store := &MockStatusStore{}
		sink := &captureSink{}
		machine := onboarding.NewAccountStateMachine(store).
			WithActivitySink(sink)

		account := statusAccount(onboarding.AccountStatusPending)
		store.On("UpdateStatus", ctx, account.ID, onboarding.AccountStatusActive).
			Return(statusAccount(onboarding.AccountStatusActive), nil).Once()

		_, err := machine.Transition(ctx, actor, account, onboarding.AccountStatusActive,
			onboarding.WithTransitionReason("application approved"))
		require.NoError(t, err)

		events := sink.byType(onboarding.ActivityEventStatusChanged)
		require.Len(t, events, 1)
		assert.Equal(t, onboarding.AccountStatusPending, events[0].FromStatus)
		assert.Equal(t, onboarding.AccountStatusActive, events[0].ToStatus)
		assert.Equal(t, "application approved", events[0].Metadata["reason"])
		assert.Equal(t, actor, events[0].Actor)
	})

	t.Run("current status backfills from the active flag", func(t *testing.T) {
		machine := onboarding.NewAccountStateMachine(&MockStatusStore{})

		assert.Equal(t, onboarding.AccountStatusActive,
			machine.CurrentStatus(&onboarding.Account{IsActive: true}))
		assert.Equal(t, onboarding.AccountStatusPending,
			machine.CurrentStatus(&onboarding.Account{}))
		assert.Equal(t, onboarding.AccountStatus(""), machine.CurrentStatus(nil))
	})
}
