package cancel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	cancel "github.com/goliatone/go-cancel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockActivitySink implements cancel.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event cancel.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestAccountStateMachineBlockSetsTimestamp(t *testing.T) {
	repo := &MockAccounts{}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}

	repo.On("SaveAccount", mock.Anything, mock.MatchedBy(func(a *cancel.Account) bool {
		return a.ID == 10 && a.Status == cancel.AccountStatusBlocked
	})).Return(nil).Once()

	sm := cancel.NewAccountStateMachine(repo, cancel.WithStateMachineClock(func() time.Time { return now }))

	result, err := sm.Transition(context.Background(), cancel.ActorRef{ID: "2"}, account, cancel.AccountStatusBlocked)
	require.NoError(t, err)
	assert.True(t, result.IsBlocked())
	require.NotNil(t, result.UpdatedAt)
	assert.Equal(t, now, *result.UpdatedAt)
	repo.AssertExpectations(t)
}

func TestAccountStateMachineCancelDeletes(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusBlocked}

	repo.On("DeleteAccount", mock.Anything, int64(10)).Return(nil).Once()

	sm := cancel.NewAccountStateMachine(repo)

	result, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, cancel.AccountStatusCanceled, sm.CurrentStatus(result))
	repo.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestAccountStateMachineCanceledIsTerminal(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusCanceled}

	sm := cancel.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusActive, cancel.WithForceTransition())
	assert.ErrorIs(t, err, cancel.ErrTerminalState)
	repo.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
}

func TestAccountStateMachineProtectsAccountOne(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: cancel.ProtectedAccountID, Status: cancel.AccountStatusActive}

	sm := cancel.NewAccountStateMachine(repo)

	for _, target := range []cancel.AccountStatus{cancel.AccountStatusBlocked, cancel.AccountStatusCanceled} {
		_, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, target, cancel.WithForceTransition())
		assert.ErrorIs(t, err, cancel.ErrProtectedAccount)
	}
	assert.True(t, account.IsActive())
	repo.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "DeleteAccount", mock.Anything, mock.Anything)
}

func TestAccountStateMachineSameStatusIsNoop(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusBlocked}

	sm := cancel.NewAccountStateMachine(repo)

	result, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusBlocked)
	require.NoError(t, err)
	assert.Same(t, account, result)
	repo.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
}

func TestAccountStateMachineRestoresStatusOnSaveError(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}

	repo.On("SaveAccount", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	sm := cancel.NewAccountStateMachine(repo)

	_, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusBlocked)
	require.Error(t, err)
	assert.True(t, account.IsActive())
}

func TestAccountStateMachineRunsHooksWithMetadata(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}

	repo.On("SaveAccount", mock.Anything, mock.Anything).Return(nil).Once()

	var beforeCalled, afterCalled bool
	var seen cancel.TransitionMetadata

	before := func(ctx context.Context, tc cancel.TransitionContext) error {
		beforeCalled = true
		seen = tc.Meta
		return nil
	}
	after := func(ctx context.Context, tc cancel.TransitionContext) error {
		afterCalled = true
		return nil
	}

	sm := cancel.NewAccountStateMachine(repo)

	_, err := sm.Transition(
		context.Background(),
		cancel.ActorRef{ID: "2"},
		account,
		cancel.AccountStatusBlocked,
		cancel.WithTransitionReason("account cancellation"),
		cancel.WithTransitionRun("run-1", cancel.PolicyBlock),
		cancel.WithTransitionMetadata(map[string]any{"ticket": "123"}),
		cancel.WithBeforeTransitionHook(before),
		cancel.WithAfterTransitionHook(after),
	)
	require.NoError(t, err)
	assert.True(t, beforeCalled)
	assert.True(t, afterCalled)
	assert.Equal(t, "account cancellation", seen.Reason)
	assert.Equal(t, "run-1", seen.RunID)
	assert.Equal(t, cancel.PolicyBlock, seen.Policy)
	assert.Equal(t, "123", seen.Metadata["ticket"])
	repo.AssertExpectations(t)
}

func TestAccountStateMachineHookErrorHandler(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}
	hookErr := errors.New("veto")

	var phaseSeen cancel.TransitionHookPhase
	sm := cancel.NewAccountStateMachine(repo, cancel.WithStateMachineHookErrorHandler(
		func(ctx context.Context, phase cancel.TransitionHookPhase, err error, tc cancel.TransitionContext) error {
			phaseSeen = phase
			return err
		},
	))

	_, err := sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusBlocked,
		cancel.WithBeforeTransitionHook(func(context.Context, cancel.TransitionContext) error { return hookErr }),
	)
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, cancel.HookPhaseBefore, phaseSeen)
	repo.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
}

func TestAccountStateMachineDefaultHookErrorHandlerPanics(t *testing.T) {
	repo := &MockAccounts{}
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}

	sm := cancel.NewAccountStateMachine(repo)

	assert.Panics(t, func() {
		_, _ = sm.Transition(context.Background(), cancel.ActorRef{}, account, cancel.AccountStatusBlocked,
			cancel.WithBeforeTransitionHook(func(context.Context, cancel.TransitionContext) error {
				return errors.New("veto")
			}),
		)
	})
}

func TestAccountStateMachineEmitsActivityEvent(t *testing.T) {
	repo := &MockAccounts{}
	sink := &MockActivitySink{}
	now := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
	account := &cancel.Account{ID: 10, Status: cancel.AccountStatusActive}

	repo.On("SaveAccount", mock.Anything, mock.Anything).Return(nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt cancel.ActivityEvent) bool {
		return evt.EventType == cancel.ActivityEventAccountStatusChanged &&
			evt.AccountID == 10 &&
			evt.FromStatus == cancel.AccountStatusActive &&
			evt.ToStatus == cancel.AccountStatusBlocked &&
			evt.OccurredAt.Equal(now)
	})).Return(nil).Once()

	sm := cancel.NewAccountStateMachine(
		repo,
		cancel.WithStateMachineClock(func() time.Time { return now }),
		cancel.WithStateMachineActivitySink(sink),
	)

	_, err := sm.Transition(context.Background(), cancel.ActorRef{ID: "2"}, account, cancel.AccountStatusBlocked)
	require.NoError(t, err)

	repo.AssertExpectations(t)
	sink.AssertExpectations(t)
}
