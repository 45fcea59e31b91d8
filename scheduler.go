package cancel

import (
	"context"
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/google/uuid"
)

// RunState is the state of one cancellation run.
type RunState string

const (
	RunStateRequested           RunState = "requested"
	RunStatePendingConfirmation RunState = "pending_confirmation"
	RunStateExecuted            RunState = "executed"
	RunStateSkipped             RunState = "skipped"
)

// Disposition is the per account result reported back to the caller.
type Disposition string

const (
	DispositionDeleted          Disposition = "deleted"
	DispositionDisabled         Disposition = "disabled"
	DispositionConfirmationSent Disposition = "confirmation_sent"
	DispositionProtected        Disposition = "protected"
)

// Outcome is the result of a cancellation request or confirmation.
type Outcome struct {
	RunID       string            `json:"run_id"`
	AccountID   int64             `json:"account_id"`
	AccountName string            `json:"account_name,omitempty"`
	Policy      Policy            `json:"policy,omitempty"`
	State       RunState          `json:"state"`
	Disposition Disposition       `json:"disposition,omitempty"`
	Link        *ConfirmationLink `json:"-"`
	Cascade     CascadeReport     `json:"cascade"`
}

// Message renders the user facing message for the outcome.
func (o Outcome) Message() string {
	name := o.AccountName
	if name == "" {
		name = fmt.Sprintf("Account %d", o.AccountID)
	}

	switch o.Disposition {
	case DispositionDeleted:
		return fmt.Sprintf("%s has been deleted.", name)
	case DispositionDisabled:
		return fmt.Sprintf("%s has been disabled.", name)
	case DispositionConfirmationSent:
		return "A confirmation request to cancel your account has been sent to your email address."
	case DispositionProtected:
		return fmt.Sprintf("%s is protected and was not canceled.", name)
	}
	return ""
}

// Request describes a cancellation request for a single account.
type Request struct {
	AccountID int64
	// Policy applied when the request executes immediately. Zero means the
	// configured policy.
	Policy  Policy
	Invoker Invoker
	// NotifyOnCancel mails the owner once an immediate cancellation ran.
	NotifyOnCancel bool
	// RequireConfirmation forces the mailed confirmation step even when the
	// invoker could bypass it.
	RequireConfirmation bool
}

// Scheduler orchestrates the request, confirm and execute workflow.
type Scheduler struct {
	accounts    Accounts
	config      Config
	registry    PolicyRegistry
	tokens      TokenService
	cascade     CascadeEngine
	lifecycle   AccountStateMachine
	authorizer  Authorizer
	notifier    Notifier
	activity    ActivitySink
	featureGate gate.FeatureGate
	logger      Logger
	now         func() time.Time
}

// NewScheduler returns a Scheduler with sane defaults. It panics when the
// configured signing key is shorter than MinSigningKeyLength.
func NewScheduler(repo RepositoryManager, config Config) *Scheduler {
	s := &Scheduler{
		accounts:   repo.Accounts(),
		config:     config,
		registry:   DefaultRegistry,
		authorizer: NewRoleAuthorizer(),
		notifier:   noopNotifier{},
		activity:   noopActivitySink{},
		logger:     defLogger{},
		now:        time.Now,
	}

	clock := func() time.Time { return s.now() }

	s.tokens = s.buildTokenService()
	s.cascade = NewCascadeEngine(
		repo.Content(),
		repo.Accounts(),
		WithCascadeBatchSize(config.GetBatchSize()),
		WithCascadeAnonymousName(config.GetAnonymousDisplayName()),
	)
	s.lifecycle = NewAccountStateMachine(
		repo.Accounts(),
		WithStateMachineClock(clock),
		WithStateMachineActivitySink(ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
			return s.activity.Record(ctx, event)
		})),
	)

	return s
}

func (s *Scheduler) buildTokenService() TokenService {
	ts, err := NewTokenService(
		[]byte(s.config.GetSigningKey()),
		WithTokenWindow(s.config.GetTokenWindow()),
		WithTokenClock(func() time.Time { return s.now() }),
		WithTokenLogger(s.logger),
	)
	if err != nil {
		panic("Invalid signing key in cancellation scheduler: " + err.Error())
	}
	return ts
}

// WithClock injects a custom clock (useful for tests).
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithAuthorizer sets the capability lookup.
func (s *Scheduler) WithAuthorizer(authorizer Authorizer) *Scheduler {
	if authorizer != nil {
		s.authorizer = authorizer
	}
	return s
}

// WithNotifier sets the notification transport.
func (s *Scheduler) WithNotifier(notifier Notifier) *Scheduler {
	if notifier != nil {
		s.notifier = notifier
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting cancellation events.
func (s *Scheduler) WithActivitySink(sink ActivitySink) *Scheduler {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithFeatureGate requires FeatureAccountCancel to be enabled.
func (s *Scheduler) WithFeatureGate(featureGate gate.FeatureGate) *Scheduler {
	s.featureGate = featureGate
	return s
}

// WithLogger overrides the logger used by the scheduler and its engine.
func (s *Scheduler) WithLogger(logger Logger) *Scheduler {
	if logger == nil {
		return s
	}
	s.logger = logger
	s.tokens = s.buildTokenService()
	if e, ok := s.cascade.(*cascadeEngine); ok {
		e.logger = logger
	}
	if sm, ok := s.lifecycle.(*accountStateMachine); ok {
		sm.logger = logger
	}
	return s
}

// WithCascadeEngine replaces the content cascade.
func (s *Scheduler) WithCascadeEngine(engine CascadeEngine) *Scheduler {
	if engine != nil {
		s.cascade = engine
	}
	return s
}

// WithRegistry replaces the policy registry.
func (s *Scheduler) WithRegistry(registry PolicyRegistry) *Scheduler {
	if registry != nil {
		s.registry = registry
	}
	return s
}

// TokenService exposes the token service used to sign links.
func (s *Scheduler) TokenService() TokenService {
	return s.tokens
}

// RequestCancellation starts a cancellation run. Invokers holding
// CapabilityCancelOtherAccounts cancel other accounts immediately, everyone
// else gets a confirmation link mailed to the account owner.
func (s *Scheduler) RequestCancellation(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{
		RunID:     uuid.NewString(),
		AccountID: req.AccountID,
		Policy:    req.Policy,
		State:     RunStateRequested,
	}

	if err := s.requireFeature(ctx); err != nil {
		return out, err
	}

	if req.AccountID == ProtectedAccountID {
		return s.protectedOutcome(ctx, out, req.Invoker.ActorRef()), nil
	}

	if req.AccountID == AnonymousAccountID {
		s.reject(ctx, out, req.Invoker.ActorRef(), ErrUnauthorized)
		return out, ErrUnauthorized
	}

	policy := req.Policy
	if policy == 0 {
		resolved, err := s.configuredPolicy()
		if err != nil {
			return out, err
		}
		policy = resolved
	}
	if !policy.IsValid() {
		return out, ErrUnknownPolicy
	}
	out.Policy = policy

	account, err := s.loadAccount(ctx, req.AccountID)
	if err != nil {
		return out, err
	}
	out.AccountName = account.Name()

	bypass, err := s.authorize(ctx, req.Invoker, account)
	if err != nil {
		s.reject(ctx, out, req.Invoker.ActorRef(), err)
		return out, err
	}

	if bypass && !req.RequireConfirmation {
		return s.execute(ctx, out, account, policy, req.Invoker.ActorRef(), req.NotifyOnCancel)
	}

	return s.sendConfirmation(ctx, out, account, req.Invoker.ActorRef(), req.NotifyOnCancel)
}

// ConfirmCancellation validates a mailed link and executes the currently
// configured policy.
//
// The policy is resolved at confirmation time, not frozen at request time:
// changing the configured cancel method while links are pending changes
// what those links do. The same holds for the final notification, which
// follows the configured NotifyOnCancel. A Request.NotifyOnCancel only
// travels in the confirmation payload as "notify_on_cancel", links do not
// carry it.
func (s *Scheduler) ConfirmCancellation(ctx context.Context, accountID, timestamp int64, token string) (Outcome, error) {
	out := Outcome{
		RunID:     uuid.NewString(),
		AccountID: accountID,
		State:     RunStateRequested,
	}

	if err := s.requireFeature(ctx); err != nil {
		return out, err
	}

	actor := ActorRef{ID: fmt.Sprintf("%d", accountID), Type: "user"}

	if accountID == ProtectedAccountID {
		return s.protectedOutcome(ctx, out, actor), nil
	}

	account, err := s.accounts.LoadAccount(ctx, accountID)
	if err != nil {
		if IsNotFound(err) {
			s.reject(ctx, out, actor, ErrInvalidToken)
			return out, ErrInvalidToken
		}
		return out, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for cancellation")
	}
	out.AccountName = account.Name()

	if err := s.tokens.Validate(account, timestamp, token); err != nil {
		s.reject(ctx, out, actor, err)
		return out, err
	}

	policy, err := s.configuredPolicy()
	if err != nil {
		return out, err
	}
	out.Policy = policy

	// a blocked account has nothing left to block, a replayed link must not
	// validate twice against the same account state
	if !account.IsActive() && !policy.DeletesAccount() {
		s.reject(ctx, out, actor, ErrInvalidToken)
		return out, ErrInvalidToken
	}

	return s.execute(ctx, out, account, policy, actor, s.config.GetNotifyOnCancel())
}

// ConfirmLink is ConfirmCancellation for a parsed link.
func (s *Scheduler) ConfirmLink(ctx context.Context, link ConfirmationLink) (Outcome, error) {
	return s.ConfirmCancellation(ctx, link.AccountID, link.Timestamp, link.Token)
}

func (s *Scheduler) execute(ctx context.Context, out Outcome, account *Account, policy Policy, actor ActorRef, notify bool) (Outcome, error) {
	report, err := s.cascade.Apply(ctx, account.ID, policy)
	out.Cascade = report
	if err != nil {
		return out, err
	}

	target := AccountStatusBlocked
	out.Disposition = DispositionDisabled
	if policy.DeletesAccount() {
		target = AccountStatusCanceled
		out.Disposition = DispositionDeleted
	}

	_, err = s.lifecycle.Transition(ctx, actor, account, target,
		WithTransitionRun(out.RunID, policy),
		WithTransitionReason("account cancellation"),
	)
	if err != nil {
		out.Disposition = ""
		if errors.Is(err, ErrProtectedAccount) {
			return s.protectedOutcome(ctx, out, actor), nil
		}
		if IsNotFound(err) {
			return out, ErrAccountNotFound
		}
		return out, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply account effect")
	}

	out.State = RunStateExecuted

	if notify {
		payload := map[string]any{
			"run_id": out.RunID,
			"policy": policy.ID(),
		}
		if err := s.notifier.Notify(ctx, account, NotificationAccountCanceled, payload); err != nil {
			s.logger.Warn("failed to notify account %d about cancellation: %v", account.ID, err)
		}
	}

	recordActivity(ctx, s.activity, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventCancelExecuted,
		Actor:     actor,
		RunID:     out.RunID,
		AccountID: account.ID,
		Policy:    policy,
		ToStatus:  target,
		Metadata: map[string]any{
			"items_visited": report.ItemsVisited,
			"items_changed": report.ItemsChanged,
		},
	})

	s.logger.Info("account %d canceled with %s: %s", account.ID, policy, out.Disposition)

	return out, nil
}

func (s *Scheduler) sendConfirmation(ctx context.Context, out Outcome, account *Account, actor ActorRef, notify bool) (Outcome, error) {
	issuedAt := s.now()
	timestamp := issuedAt.Unix()

	link := ConfirmationLink{
		AccountID: account.ID,
		Timestamp: timestamp,
		Token:     s.tokens.Issue(account, timestamp),
	}

	payload := map[string]any{
		"run_id":           out.RunID,
		"link":             link.URL(s.config.GetLinkBaseURL()),
		"policy":           out.Policy.ID(),
		"description":      out.Policy.Description(s.config.GetAnonymousDisplayName()),
		"expires_at":       issuedAt.Add(s.config.GetTokenWindow()),
		"notify_on_cancel": notify,
	}

	if err := s.notifier.Notify(ctx, account, NotificationCancelConfirmationRequested, payload); err != nil {
		return out, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send cancellation confirmation").
			WithMetadata(map[string]any{"account_id": account.ID})
	}

	out.State = RunStatePendingConfirmation
	out.Disposition = DispositionConfirmationSent
	out.Link = &link

	recordActivity(ctx, s.activity, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventCancelRequested,
		Actor:     actor,
		RunID:     out.RunID,
		AccountID: account.ID,
		Policy:    out.Policy,
	})

	return out, nil
}

// authorize reports whether the invoker may skip confirmation. Nobody skips
// confirmation for their own account.
func (s *Scheduler) authorize(ctx context.Context, invoker Invoker, account *Account) (bool, error) {
	has := func(c Capability) bool {
		return s.authorizer.HasCapability(ctx, invoker, c)
	}

	if invoker.ID == account.ID {
		if has(CapabilityCancelOwnAccount) || has(CapabilityAdministerUsers) || has(CapabilityCancelOtherAccounts) {
			return false, nil
		}
		return false, ErrUnauthorized
	}

	if has(CapabilityCancelOtherAccounts) {
		return true, nil
	}
	if has(CapabilityAdministerUsers) {
		return false, nil
	}
	return false, ErrUnauthorized
}

func (s *Scheduler) loadAccount(ctx context.Context, id int64) (*Account, error) {
	account, err := s.accounts.LoadAccount(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account for cancellation")
	}
	return account, nil
}

func (s *Scheduler) configuredPolicy() (Policy, error) {
	return s.registry.Resolve(s.config.GetCancelMethod())
}

func (s *Scheduler) protectedOutcome(ctx context.Context, out Outcome, actor ActorRef) Outcome {
	out.State = RunStateSkipped
	out.Disposition = DispositionProtected
	s.logger.Info("ignoring cancellation of protected account %d", out.AccountID)
	recordActivity(ctx, s.activity, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventCancelRejected,
		Actor:     actor,
		RunID:     out.RunID,
		AccountID: out.AccountID,
		Metadata:  map[string]any{"reason": TextCodeProtectedAccount},
	})
	return out
}

func (s *Scheduler) reject(ctx context.Context, out Outcome, actor ActorRef, err error) {
	recordActivity(ctx, s.activity, s.logger, s.now, ActivityEvent{
		EventType: ActivityEventCancelRejected,
		Actor:     actor,
		RunID:     out.RunID,
		AccountID: out.AccountID,
		Policy:    out.Policy,
		Metadata:  map[string]any{"reason": textCode(err)},
	})
}
