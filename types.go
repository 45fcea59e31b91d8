package cancel

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Capability names a permission consumed from the host authorization layer.
type Capability string

const (
	// CapabilityCancelOwnAccount lets an account owner request cancellation of their own account
	CapabilityCancelOwnAccount Capability = "cancel-own-account"
	// CapabilityCancelOtherAccounts lets an invoker cancel other accounts without mailed confirmation
	CapabilityCancelOtherAccounts Capability = "cancel-other-accounts"
	// CapabilityAdministerUsers lets an invoker start a confirmed cancellation for someone else
	CapabilityAdministerUsers Capability = "administer-users"
)

// Invoker is the actor driving a cancellation. It is always passed
// explicitly, there is no ambient "current user".
type Invoker struct {
	ID   int64
	Role UserRole
}

// ActorRef converts the invoker to the reference recorded on activity events.
func (i Invoker) ActorRef() ActorRef {
	return ActorRef{ID: fmt.Sprintf("%d", i.ID), Type: "user"}
}

// Authorizer answers capability checks for an invoker.
type Authorizer interface {
	HasCapability(ctx context.Context, invoker Invoker, capability Capability) bool
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, invoker Invoker, capability Capability) bool

// HasCapability implements Authorizer.
func (f AuthorizerFunc) HasCapability(ctx context.Context, invoker Invoker, capability Capability) bool {
	if f == nil {
		return false
	}
	return f(ctx, invoker, capability)
}

// NotificationKind enumerates the messages the engine asks the host to deliver.
type NotificationKind string

const (
	NotificationCancelConfirmationRequested NotificationKind = "cancel_confirmation_requested"
	NotificationAccountCanceled             NotificationKind = "account_canceled"
)

// Notifier delivers account notifications (usually email).
type Notifier interface {
	Notify(ctx context.Context, account *Account, kind NotificationKind, payload map[string]any) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, account *Account, kind NotificationKind, payload map[string]any) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, account *Account, kind NotificationKind, payload map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, account, kind, payload)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, *Account, NotificationKind, map[string]any) error {
	return nil
}

// Accounts is the account storage consumed by the engine. Implementations
// must make LoadAccount reflect a prior SaveAccount or DeleteAccount
// immediately, and return ErrAccountNotFound for missing ids.
type Accounts interface {
	LoadAccount(ctx context.Context, id int64) (*Account, error)
	SaveAccount(ctx context.Context, account *Account) error
	DeleteAccount(ctx context.Context, id int64) error
}

// Content is the content storage consumed by the cascade engine.
//
// FindContentOwnedBy returns at most limit items of cursor.Kind whose current
// owner is accountID and whose id is greater than cursor.AfterID, ordered by id.
// SaveContentBatch and DeleteContentBatch persist one batch atomically and
// report how many rows were affected; rows that vanished are skipped.
type Content interface {
	FindContentOwnedBy(ctx context.Context, accountID int64, cursor Cursor, limit int) ([]*ContentItem, error)
	SaveContentBatch(ctx context.Context, items []*ContentItem) (int, error)
	DeleteContentBatch(ctx context.Context, kind ContentKind, ids []int64) (int, error)
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	Accounts() Accounts
	Content() Content
}

// Config holds cancellation options
type Config interface {
	GetCancelMethod() string
	GetNotifyOnCancel() bool
	GetAnonymousDisplayName() string
	GetSigningKey() string
	GetInvokerSigningKey() string
	GetTokenWindow() time.Duration
	GetBatchSize() int
	GetBulkConcurrency() int
	GetLinkBaseURL() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CANCEL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CANCEL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CANCEL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CANCEL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
