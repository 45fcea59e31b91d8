package cancel

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	// AnonymousAccountID is the synthetic account content is reassigned to
	AnonymousAccountID int64 = 0
	// ProtectedAccountID is the site administrator, it can never be canceled
	ProtectedAccountID int64 = 1
)

// AccountStatus is the account lifecycle status
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusBlocked  AccountStatus = "blocked"
	AccountStatusCanceled AccountStatus = "canceled"
)

// Account is the account model
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            int64         `bun:"id,pk" json:"id"`
	Username      string        `bun:"username,notnull" json:"username,omitempty"`
	Email         string        `bun:"email" json:"email,omitempty"`
	DisplayName   string        `bun:"display_name" json:"display_name,omitempty"`
	Role          UserRole      `bun:"user_role" json:"user_role,omitempty"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	SecretHash    string        `bun:"secret_hash" json:"-"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults an empty status to active.
func (a *Account) EnsureStatus() {
	if a != nil && a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// IsActive reports whether the account can still sign in.
func (a *Account) IsActive() bool {
	if a == nil {
		return false
	}
	a.EnsureStatus()
	return a.Status == AccountStatusActive
}

// IsBlocked reports whether the account has been blocked.
func (a *Account) IsBlocked() bool {
	return a != nil && a.Status == AccountStatusBlocked
}

// IsProtected reports whether the account is immune to cancellation.
func (a *Account) IsProtected() bool {
	return a != nil && a.ID == ProtectedAccountID
}

// Name returns the label used in user facing messages.
func (a *Account) Name() string {
	if a == nil {
		return ""
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// ContentKind identifies the content storage an item lives in
type ContentKind string

const (
	ContentNode     ContentKind = "node"
	ContentRevision ContentKind = "revision"
	ContentComment  ContentKind = "comment"
)

// ContentKinds lists kinds in cascade order. Nodes go first so that a
// wholesale node deletion also takes its revisions out of later pages.
var ContentKinds = []ContentKind{ContentNode, ContentRevision, ContentComment}

// ContentItem is a storage neutral view over nodes, revisions and comments.
//
// For nodes OwnerID and Published mirror the current revision. For revisions
// NodeID points at the parent node and Current marks the live revision.
type ContentItem struct {
	Kind       ContentKind `json:"kind"`
	ID         int64       `json:"id"`
	NodeID     int64       `json:"node_id,omitempty"`
	OwnerID    int64       `json:"owner_id"`
	Published  bool        `json:"published"`
	AuthorName string      `json:"author_name,omitempty"`
	Current    bool        `json:"current,omitempty"`
}

// Cursor is a keyset position inside one content kind
type Cursor struct {
	Kind    ContentKind
	AfterID int64
}
