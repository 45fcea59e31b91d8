package cancel

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// CascadeReport summarizes one cascade run.
type CascadeReport struct {
	AccountID    int64  `json:"account_id"`
	Policy       Policy `json:"policy"`
	ItemsVisited int    `json:"items_visited"`
	ItemsChanged int    `json:"items_changed"`
	Batches      int    `json:"batches"`
}

func (r *CascadeReport) merge(o CascadeReport) {
	r.ItemsVisited += o.ItemsVisited
	r.ItemsChanged += o.ItemsChanged
	r.Batches += o.Batches
}

// CascadeEngine applies the content side of a policy to everything an
// account owns.
type CascadeEngine interface {
	Apply(ctx context.Context, accountID int64, policy Policy) (CascadeReport, error)
}

// CascadeOption customizes the cascade engine.
type CascadeOption func(*cascadeEngine)

// WithCascadeBatchSize sets how many items are fetched and written per batch.
func WithCascadeBatchSize(size int) CascadeOption {
	return func(e *cascadeEngine) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// WithCascadeAnonymousName sets the author name used when the anonymous
// account can not be loaded from storage.
func WithCascadeAnonymousName(name string) CascadeOption {
	return func(e *cascadeEngine) {
		if name != "" {
			e.anonymousName = name
		}
	}
}

// WithCascadeLogger overrides the logger.
func WithCascadeLogger(logger Logger) CascadeOption {
	return func(e *cascadeEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type cascadeEngine struct {
	content       Content
	accounts      Accounts
	batchSize     int
	anonymousName string
	logger        Logger
}

// NewCascadeEngine creates a CascadeEngine over the given stores. accounts is
// used to read the anonymous account display name and may be nil.
func NewCascadeEngine(content Content, accounts Accounts, opts ...CascadeOption) CascadeEngine {
	e := &cascadeEngine{
		content:       content,
		accounts:      accounts,
		batchSize:     DefaultBatchSize,
		anonymousName: DefaultAnonymousDisplayName,
		logger:        defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Apply walks content kinds in order, one keyset page at a time. Every page
// is written before the next one is read, and selection is always "currently
// owned by accountID", so a rerun after a crash resumes where it stopped.
func (e *cascadeEngine) Apply(ctx context.Context, accountID int64, policy Policy) (CascadeReport, error) {
	report := CascadeReport{AccountID: accountID, Policy: policy}

	if !policy.IsValid() {
		return report, ErrUnknownPolicy
	}

	effect := policy.Effects().Content
	if effect == ContentEffectNone {
		return report, nil
	}

	if accountID == AnonymousAccountID {
		return report, ErrUnauthorized
	}

	authorName := ""
	if effect == ContentEffectReassign {
		authorName = e.resolveAnonymousName(ctx)
	}

	for _, kind := range ContentKinds {
		kindReport, err := e.applyKind(ctx, accountID, kind, effect, authorName)
		report.merge(kindReport)
		if err != nil {
			return report, err
		}
	}

	e.logger.Debug("cascade finished: %s", print.MaybePrettyJSON(report))

	return report, nil
}

func (e *cascadeEngine) applyKind(ctx context.Context, accountID int64, kind ContentKind, effect ContentEffect, authorName string) (CascadeReport, error) {
	report := CascadeReport{}
	cursor := Cursor{Kind: kind}

	for {
		select {
		case <-ctx.Done():
			return report, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during content cascade")
		default:
		}

		items, err := e.content.FindContentOwnedBy(ctx, accountID, cursor, e.batchSize)
		if err != nil {
			return report, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load owned content").
				WithMetadata(map[string]any{"account_id": accountID, "kind": kind, "after_id": cursor.AfterID})
		}

		if len(items) == 0 {
			return report, nil
		}

		report.Batches++
		report.ItemsVisited += len(items)

		changed, err := e.applyBatch(ctx, accountID, kind, effect, authorName, items)
		if err != nil {
			if !IsNotFound(err) {
				return report, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist content batch").
					WithMetadata(map[string]any{"account_id": accountID, "kind": kind, "after_id": cursor.AfterID})
			}
			e.logger.Info("content batch already handled: account=%d kind=%s after=%d", accountID, kind, cursor.AfterID)
		}
		report.ItemsChanged += changed

		cursor.AfterID = items[len(items)-1].ID
		if len(items) < e.batchSize {
			return report, nil
		}
	}
}

func (e *cascadeEngine) applyBatch(ctx context.Context, accountID int64, kind ContentKind, effect ContentEffect, authorName string, items []*ContentItem) (int, error) {
	switch effect {
	case ContentEffectUnpublish:
		pending := make([]*ContentItem, 0, len(items))
		for _, item := range items {
			if item.OwnerID != accountID || !item.Published {
				continue
			}
			item.Published = false
			pending = append(pending, item)
		}
		return e.save(ctx, pending)

	case ContentEffectReassign:
		pending := make([]*ContentItem, 0, len(items))
		for _, item := range items {
			if item.OwnerID != accountID {
				continue
			}
			item.OwnerID = AnonymousAccountID
			if kind == ContentComment {
				item.AuthorName = authorName
			}
			pending = append(pending, item)
		}
		return e.save(ctx, pending)

	case ContentEffectDelete:
		ids := make([]int64, 0, len(items))
		for _, item := range items {
			if item.OwnerID != accountID {
				continue
			}
			// a live revision belongs to a node that the node pass either
			// removed already or that someone else owns
			if kind == ContentRevision && item.Current {
				e.logger.Warn("skipping current revision %d of node %d", item.ID, item.NodeID)
				continue
			}
			ids = append(ids, item.ID)
		}
		if len(ids) == 0 {
			return 0, nil
		}
		return e.content.DeleteContentBatch(ctx, kind, ids)
	}

	return 0, nil
}

func (e *cascadeEngine) save(ctx context.Context, items []*ContentItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	return e.content.SaveContentBatch(ctx, items)
}

func (e *cascadeEngine) resolveAnonymousName(ctx context.Context) string {
	if e.accounts == nil {
		return e.anonymousName
	}

	anonymous, err := e.accounts.LoadAccount(ctx, AnonymousAccountID)
	if err != nil {
		if !IsNotFound(err) {
			e.logger.Warn("failed to load anonymous account, using configured name: %v", err)
		}
		return e.anonymousName
	}

	if name := anonymous.Name(); name != "" {
		return name
	}
	return e.anonymousName
}
