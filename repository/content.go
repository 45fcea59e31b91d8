package repository

import (
	"context"

	cancel "github.com/goliatone/go-cancel"
	"github.com/uptrace/bun"
)

// NodeModel is the Bun model for nodes. OwnerID and Published mirror the
// current revision.
type NodeModel struct {
	bun.BaseModel `bun:"table:nodes,alias:nd"`

	ID                int64  `bun:"id,pk,autoincrement"`
	CurrentRevisionID int64  `bun:"current_revision_id"`
	OwnerID           int64  `bun:"owner_id,notnull"`
	Published         bool   `bun:"published,notnull"`
	Title             string `bun:"title"`
}

// RevisionModel is the Bun model for node revisions.
type RevisionModel struct {
	bun.BaseModel `bun:"table:node_revisions,alias:rev"`

	ID        int64  `bun:"id,pk,autoincrement"`
	NodeID    int64  `bun:"node_id,notnull"`
	OwnerID   int64  `bun:"owner_id,notnull"`
	Published bool   `bun:"published,notnull"`
	Title     string `bun:"title"`
	Current   bool   `bun:"is_current,scanonly"`
}

// CommentModel is the Bun model for comments.
type CommentModel struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`

	ID         int64  `bun:"id,pk,autoincrement"`
	NodeID     int64  `bun:"node_id,notnull"`
	OwnerID    int64  `bun:"owner_id,notnull"`
	Published  bool   `bun:"published,notnull"`
	AuthorName string `bun:"author_name"`
	Body       string `bun:"body"`
}

// ContentStore implements cancel.Content using Bun.
type ContentStore struct {
	db *bun.DB
}

var _ cancel.Content = (*ContentStore)(nil)

// NewContentStore creates a new store.
func NewContentStore(db *bun.DB) *ContentStore {
	return &ContentStore{db: db}
}

// FindContentOwnedBy implements cancel.Content.
func (r *ContentStore) FindContentOwnedBy(ctx context.Context, accountID int64, cursor cancel.Cursor, limit int) ([]*cancel.ContentItem, error) {
	if limit <= 0 {
		return []*cancel.ContentItem{}, nil
	}

	switch cursor.Kind {
	case cancel.ContentNode:
		var models []NodeModel
		err := r.db.NewSelect().
			Model(&models).
			Where("nd.owner_id = ?", accountID).
			Where("nd.id > ?", cursor.AfterID).
			Order("nd.id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil && !isNoRows(err) {
			return nil, err
		}
		items := make([]*cancel.ContentItem, len(models))
		for i, m := range models {
			items[i] = &cancel.ContentItem{
				Kind:      cancel.ContentNode,
				ID:        m.ID,
				NodeID:    m.ID,
				OwnerID:   m.OwnerID,
				Published: m.Published,
			}
		}
		return items, nil

	case cancel.ContentRevision:
		var models []RevisionModel
		err := r.db.NewSelect().
			Model(&models).
			ColumnExpr("rev.*").
			ColumnExpr("COALESCE(nd.current_revision_id = rev.id, 0) AS is_current").
			Join("LEFT JOIN nodes AS nd ON nd.id = rev.node_id").
			Where("rev.owner_id = ?", accountID).
			Where("rev.id > ?", cursor.AfterID).
			Order("rev.id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil && !isNoRows(err) {
			return nil, err
		}
		items := make([]*cancel.ContentItem, len(models))
		for i, m := range models {
			items[i] = &cancel.ContentItem{
				Kind:      cancel.ContentRevision,
				ID:        m.ID,
				NodeID:    m.NodeID,
				OwnerID:   m.OwnerID,
				Published: m.Published,
				Current:   m.Current,
			}
		}
		return items, nil

	case cancel.ContentComment:
		var models []CommentModel
		err := r.db.NewSelect().
			Model(&models).
			Where("cmt.owner_id = ?", accountID).
			Where("cmt.id > ?", cursor.AfterID).
			Order("cmt.id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil && !isNoRows(err) {
			return nil, err
		}
		items := make([]*cancel.ContentItem, len(models))
		for i, m := range models {
			items[i] = &cancel.ContentItem{
				Kind:       cancel.ContentComment,
				ID:         m.ID,
				NodeID:     m.NodeID,
				OwnerID:    m.OwnerID,
				Published:  m.Published,
				AuthorName: m.AuthorName,
			}
		}
		return items, nil
	}

	return nil, cancel.ErrContentNotFound
}

// SaveContentBatch implements cancel.Content. The batch is written in a
// single transaction.
func (r *ContentStore) SaveContentBatch(ctx context.Context, items []*cancel.ContentItem) (int, error) {
	saved := 0
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, item := range items {
			if item == nil {
				continue
			}

			var q *bun.UpdateQuery
			switch item.Kind {
			case cancel.ContentNode:
				q = tx.NewUpdate().Model((*NodeModel)(nil))
			case cancel.ContentRevision:
				q = tx.NewUpdate().Model((*RevisionModel)(nil))
			case cancel.ContentComment:
				q = tx.NewUpdate().Model((*CommentModel)(nil)).
					Set("author_name = ?", item.AuthorName)
			default:
				return cancel.ErrContentNotFound
			}

			res, err := q.
				Set("owner_id = ?", item.OwnerID).
				Set("published = ?", item.Published).
				Where("id = ?", item.ID).
				Exec(ctx)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			saved += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return saved, nil
}

// DeleteContentBatch implements cancel.Content. Deleting a node also removes
// its revisions and comments.
func (r *ContentStore) DeleteContentBatch(ctx context.Context, kind cancel.ContentKind, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleted := 0
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var model any
		switch kind {
		case cancel.ContentNode:
			if _, err := tx.NewDelete().
				Model((*RevisionModel)(nil)).
				Where("node_id IN (?)", bun.In(ids)).
				Exec(ctx); err != nil {
				return err
			}
			if _, err := tx.NewDelete().
				Model((*CommentModel)(nil)).
				Where("node_id IN (?)", bun.In(ids)).
				Exec(ctx); err != nil {
				return err
			}
			model = (*NodeModel)(nil)
		case cancel.ContentRevision:
			model = (*RevisionModel)(nil)
		case cancel.ContentComment:
			model = (*CommentModel)(nil)
		default:
			return cancel.ErrContentNotFound
		}

		res, err := tx.NewDelete().
			Model(model).
			Where("id IN (?)", bun.In(ids)).
			Exec(ctx)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
