package repository

import (
	"context"
	"time"

	cancel "github.com/goliatone/go-cancel"
	"github.com/goliatone/go-cancel/activitymap"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityRecord is the Bun model for persisted cancellation activity.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:cancel_activity,alias:act"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	Channel    string         `bun:"channel"`
	ObjectType string         `bun:"object_type"`
	ObjectID   string         `bun:"object_id"`
	ActorID    string         `bun:"actor_id"`
	ActorType  string         `bun:"actor_type"`
	RunID      string         `bun:"run_id"`
	AccountID  int64          `bun:"account_id,notnull"`
	Policy     string         `bun:"policy"`
	FromStatus string         `bun:"from_status"`
	ToStatus   string         `bun:"to_status"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

func NewActivityRepository(db *bun.DB) repository.Repository[*ActivityRecord] {
	handlers := repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord {
			return &ActivityRecord{}
		},
		GetID: func(record *ActivityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivityRecord, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "run_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

// ActivityStore persists activity events, it implements cancel.ActivitySink.
type ActivityStore struct {
	db   *bun.DB
	repo repository.Repository[*ActivityRecord]
	opts []activitymap.Option
}

var _ cancel.ActivitySink = (*ActivityStore)(nil)

// NewActivityStore creates a new store.
func NewActivityStore(db *bun.DB, opts ...activitymap.Option) *ActivityStore {
	return &ActivityStore{db: db, repo: NewActivityRepository(db), opts: opts}
}

// Record implements cancel.ActivitySink.
func (s *ActivityStore) Record(ctx context.Context, event cancel.ActivityEvent) error {
	normalized := activitymap.Normalize(event, s.opts...)

	record := &ActivityRecord{
		ID:         uuid.New(),
		EventType:  normalized.Verb,
		Channel:    normalized.Channel,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		ActorID:    normalized.ActorID,
		ActorType:  event.Actor.Type,
		RunID:      event.RunID,
		AccountID:  event.AccountID,
		Policy:     event.Policy.ID(),
		FromStatus: string(event.FromStatus),
		ToStatus:   string(event.ToStatus),
		Metadata:   normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.Metadata == nil {
		record.Metadata = map[string]any{}
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListForAccount returns the recorded activity of an account, oldest first.
func (s *ActivityStore) ListForAccount(ctx context.Context, accountID int64) ([]*ActivityRecord, error) {
	var records []*ActivityRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("act.account_id = ?", accountID).
		Order("act.occurred_at ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, err
	}
	return records, nil
}

// ListForRun returns every event recorded for a cancellation run.
func (s *ActivityStore) ListForRun(ctx context.Context, runID string) ([]*ActivityRecord, error) {
	var records []*ActivityRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("act.run_id = ?", runID).
		Order("act.occurred_at ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, err
	}
	return records, nil
}
