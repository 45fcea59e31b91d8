package cancel

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BulkOptions are the choices offered by the mass cancellation form.
type BulkOptions struct {
	// RequireConfirmation mails a link to every selected account instead of
	// cancelling immediately.
	RequireConfirmation bool
	// NotifyOnCancel mails accounts that were canceled immediately.
	NotifyOnCancel bool
	// Concurrency bounds how many accounts are processed at once. Zero uses
	// the configured default.
	Concurrency int
}

// BulkReport aggregates per account outcomes of a mass cancellation.
type BulkReport struct {
	PerAccount map[int64]Outcome
	Errors     map[int64]error
}

// AccountIDs returns every account id in the report in ascending order.
func (r BulkReport) AccountIDs() []int64 {
	ids := make([]int64, 0, len(r.PerAccount)+len(r.Errors))
	seen := make(map[int64]struct{}, cap(ids))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range r.PerAccount {
		add(id)
	}
	for id := range r.Errors {
		add(id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Messages renders one message per account, ordered by account id.
func (r BulkReport) Messages() []string {
	ids := r.AccountIDs()
	messages := make([]string, 0, len(ids))
	for _, id := range ids {
		if err, ok := r.Errors[id]; ok {
			messages = append(messages, err.Error())
			continue
		}
		messages = append(messages, r.PerAccount[id].Message())
	}
	return messages
}

// BulkCoordinator fans a cancellation out over many accounts.
type BulkCoordinator struct {
	scheduler   *Scheduler
	concurrency int
	logger      Logger
}

// NewBulkCoordinator creates a coordinator on top of scheduler.
func NewBulkCoordinator(scheduler *Scheduler) *BulkCoordinator {
	return &BulkCoordinator{
		scheduler:   scheduler,
		concurrency: scheduler.config.GetBulkConcurrency(),
		logger:      scheduler.logger,
	}
}

// WithLogger overrides the logger.
func (b *BulkCoordinator) WithLogger(logger Logger) *BulkCoordinator {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// CancelMany cancels every account in ids with policy on behalf of invoker.
//
// The protected account is reported as skipped without being processed.
// The invoker's own account always goes through mailed confirmation. A
// failure for one account is recorded in the report and never stops the
// others.
func (b *BulkCoordinator) CancelMany(ctx context.Context, ids []int64, policy Policy, invoker Invoker, opts BulkOptions) BulkReport {
	report := BulkReport{
		PerAccount: make(map[int64]Outcome, len(ids)),
		Errors:     make(map[int64]error),
	}

	var mu sync.Mutex
	record := func(id int64, out Outcome, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Errors[id] = err
			return
		}
		report.PerAccount[id] = out
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = b.concurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if id == ProtectedAccountID {
			out := Outcome{
				RunID:     uuid.NewString(),
				AccountID: id,
				Policy:    policy,
				State:     RunStateRequested,
			}
			record(id, b.scheduler.protectedOutcome(ctx, out, invoker.ActorRef()), nil)
			continue
		}

		req := Request{
			AccountID:           id,
			Policy:              policy,
			Invoker:             invoker,
			NotifyOnCancel:      opts.NotifyOnCancel,
			RequireConfirmation: opts.RequireConfirmation || id == invoker.ID,
		}

		g.Go(func() error {
			out, err := b.scheduler.RequestCancellation(gctx, req)
			if err != nil {
				b.logger.Warn("bulk cancellation of account %d failed: %v", req.AccountID, err)
			}
			record(req.AccountID, out, err)
			// per account failures are reported, never propagated
			return nil
		})
	}

	_ = g.Wait()

	return report
}
