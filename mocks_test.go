package cancel_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cancel "github.com/goliatone/go-cancel"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/stretchr/testify/mock"
)

const testSigningKey = "test-signing-key-0123456789"

var errCrash = errors.New("storage went away")

// MockAccounts implements cancel.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) LoadAccount(ctx context.Context, id int64) (*cancel.Account, error) {
	args := m.Called(ctx, id)
	if acc, ok := args.Get(0).(*cancel.Account); ok {
		return acc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) SaveAccount(ctx context.Context, account *cancel.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccounts) DeleteAccount(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockNotifier implements cancel.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, account *cancel.Account, kind cancel.NotificationKind, payload map[string]any) error {
	args := m.Called(ctx, account, kind, payload)
	return args.Error(0)
}

// memStore is an in memory cancel.RepositoryManager.
type memStore struct {
	mu       sync.Mutex
	accounts map[int64]*cancel.Account
	items    map[cancel.ContentKind]map[int64]*cancel.ContentItem

	// failSaveAfter makes SaveContentBatch fail once that many batches were
	// written, negative disables it
	failSaveAfter int
	saveCalls     int
	deleteCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[int64]*cancel.Account{},
		items: map[cancel.ContentKind]map[int64]*cancel.ContentItem{
			cancel.ContentNode:     {},
			cancel.ContentRevision: {},
			cancel.ContentComment:  {},
		},
		failSaveAfter: -1,
	}
}

func (s *memStore) Validate() error           { return nil }
func (s *memStore) Accounts() cancel.Accounts { return s }
func (s *memStore) Content() cancel.Content   { return s }

func (s *memStore) addAccount(id int64, username string, role cancel.UserRole) *cancel.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := &cancel.Account{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		Status:   cancel.AccountStatusActive,
	}
	s.accounts[id] = acc
	cp := *acc
	return &cp
}

// addNode stores a node owned by owner with a single current revision.
func (s *memStore) addNode(id, owner int64) {
	s.add(&cancel.ContentItem{Kind: cancel.ContentNode, ID: id, NodeID: id, OwnerID: owner, Published: true})
	s.add(&cancel.ContentItem{Kind: cancel.ContentRevision, ID: id * 100, NodeID: id, OwnerID: owner, Published: true, Current: true})
}

func (s *memStore) add(item *cancel.ContentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.items[item.Kind][item.ID] = &cp
}

func (s *memStore) item(kind cancel.ContentKind, id int64) *cancel.ContentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[kind][id]
	if !ok {
		return nil
	}
	cp := *it
	return &cp
}

func (s *memStore) ownedCount(kind cancel.ContentKind, owner int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items[kind] {
		if it.OwnerID == owner {
			n++
		}
	}
	return n
}

func (s *memStore) account(id int64) *cancel.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	cp := *acc
	return &cp
}

func (s *memStore) LoadAccount(_ context.Context, id int64) (*cancel.Account, error) {
	if acc := s.account(id); acc != nil {
		return acc, nil
	}
	return nil, cancel.ErrAccountNotFound
}

func (s *memStore) SaveAccount(_ context.Context, account *cancel.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *memStore) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return cancel.ErrAccountNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memStore) FindContentOwnedBy(_ context.Context, accountID int64, cursor cancel.Cursor, limit int) ([]*cancel.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []*cancel.ContentItem
	for _, it := range s.items[cursor.Kind] {
		if it.OwnerID == accountID && it.ID > cursor.AfterID {
			cp := *it
			found = append(found, &cp)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (s *memStore) SaveContentBatch(_ context.Context, items []*cancel.ContentItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSaveAfter >= 0 && s.saveCalls >= s.failSaveAfter {
		return 0, errCrash
	}
	s.saveCalls++

	saved := 0
	for _, it := range items {
		if _, ok := s.items[it.Kind][it.ID]; !ok {
			continue
		}
		cp := *it
		s.items[it.Kind][it.ID] = &cp
		saved++
	}
	return saved, nil
}

func (s *memStore) DeleteContentBatch(_ context.Context, kind cancel.ContentKind, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++

	deleted := 0
	for _, id := range ids {
		if _, ok := s.items[kind][id]; !ok {
			continue
		}
		delete(s.items[kind], id)
		deleted++
		if kind != cancel.ContentNode {
			continue
		}
		for _, child := range []cancel.ContentKind{cancel.ContentRevision, cancel.ContentComment} {
			for cid, it := range s.items[child] {
				if it.NodeID == id {
					delete(s.items[child], cid)
				}
			}
		}
	}
	return deleted, nil
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []cancel.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event cancel.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []cancel.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]cancel.ActivityEventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

// outbox collects notifications
type outbox struct {
	mu       sync.Mutex
	messages []sentMessage
	err      error
}

type sentMessage struct {
	AccountID int64
	Kind      cancel.NotificationKind
	Payload   map[string]any
}

func (o *outbox) Notify(_ context.Context, account *cancel.Account, kind cancel.NotificationKind, payload map[string]any) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.messages = append(o.messages, sentMessage{AccountID: account.ID, Kind: kind, Payload: payload})
	return nil
}

func (o *outbox) sent() []sentMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]sentMessage(nil), o.messages...)
}

type stubFeatureGate struct {
	enabled map[string]bool
	calls   []string
	err     error
}

func (s *stubFeatureGate) Enabled(ctx context.Context, key string, opts ...gate.ResolveOption) (bool, error) {
	s.calls = append(s.calls, key)
	if s.err != nil {
		return false, s.err
	}
	if s.enabled == nil {
		return true, nil
	}
	enabled, ok := s.enabled[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

type fixture struct {
	store     *memStore
	opts      *cancel.Options
	clock     *testClock
	sink      *recordingSink
	outbox    *outbox
	scheduler *cancel.Scheduler
}

// newFixture seeds the protected admin (1), an owner (2), an admin (3) and
// two members (4, 5).
func newFixture(method cancel.Policy) *fixture {
	f := &fixture{
		store:  newMemStore(),
		opts:   cancel.DefaultOptions(testSigningKey),
		clock:  newTestClock(),
		sink:   &recordingSink{},
		outbox: &outbox{},
	}
	f.opts.CancelMethod = method.ID()
	f.opts.LinkBaseURL = "https://example.com"

	f.store.addAccount(cancel.AnonymousAccountID, "", cancel.RoleGuest)
	f.store.addAccount(cancel.ProtectedAccountID, "root", cancel.RoleOwner)
	f.store.addAccount(2, "owner", cancel.RoleOwner)
	f.store.addAccount(3, "admin", cancel.RoleAdmin)
	f.store.addAccount(4, "alice", cancel.RoleMember)
	f.store.addAccount(5, "bob", cancel.RoleMember)

	f.scheduler = cancel.NewScheduler(f.store, f.opts).
		WithClock(f.clock.Now).
		WithActivitySink(f.sink).
		WithNotifier(f.outbox).
		WithLogger(quietLogger{})

	return f
}

func invoker(id int64, role cancel.UserRole) cancel.Invoker {
	return cancel.Invoker{ID: id, Role: role}
}
