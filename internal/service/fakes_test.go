package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/events"
)

type fakeLedgerStore struct {
	mu      sync.Mutex
	snaps   map[uuid.UUID]domain.LedgerSnapshot
	saves   int
	loads   int
	saveErr error
	loadErr error
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{snaps: make(map[uuid.UUID]domain.LedgerSnapshot)}
}

func (f *fakeLedgerStore) Load(_ context.Context, userID uuid.UUID) (domain.LedgerSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return domain.LedgerSnapshot{}, f.loadErr
	}
	snap, ok := f.snaps[userID]
	if !ok {
		return domain.LedgerSnapshot{}, domain.ErrNotFound
	}
	return snap, nil
}

func (f *fakeLedgerStore) Save(_ context.Context, userID uuid.UUID, snap domain.LedgerSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snaps[userID] = snap
	return nil
}

func (f *fakeLedgerStore) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *fakeLedgerStore) saved(userID uuid.UUID) (domain.LedgerSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[userID]
	return snap, ok
}

func (f *fakeLedgerStore) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func (f *fakeLedgerStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

// blockingStore holds the first Save until its context ends or release is
// closed, then behaves like fakeLedgerStore.
type blockingStore struct {
	*fakeLedgerStore
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingStore() *blockingStore {
	return &blockingStore{
		fakeLedgerStore: newFakeLedgerStore(),
		started:         make(chan struct{}),
		release:         make(chan struct{}),
	}
}

func (b *blockingStore) Save(ctx context.Context, userID uuid.UUID, snap domain.LedgerSnapshot) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.release:
		}
	}
	return b.fakeLedgerStore.Save(ctx, userID, snap)
}

type fakeRates struct {
	mu    sync.Mutex
	rates domain.Rates
}

func newFakeRates(usd string) *fakeRates {
	return &fakeRates{rates: domain.Rates{
		domain.CurrencyUSD: decimal.RequireFromString(usd),
		domain.CurrencyEUR: decimal.RequireFromString("39.50"),
	}.Clone()}
}

func (f *fakeRates) Current() domain.Rates {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rates.Clone()
}

func (f *fakeRates) set(c domain.Currency, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[c] = decimal.RequireFromString(v)
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []domain.LedgerSnapshot
}

func (r *recordingSink) Enqueue(_ uuid.UUID, snap domain.LedgerSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

// Pending reports nothing: recorded snapshots count as written.
func (r *recordingSink) Pending(uuid.UUID) (domain.LedgerSnapshot, bool) {
	return domain.LedgerSnapshot{}, false
}

func (r *recordingSink) Status(uuid.UUID) SyncStatus {
	return SyncStatus{State: SyncStateIdle}
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

type recordingNotifier struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingNotifier) LedgerChanged(_ uuid.UUID, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerUpdated
	err    error
}

func (r *recordingPublisher) PublishLedgerUpdated(_ context.Context, e events.LedgerUpdated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrUserExists
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	identifier = domain.NormalizeIdentifier(identifier)
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
}
