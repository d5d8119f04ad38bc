package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/ledger"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
	"github.com/Reymilan15/milos-cuentas/internal/metrics"
)

const (
	OpAddTransaction    = "add_transaction"
	OpRemoveTransaction = "remove_transaction"
	OpSetBudget         = "set_budget"
	OpReset             = "reset"
)

// LedgerView is everything a client needs to render a user's ledger.
type LedgerView struct {
	Budget         decimal.Decimal      `json:"budget"`
	AlertThreshold decimal.Decimal      `json:"alert_threshold"`
	TotalSpent     decimal.Decimal      `json:"total_spent"`
	Remaining      decimal.Decimal      `json:"remaining"`
	Status         ledger.Status        `json:"status"`
	Summary        ledger.Summary       `json:"summary"`
	Transactions   []domain.Transaction `json:"transactions"`
	Rates          domain.Rates         `json:"rates"`
	Sync           SyncStatus           `json:"sync"`
}

// LedgerService keeps one in-memory ledger per signed-in user. Mutations on
// a ledger are serialised by a per-user lock; accepted mutations are handed
// to the syncer and never wait for persistence.
type LedgerService struct {
	store    ledgerLoader
	rates    rateProvider
	sink     snapshotSink
	notifier ChangeNotifier
	metrics  *metrics.Metrics
	now      func() time.Time

	mapMu    sync.Mutex
	locks    map[uuid.UUID]*sync.Mutex
	sessions map[uuid.UUID]*ledger.Ledger
}

func NewLedgerService(store ledgerLoader, rates rateProvider, sink snapshotSink, notifier ChangeNotifier, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		store:    store,
		rates:    rates,
		sink:     sink,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
		locks:    make(map[uuid.UUID]*sync.Mutex),
		sessions: make(map[uuid.UUID]*ledger.Ledger),
	}
}

func (s *LedgerService) userLock(userID uuid.UUID) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, ok := s.locks[userID]; !ok {
		s.locks[userID] = &sync.Mutex{}
	}
	return s.locks[userID]
}

// Open hydrates the user's ledger from persistence. A session that is already
// open is kept as is, since it may hold mutations not yet written.
func (s *LedgerService) Open(ctx context.Context, userID uuid.UUID) (*LedgerView, error) {
	var view *LedgerView
	err := s.withLedger(ctx, userID, func(l *ledger.Ledger) error {
		if err := l.UpdateRates(s.rates.Current()); err != nil {
			return err
		}
		view = s.view(userID, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	return view, nil
}

// Close drops the in-memory ledger. Pending snapshots stay with the syncer.
func (s *LedgerService) Close(ctx context.Context, userID uuid.UUID) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	s.mapMu.Lock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mapMu.Unlock()

	if ok {
		s.metrics.SessionClosed()
		logging.FromContext(ctx).Info("ledger session closed", "user_id", userID)
	}
}

func (s *LedgerService) View(ctx context.Context, userID uuid.UUID) (*LedgerView, error) {
	var view *LedgerView
	err := s.withLedger(ctx, userID, func(l *ledger.Ledger) error {
		if err := l.UpdateRates(s.rates.Current()); err != nil {
			return err
		}
		view = s.view(userID, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("View: %w", err)
	}
	return view, nil
}

func (s *LedgerService) AddTransaction(ctx context.Context, userID uuid.UUID, req ledger.AddRequest) (*domain.Transaction, error) {
	var tx *domain.Transaction
	err := s.mutate(ctx, userID, OpAddTransaction, func(l *ledger.Ledger) error {
		if err := l.UpdateRates(s.rates.Current()); err != nil {
			return err
		}
		var err error
		tx, err = l.AddTransaction(req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}

	logging.FromContext(ctx).Info("transaction added",
		"user_id", userID,
		"transaction_id", tx.ID,
		"currency", tx.OriginalCurrency,
		"value_in_base", tx.ValueInBase.String(),
	)
	return tx, nil
}

func (s *LedgerService) RemoveTransaction(ctx context.Context, userID uuid.UUID, id int64) error {
	err := s.mutate(ctx, userID, OpRemoveTransaction, func(l *ledger.Ledger) error {
		return l.RemoveTransaction(id)
	})
	if err != nil {
		return fmt.Errorf("RemoveTransaction: %w", err)
	}
	logging.FromContext(ctx).Info("transaction removed", "user_id", userID, "transaction_id", id)
	return nil
}

func (s *LedgerService) SetBudget(ctx context.Context, userID uuid.UUID, ceiling, threshold decimal.Decimal) (*LedgerView, error) {
	var view *LedgerView
	err := s.mutate(ctx, userID, OpSetBudget, func(l *ledger.Ledger) error {
		l.SetBudget(ceiling, threshold)
		view = s.view(userID, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("SetBudget: %w", err)
	}
	return view, nil
}

func (s *LedgerService) Reset(ctx context.Context, userID uuid.UUID) error {
	err := s.mutate(ctx, userID, OpReset, func(l *ledger.Ledger) error {
		l.Reset()
		return nil
	})
	if err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	logging.FromContext(ctx).Info("ledger reset", "user_id", userID)
	return nil
}

// Remaining returns the unspent budget in display, using the current rates.
func (s *LedgerService) Remaining(ctx context.Context, userID uuid.UUID, display domain.Currency) (decimal.Decimal, error) {
	if !display.IsValid() {
		return decimal.Zero, fmt.Errorf("Remaining: %w: %q", domain.ErrInvalidCurrency, display)
	}

	var remaining decimal.Decimal
	err := s.withLedger(ctx, userID, func(l *ledger.Ledger) error {
		if err := l.UpdateRates(s.rates.Current()); err != nil {
			return err
		}
		var err error
		remaining, err = l.Remaining(display)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("Remaining: %w", err)
	}
	return remaining, nil
}

// mutate runs fn under the user's lock. Only a successful fn reaches the
// syncer and the notifier.
func (s *LedgerService) mutate(ctx context.Context, userID uuid.UUID, op string, fn func(l *ledger.Ledger) error) error {
	var snap domain.LedgerSnapshot
	err := s.withLedger(ctx, userID, func(l *ledger.Ledger) error {
		if err := fn(l); err != nil {
			return err
		}
		snap = l.Snapshot()
		return nil
	})
	s.metrics.Mutation(op, err)
	if err != nil {
		return err
	}

	s.sink.Enqueue(userID, snap)
	if s.notifier != nil {
		s.notifier.LedgerChanged(userID, op)
	}
	return nil
}

func (s *LedgerService) withLedger(ctx context.Context, userID uuid.UUID, fn func(l *ledger.Ledger) error) error {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	l, err := s.session(ctx, userID)
	if err != nil {
		return err
	}
	return fn(l)
}

// session returns the open ledger or hydrates one. A snapshot the syncer has
// not finished writing is newer than the stored row and takes precedence.
// Callers hold the user lock.
func (s *LedgerService) session(ctx context.Context, userID uuid.UUID) (*ledger.Ledger, error) {
	s.mapMu.Lock()
	l, ok := s.sessions[userID]
	s.mapMu.Unlock()
	if ok {
		return l, nil
	}

	snap, ok := s.sink.Pending(userID)
	if !ok {
		var err error
		snap, err = s.store.Load(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			snap = domain.EmptySnapshot()
		case err != nil:
			return nil, fmt.Errorf("load ledger: %w: %w", domain.ErrPersistence, err)
		}
	}

	l, err := ledger.New(snap, s.rates.Current())
	if err != nil {
		return nil, fmt.Errorf("hydrate ledger: %w: %w", domain.ErrInvalidSnapshot, err)
	}

	s.mapMu.Lock()
	s.sessions[userID] = l
	s.mapMu.Unlock()
	s.metrics.SessionOpened()

	logging.FromContext(ctx).Info("ledger session opened",
		slog.String("user_id", userID.String()),
		slog.Int("transactions", len(snap.Transactions)),
	)
	return l, nil
}

func (s *LedgerService) view(userID uuid.UUID, l *ledger.Ledger) *LedgerView {
	spent := l.TotalSpent()
	return &LedgerView{
		Budget:         l.Budget(),
		AlertThreshold: l.AlertThreshold(),
		TotalSpent:     spent,
		Remaining:      l.Budget().Sub(spent),
		Status:         l.Status(),
		Summary:        l.Summary(s.now()),
		Transactions:   l.Transactions(),
		Rates:          l.Rates(),
		Sync:           s.sink.Status(userID),
	}
}
