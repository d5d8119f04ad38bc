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
	"github.com/Reymilan15/milos-cuentas/internal/events"
	"github.com/Reymilan15/milos-cuentas/internal/metrics"
)

type SyncState string

const (
	SyncStateIdle    SyncState = "idle"
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	SyncStateFailed  SyncState = "failed"
)

type SyncStatus struct {
	State        SyncState `json:"state"`
	LastSyncedAt time.Time `json:"last_synced_at,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
	err          error
}

// Err returns the last persistence failure, matching domain.ErrPersistence.
func (s SyncStatus) Err() error { return s.err }

const defaultSaveTimeout = 10 * time.Second

// Syncer persists ledger snapshots in the background. Pending snapshots are
// coalesced per user so only the latest one is written. Failures are logged,
// counted and recorded in the user's status; there is no retry. A save cut
// short by shutdown is queued again for the final flush.
type Syncer struct {
	store       ledgerSaver
	publisher   events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	saveTimeout time.Duration

	mu       sync.Mutex
	seq      uint64
	pending  map[uuid.UUID]queuedSnapshot
	inflight map[uuid.UUID]queuedSnapshot
	status   map[uuid.UUID]SyncStatus
	wake     chan struct{}
}

type queuedSnapshot struct {
	snap domain.LedgerSnapshot
	seq  uint64
}

func NewSyncer(store ledgerSaver, publisher events.Publisher, logger *slog.Logger, m *metrics.Metrics) *Syncer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Syncer{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
		saveTimeout: defaultSaveTimeout,
		pending:     make(map[uuid.UUID]queuedSnapshot),
		inflight:    make(map[uuid.UUID]queuedSnapshot),
		status:      make(map[uuid.UUID]SyncStatus),
		wake:        make(chan struct{}, 1),
	}
}

// Enqueue never blocks. A snapshot still waiting for the same user is
// replaced.
func (s *Syncer) Enqueue(userID uuid.UUID, snap domain.LedgerSnapshot) {
	s.mu.Lock()
	s.seq++
	s.pending[userID] = queuedSnapshot{snap: snap, seq: s.seq}
	st := s.status[userID]
	st.State = SyncStatePending
	s.status[userID] = st
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Pending returns the newest snapshot for the user that is queued or still
// being written, so a reopened session does not load older persisted state.
func (s *Syncer) Pending(userID uuid.UUID) (domain.LedgerSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.pending[userID]; ok {
		return q.snap, true
	}
	if q, ok := s.inflight[userID]; ok {
		return q.snap, true
	}
	return domain.LedgerSnapshot{}, false
}

func (s *Syncer) Status(userID uuid.UUID) SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.status[userID]
	if !ok {
		return SyncStatus{State: SyncStateIdle}
	}
	return st
}

// Run writes pending snapshots until ctx is done, then flushes whatever is
// left with a fresh bounded context.
func (s *Syncer) Run(ctx context.Context) {
	s.logger.Info("snapshot syncer started")

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
			err := s.Flush(flushCtx)
			cancel()
			if err != nil {
				s.logger.Error("final snapshot flush incomplete", "error", err)
			}
			s.logger.Info("snapshot syncer stopped")
			return
		case <-s.wake:
			_ = s.Flush(ctx)
		}
	}
}

// Flush writes every pending snapshot once and returns the joined failures.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[uuid.UUID]queuedSnapshot)
	for userID, q := range batch {
		s.inflight[userID] = q
	}
	s.mu.Unlock()

	var errs []error
	for userID, q := range batch {
		if err := s.save(ctx, userID, q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) save(ctx context.Context, userID uuid.UUID, q queuedSnapshot) error {
	saveCtx, cancel := context.WithTimeout(ctx, s.saveTimeout)
	defer cancel()

	err := s.store.Save(saveCtx, userID, q.snap)

	s.mu.Lock()
	if cur, ok := s.inflight[userID]; ok && cur.seq == q.seq {
		delete(s.inflight, userID)
	}
	if err != nil && ctx.Err() != nil {
		if _, newer := s.pending[userID]; !newer {
			s.pending[userID] = q
		}
		s.mu.Unlock()
		s.logger.Warn("ledger snapshot save interrupted, queued again", "user_id", userID, "error", err)
		return fmt.Errorf("save %s: %w", userID, err)
	}

	st := s.status[userID]
	_, requeued := s.pending[userID]
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		st.State = SyncStateFailed
		st.LastError = err.Error()
		st.err = err
	} else {
		st.State = SyncStateSynced
		st.LastSyncedAt = time.Now().UTC()
		st.LastError = ""
		st.err = nil
	}
	if requeued {
		st.State = SyncStatePending
	}
	s.status[userID] = st
	s.mu.Unlock()

	s.metrics.SnapshotSave(err)
	if err != nil {
		s.logger.Error("ledger snapshot not persisted", "user_id", userID, "error", err)
		return fmt.Errorf("save %s: %w", userID, err)
	}

	s.publish(ctx, userID, q.snap)
	return nil
}

func (s *Syncer) publish(ctx context.Context, userID uuid.UUID, snap domain.LedgerSnapshot) {
	total := decimal.Zero
	for _, t := range snap.Transactions {
		total = total.Add(t.ValueInBase)
	}

	err := s.publisher.PublishLedgerUpdated(ctx, events.LedgerUpdated{
		Type:             events.TypeLedgerUpdated,
		UserID:           userID,
		Budget:           snap.BudgetCeiling,
		AlertThreshold:   snap.AlertThreshold,
		TotalSpent:       total,
		TransactionCount: len(snap.Transactions),
		OccurredAt:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("ledger.updated not published", "user_id", userID, "error", err)
	}
}
