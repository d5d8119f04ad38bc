package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Load returns the stored snapshot. A user without a ledger row gets
// domain.ErrNotFound; a row that fails validation gets
// domain.ErrInvalidSnapshot.
func (r *LedgerRepository) Load(ctx context.Context, userID uuid.UUID) (domain.LedgerSnapshot, error) {
	var (
		snap domain.LedgerSnapshot
		raw  []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT budget, alert_threshold, transactions FROM ledgers WHERE user_id = $1`, userID,
	).Scan(&snap.BudgetCeiling, &snap.AlertThreshold, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.LedgerSnapshot{}, fmt.Errorf("Load: %w", domain.ErrNotFound)
		}
		return domain.LedgerSnapshot{}, fmt.Errorf("Load: %w", err)
	}

	if err := json.Unmarshal(raw, &snap.Transactions); err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("Load: decode transactions: %w: %w", domain.ErrInvalidSnapshot, err)
	}
	if snap.Transactions == nil {
		snap.Transactions = []domain.Transaction{}
	}
	if err := snap.Validate(); err != nil {
		return domain.LedgerSnapshot{}, fmt.Errorf("Load: %w", err)
	}
	return snap, nil
}

// Save overwrites the stored snapshot in full. There is no versioning; the
// last write wins.
func (r *LedgerRepository) Save(ctx context.Context, userID uuid.UUID, snap domain.LedgerSnapshot) error {
	txs := snap.Transactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("Save: encode transactions: %w: %w", domain.ErrPersistence, err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ledgers (user_id, budget, alert_threshold, transactions, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			budget = EXCLUDED.budget,
			alert_threshold = EXCLUDED.alert_threshold,
			transactions = EXCLUDED.transactions,
			updated_at = EXCLUDED.updated_at`,
		userID, snap.BudgetCeiling, snap.AlertThreshold, raw,
	)
	if err != nil {
		return fmt.Errorf("Save: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}
