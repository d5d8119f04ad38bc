package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID               int64            `json:"id"`
	Date             time.Time        `json:"date"`
	Description      string           `json:"description"`
	OriginalAmount   decimal.Decimal  `json:"original_amount"`
	OriginalCurrency Currency         `json:"original_currency"`
	ValueInBase      decimal.Decimal  `json:"value_in_base"`
	BalanceAfter     *decimal.Decimal `json:"balance_after,omitempty"`
}

// LedgerSnapshot is the persisted form of a ledger. Rates are not part of it.
type LedgerSnapshot struct {
	BudgetCeiling  decimal.Decimal `json:"budget"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	Transactions   []Transaction   `json:"transactions"`
}

func EmptySnapshot() LedgerSnapshot {
	return LedgerSnapshot{
		BudgetCeiling:  decimal.Zero,
		AlertThreshold: decimal.Zero,
		Transactions:   []Transaction{},
	}
}

// Validate rejects snapshots that could not have been produced by a ledger.
func (s LedgerSnapshot) Validate() error {
	if s.BudgetCeiling.IsNegative() {
		return fmt.Errorf("Validate: negative budget: %w", ErrInvalidSnapshot)
	}
	if s.AlertThreshold.IsNegative() {
		return fmt.Errorf("Validate: negative alert threshold: %w", ErrInvalidSnapshot)
	}

	seen := make(map[int64]struct{}, len(s.Transactions))
	for i, t := range s.Transactions {
		if t.ID <= 0 {
			return fmt.Errorf("Validate: transaction %d: missing id: %w", i, ErrInvalidSnapshot)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("Validate: transaction %d: duplicate id %d: %w", i, t.ID, ErrInvalidSnapshot)
		}
		seen[t.ID] = struct{}{}

		if !t.OriginalCurrency.IsValid() {
			return fmt.Errorf("Validate: transaction %d: %w", t.ID, ErrInvalidCurrency)
		}
		if !t.OriginalAmount.IsPositive() || !t.ValueInBase.IsPositive() {
			return fmt.Errorf("Validate: transaction %d: %w", t.ID, ErrInvalidAmount)
		}
		if t.Date.IsZero() {
			return fmt.Errorf("Validate: transaction %d: missing date: %w", t.ID, ErrInvalidSnapshot)
		}
	}
	return nil
}
