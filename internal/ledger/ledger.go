// Package ledger holds a user's budget, alert threshold, expenses and the
// exchange rates used to convert foreign-currency expenses into the base
// currency.
//
// A Ledger is not safe for concurrent use; the session service serialises
// access per user.
package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type Ledger struct {
	budget       decimal.Decimal
	threshold    decimal.Decimal
	transactions []domain.Transaction
	rates        domain.Rates
	lastID       int64
	now          func() time.Time
}

type AddRequest struct {
	Description string
	Amount      decimal.Decimal
	Currency    domain.Currency
	// Confirmed skips the alert threshold check.
	Confirmed bool
}

// New hydrates a ledger from a persisted snapshot. The snapshot is validated
// first so malformed payloads never reach the ledger.
func New(snap domain.LedgerSnapshot, rates domain.Rates) (*Ledger, error) {
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	l := &Ledger{
		budget:       snap.BudgetCeiling,
		threshold:    snap.AlertThreshold,
		transactions: slices.Clone(snap.Transactions),
		now:          time.Now,
	}
	if l.transactions == nil {
		l.transactions = []domain.Transaction{}
	}
	for _, t := range l.transactions {
		l.lastID = max(l.lastID, t.ID)
	}

	if err := l.UpdateRates(rates); err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}
	return l, nil
}

func (l *Ledger) AddTransaction(req AddRequest) (*domain.Transaction, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, fmt.Errorf("AddTransaction: %w: %w", domain.ErrValidation, domain.ErrInvalidDescription)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("AddTransaction: %w: %w", domain.ErrValidation, domain.ErrInvalidAmount)
	}

	value, err := l.toBase(req.Amount, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("AddTransaction: %w", err)
	}

	spent := l.TotalSpent()
	remaining := l.budget.Sub(spent)
	if value.GreaterThan(remaining) {
		return nil, fmt.Errorf("AddTransaction: %s exceeds remaining %s: %w", value, remaining, domain.ErrInsufficientFunds)
	}

	projected := spent.Add(value)
	if !req.Confirmed && l.threshold.IsPositive() && projected.GreaterThan(l.threshold) {
		return nil, fmt.Errorf("AddTransaction: %w", &domain.ThresholdWarning{
			Threshold:      l.threshold,
			ProjectedSpent: projected,
			ValueInBase:    value,
		})
	}

	balanceAfter := remaining.Sub(value)
	now := l.now().UTC()
	t := domain.Transaction{
		ID:               l.nextID(now),
		Date:             now,
		Description:      desc,
		OriginalAmount:   req.Amount,
		OriginalCurrency: req.Currency,
		ValueInBase:      value,
		BalanceAfter:     &balanceAfter,
	}
	l.transactions = append(l.transactions, t)

	return &t, nil
}

// RemoveTransaction deletes one entry. The balance_after snapshots of the
// remaining entries are point-in-time values and are left untouched.
func (l *Ledger) RemoveTransaction(id int64) error {
	idx := slices.IndexFunc(l.transactions, func(t domain.Transaction) bool { return t.ID == id })
	if idx < 0 {
		return fmt.Errorf("RemoveTransaction: transaction %d: %w", id, domain.ErrNotFound)
	}
	l.transactions = slices.Delete(l.transactions, idx, idx+1)
	return nil
}

// SetBudget replaces the ceiling and threshold. Negative values are clamped
// to zero; existing transactions are not re-checked.
func (l *Ledger) SetBudget(ceiling, threshold decimal.Decimal) {
	l.budget = clampZero(ceiling)
	l.threshold = clampZero(threshold)
}

// Remaining returns the unspent budget expressed in display. The base
// currency is returned as is; any other currency divides by its rate.
func (l *Ledger) Remaining(display domain.Currency) (decimal.Decimal, error) {
	remaining := l.budget.Sub(l.TotalSpent())
	if display.IsBase() {
		return remaining, nil
	}

	rate, ok := l.rates[display]
	if !ok || rate.IsZero() {
		return decimal.Zero, fmt.Errorf("Remaining: %s: %w", display, domain.ErrRateUnavailable)
	}
	return remaining.Div(rate), nil
}

// UpdateRates swaps the rate table wholesale. Stored base values of existing
// transactions keep their original conversion.
func (l *Ledger) UpdateRates(rates domain.Rates) error {
	next := rates.Clone()
	if err := next.Validate(); err != nil {
		return fmt.Errorf("UpdateRates: %w", err)
	}
	l.rates = next
	return nil
}

func (l *Ledger) TotalSpent() decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.transactions {
		total = total.Add(t.ValueInBase)
	}
	return total
}

func (l *Ledger) Budget() decimal.Decimal         { return l.budget }
func (l *Ledger) AlertThreshold() decimal.Decimal { return l.threshold }
func (l *Ledger) Rates() domain.Rates             { return l.rates.Clone() }

func (l *Ledger) Transactions() []domain.Transaction {
	return slices.Clone(l.transactions)
}

func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	return domain.LedgerSnapshot{
		BudgetCeiling:  l.budget,
		AlertThreshold: l.threshold,
		Transactions:   l.Transactions(),
	}
}

// Reset clears the budget, threshold and every transaction.
func (l *Ledger) Reset() {
	l.budget = decimal.Zero
	l.threshold = decimal.Zero
	l.transactions = []domain.Transaction{}
}

func (l *Ledger) toBase(amount decimal.Decimal, c domain.Currency) (decimal.Decimal, error) {
	if c.IsBase() {
		return amount, nil
	}
	if !c.IsValid() {
		return decimal.Zero, fmt.Errorf("%w: %w: %q", domain.ErrValidation, domain.ErrInvalidCurrency, c)
	}
	rate, ok := l.rates[c]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %w: no rate for %s", domain.ErrValidation, domain.ErrInvalidCurrency, c)
	}
	return amount.Mul(rate), nil
}

// nextID derives ids from the wall clock in milliseconds, bumped past the
// last issued id so they stay unique and increasing.
func (l *Ledger) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
