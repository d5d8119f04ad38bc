// Package events defines the notifications emitted after a ledger snapshot is
// persisted.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const TypeLedgerUpdated = "ledger.updated"

type LedgerUpdated struct {
	Type             string          `json:"type"`
	UserID           uuid.UUID       `json:"user_id"`
	Budget           decimal.Decimal `json:"budget"`
	AlertThreshold   decimal.Decimal `json:"alert_threshold"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	TransactionCount int             `json:"transaction_count"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

type Publisher interface {
	PublishLedgerUpdated(ctx context.Context, e LedgerUpdated) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishLedgerUpdated(context.Context, LedgerUpdated) error { return nil }
func (Nop) Close() error                                              { return nil }
