package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type userRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
}

type ledgerLoader interface {
	Load(ctx context.Context, userID uuid.UUID) (domain.LedgerSnapshot, error)
}

type ledgerSaver interface {
	Save(ctx context.Context, userID uuid.UUID, snap domain.LedgerSnapshot) error
}

type rateProvider interface {
	Current() domain.Rates
}

type snapshotSink interface {
	Enqueue(userID uuid.UUID, snap domain.LedgerSnapshot)
	Pending(userID uuid.UUID) (domain.LedgerSnapshot, bool)
	Status(userID uuid.UUID) SyncStatus
}

// ChangeNotifier is told about every accepted mutation so live clients can
// refresh.
type ChangeNotifier interface {
	LedgerChanged(userID uuid.UUID, op string)
}
