package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reymilan15/milos-cuentas/internal/auth"
	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (*AuthService, *ledgerFixture) {
	t.Helper()
	lf := newLedgerFixture(t)
	svc := NewAuthService(newFakeUserRepo(), lf.svc, testSecret, time.Hour).WithBcryptCost(4)
	return svc, lf
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{
			name: "valid",
			in:   RegisterInput{Username: " Maria ", Email: "Maria@Example.com", Password: "secreto", Name: "Maria"},
		},
		{
			name:    "short password",
			in:      RegisterInput{Username: "maria", Email: "m@example.com", Password: "123"},
			wantErr: domain.ErrInvalidRequest,
		},
		{
			name:    "missing username",
			in:      RegisterInput{Username: "  ", Email: "m@example.com", Password: "secreto"},
			wantErr: domain.ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newAuthFixture(t)

			u, err := svc.Register(context.Background(), tc.in)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "maria", u.Username)
			assert.Equal(t, "maria@example.com", u.Email)
			assert.NotEqual(t, tc.in.Password, u.PasswordHash)
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "maria", Email: "maria@example.com", Password: "secreto"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "MARIA", Email: "otra@example.com", Password: "secreto"})
	require.ErrorIs(t, err, domain.ErrUserExists)
}

func TestAuthService_Login(t *testing.T) {
	svc, lf := newAuthFixture(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "maria", Email: "maria@example.com", Password: "secreto"})
	require.NoError(t, err)
	lf.store.snaps[u.ID] = domain.LedgerSnapshot{BudgetCeiling: dec("1000"), Transactions: []domain.Transaction{}}

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "by username", identifier: "maria", password: "secreto"},
		{name: "by email", identifier: "MARIA@example.com", password: "secreto"},
		{name: "wrong password", identifier: "maria", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", identifier: "pedro", password: "secreto", wantErr: domain.ErrInvalidCredentials},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Login(ctx, tc.identifier, tc.password)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, u.ID, res.User.ID)
			assert.True(t, res.Ledger.Budget.Equal(dec("1000")))

			claims, err := auth.ValidateToken(res.Token, testSecret)
			require.NoError(t, err)
			assert.Equal(t, u.ID, claims.UserID)
			assert.Equal(t, "maria", claims.Username)
		})
	}
}

func TestAuthService_LogoutClosesSession(t *testing.T) {
	svc, lf := newAuthFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := lf.svc.Open(ctx, userID)
	require.NoError(t, err)
	svc.Logout(ctx, userID)

	_, err = lf.svc.Open(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, lf.store.loads)
}
