package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

const TestPassword = "password123"

// SeedTestUser inserts a user with TestPassword and an empty ledger row.
func SeedTestUser(t *testing.T, db *sql.DB, username string) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@test.com",
		Name:         "Test",
		Lastname:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, username, email, name, lastname, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.Name, u.Lastname, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", username, err)
	}
	if _, err := db.Exec(`INSERT INTO ledgers (user_id) VALUES ($1)`, u.ID); err != nil {
		t.Fatalf("seed ledger for %s: %v", username, err)
	}
	return u
}

func CountTransactions(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT jsonb_array_length(transactions) FROM ledgers WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", userID, err)
	}
	return count
}
