package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

const userColumns = `id, username, email, name, lastname, password_hash, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user together with an empty ledger row.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	return NewDB(r.db).WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Username, u.Email, u.Name, u.Lastname, u.PasswordHash, u.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("Create: %w", domain.ErrUserExists)
			}
			return fmt.Errorf("Create: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ledgers (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, u.ID,
		)
		if err != nil {
			return fmt.Errorf("Create: ledger: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return u, nil
}

// GetByIdentifier matches either the username or the email.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1 LIMIT 1`, identifier,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIdentifier: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIdentifier: %w", err)
	}
	return u, nil
}

// UpdateProfile writes the user's name and lastname.
func (r *UserRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, lastname = $3 WHERE id = $1`,
		u.ID, u.Name, u.Lastname,
	)
	if err != nil {
		return fmt.Errorf("UpdateProfile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateProfile: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateProfile: %w", domain.ErrNotFound)
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	err := s.Scan(
		&u.ID, &u.Username, &u.Email, &u.Name,
		&u.Lastname, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
