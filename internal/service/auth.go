package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Reymilan15/milos-cuentas/internal/auth"
	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

type sessionManager interface {
	Open(ctx context.Context, userID uuid.UUID) (*LedgerView, error)
	Close(ctx context.Context, userID uuid.UUID)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
	Lastname string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	Ledger    *LedgerView
}

type AuthService struct {
	users      userRepository
	sessions   sessionManager
	jwtSecret  string
	jwtExpiry  time.Duration
	bcryptCost int
}

func NewAuthService(users userRepository, sessions sessionManager, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// WithBcryptCost overrides the hashing cost; tests use the minimum.
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := domain.NormalizeIdentifier(in.Username)
	email := domain.NormalizeIdentifier(in.Email)
	if username == "" || email == "" || len(in.Password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("Register: %w", domain.ErrInvalidRequest)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Lastname:     strings.TrimSpace(in.Lastname),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	logging.FromContext(ctx).Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks the credentials, issues a token and opens the user's ledger
// session. An unknown identifier and a wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	u, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Login: %w", err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("Login: %w", domain.ErrInvalidCredentials)
	}

	token, err := auth.GenerateToken(u.ID, u.Username, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	view, err := s.sessions.Open(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}

	logging.FromContext(ctx).Info("user logged in", "user_id", u.ID)
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.jwtExpiry).UTC(),
		User:      u,
		Ledger:    view,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) {
	s.sessions.Close(ctx, userID)
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Me: %w", err)
	}
	return u, nil
}
