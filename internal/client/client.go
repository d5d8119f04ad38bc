// Package client talks to the Mil Cuentas HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

const (
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeMissingToken         = "MISSING_TOKEN"
)

// ErrNotLoggedIn is returned before any request that needs a token when none
// is configured.
var ErrNotLoggedIn = errors.New("not logged in, run 'milcuentas login' first")

// APIError is the error half of the response envelope.
type APIError struct {
	Status    int             `json:"-"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

type ThresholdDetails struct {
	Threshold      decimal.Decimal `json:"threshold"`
	ProjectedSpent decimal.Decimal `json:"projected_spent"`
	ValueInBase    decimal.Decimal `json:"value_in_base"`
}

// ConfirmationRequired reports whether err is the server asking for the
// expense to be resent with confirm set, with the threshold details if sent.
func ConfirmationRequired(err error) (*ThresholdDetails, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != CodeConfirmationRequired {
		return nil, false
	}
	var d ThresholdDetails
	if len(apiErr.Details) > 0 {
		if json.Unmarshal(apiErr.Details, &d) != nil {
			return nil, true
		}
	}
	return &d, true
}

// Unauthorized reports whether the server rejected the token.
func Unauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) HasToken() bool { return c.token != "" }

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Lastname string    `json:"lastname"`
	FullName string    `json:"full_name"`
}

type Summary struct {
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
}

type SyncStatus struct {
	State        string    `json:"state"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	LastError    string    `json:"last_error"`
}

type Ledger struct {
	Budget         decimal.Decimal      `json:"budget"`
	AlertThreshold decimal.Decimal      `json:"alert_threshold"`
	TotalSpent     decimal.Decimal      `json:"total_spent"`
	Remaining      decimal.Decimal      `json:"remaining"`
	Status         string               `json:"status"`
	Summary        Summary              `json:"summary"`
	Transactions   []domain.Transaction `json:"transactions"`
	Rates          domain.Rates         `json:"rates"`
	Sync           SyncStatus           `json:"sync"`
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
	Ledger    *Ledger   `json:"ledger"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Lastname string `json:"lastname,omitempty"`
}

// ProfileUpdate edits the display name. Empty fields are left unchanged.
type ProfileUpdate struct {
	Name     string `json:"name,omitempty"`
	Lastname string `json:"lastname,omitempty"`
}

type Expense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    domain.Currency `json:"currency,omitempty"`
	Confirm     bool            `json:"confirm,omitempty"`
}

type Remaining struct {
	Currency  domain.Currency `json:"currency"`
	Remaining decimal.Decimal `json:"remaining"`
}

type Rates struct {
	BaseCurrency domain.Currency `json:"base_currency"`
	Rates        domain.Rates    `json:"rates"`
	UpdatedAt    *time.Time      `json:"updated_at"`
	Fallback     bool            `json:"fallback"`
	LastError    string          `json:"last_error"`
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, nil, &u); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	return &u, nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, nil, &res); err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	c.token = res.Token
	return &res, nil
}

func (c *Client) Logout(ctx context.Context) error {
	if err := c.authed(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil); err != nil {
		return fmt.Errorf("Logout: %w", err)
	}
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.authed(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &u); err != nil {
		return nil, fmt.Errorf("Me: %w", err)
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) (*User, error) {
	var u User
	if err := c.authed(ctx, http.MethodPatch, "/api/v1/users/me", p, nil, &u); err != nil {
		return nil, fmt.Errorf("UpdateProfile: %w", err)
	}
	return &u, nil
}

func (c *Client) Ledger(ctx context.Context) (*Ledger, error) {
	var l Ledger
	if err := c.authed(ctx, http.MethodGet, "/api/v1/ledger", nil, nil, &l); err != nil {
		return nil, fmt.Errorf("Ledger: %w", err)
	}
	return &l, nil
}

// AddExpense records an expense. idempotencyKey may be empty.
func (c *Client) AddExpense(ctx context.Context, e Expense, idempotencyKey string) (*domain.Transaction, error) {
	var headers http.Header
	if idempotencyKey != "" {
		headers = http.Header{"Idempotency-Key": {idempotencyKey}}
	}

	var tx domain.Transaction
	if err := c.authed(ctx, http.MethodPost, "/api/v1/ledger/transactions", e, headers, &tx); err != nil {
		return nil, fmt.Errorf("AddExpense: %w", err)
	}
	return &tx, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	path := "/api/v1/ledger/transactions/" + strconv.FormatInt(id, 10)
	if err := c.authed(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("DeleteExpense: %w", err)
	}
	return nil
}

func (c *Client) SetBudget(ctx context.Context, budget, threshold decimal.Decimal) (*Ledger, error) {
	body := map[string]decimal.Decimal{"budget": budget, "alert_threshold": threshold}
	var l Ledger
	if err := c.authed(ctx, http.MethodPut, "/api/v1/ledger/budget", body, nil, &l); err != nil {
		return nil, fmt.Errorf("SetBudget: %w", err)
	}
	return &l, nil
}

func (c *Client) Remaining(ctx context.Context, currency domain.Currency) (*Remaining, error) {
	path := "/api/v1/ledger/remaining?currency=" + url.QueryEscape(string(currency))
	var r Remaining
	if err := c.authed(ctx, http.MethodGet, path, nil, nil, &r); err != nil {
		return nil, fmt.Errorf("Remaining: %w", err)
	}
	return &r, nil
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.authed(ctx, http.MethodPost, "/api/v1/ledger/reset", nil, nil, nil); err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	return nil
}

func (c *Client) Rates(ctx context.Context) (*Rates, error) {
	var r Rates
	if err := c.do(ctx, http.MethodGet, "/api/v1/rates", nil, nil, &r); err != nil {
		return nil, fmt.Errorf("Rates: %w", err)
	}
	return &r, nil
}

func (c *Client) authed(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	if c.token == "" {
		return ErrNotLoggedIn
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Authorization", "Bearer "+c.token)
	return c.do(ctx, method, path, body, headers, out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success || resp.StatusCode >= 400 {
		if env.Error == nil {
			return &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		}
		env.Error.Status = resp.StatusCode
		return env.Error
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
