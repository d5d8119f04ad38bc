package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, payload string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.RequestURI(), Header: r.Header.Clone()}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.Body))
		}
		reqs = append(reqs, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestLogin_StoresToken(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true,"data":{
		"token":"abc","expires_at":"2026-03-05T12:00:00Z",
		"user":{"id":"6f1c2a5e-1111-4a3b-9c1d-000000000001","username":"maria"},
		"ledger":{"budget":"1000","remaining":"640","transactions":[],"status":"ok"}}}`)

	c := New(srv.URL, "", nil)
	res, err := c.Login(context.Background(), "maria", "secreto")
	require.NoError(t, err)

	assert.Equal(t, "abc", res.Token)
	assert.Equal(t, "maria", res.User.Username)
	assert.True(t, res.Ledger.Remaining.Equal(decimal.NewFromInt(640)))
	assert.True(t, c.HasToken())

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/api/v1/auth/login", (*reqs)[0].Path)
	assert.Equal(t, "maria", (*reqs)[0].Body["identifier"])
	assert.Empty(t, (*reqs)[0].Header.Get("Authorization"))
}

func TestAuthedCallsRequireToken(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true,"data":null}`)

	_, err := New(srv.URL, "", nil).Ledger(context.Background())
	require.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Empty(t, *reqs)
}

func TestAddExpense(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusCreated, `{"success":true,"data":{
		"id":1709553600000,"date":"2026-03-04T12:00:00Z","description":"libro",
		"original_amount":"10","original_currency":"USD","value_in_base":"360","balance_after":"540"}}`)

	c := New(srv.URL, "tok", nil)
	tx, err := c.AddExpense(context.Background(), Expense{
		Description: "libro",
		Amount:      decimal.NewFromInt(10),
		Currency:    domain.CurrencyUSD,
	}, "key-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1709553600000), tx.ID)
	assert.True(t, tx.ValueInBase.Equal(decimal.NewFromInt(360)))
	require.NotNil(t, tx.BalanceAfter)

	got := (*reqs)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "key-1", got.Header.Get("Idempotency-Key"))
	assert.Equal(t, "10", got.Body["amount"])
	assert.Equal(t, "USD", got.Body["currency"])
	assert.NotContains(t, got.Body, "confirm")
}

func TestErrorEnvelope(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		payload       string
		wantCode      string
		wantConfirm   bool
		wantThreshold string
		wantUnauth    bool
		wantRequestID string
	}{
		{
			name:          "confirmation required",
			status:        http.StatusConflict,
			payload:       `{"success":false,"data":null,"error":{"code":"CONFIRMATION_REQUIRED","message":"m","details":{"threshold":"500","projected_spent":"600","value_in_base":"200"}}}`,
			wantCode:      CodeConfirmationRequired,
			wantConfirm:   true,
			wantThreshold: "500",
		},
		{
			name:          "insufficient funds",
			status:        http.StatusUnprocessableEntity,
			payload:       `{"success":false,"data":null,"error":{"code":"INSUFFICIENT_FUNDS","message":"m","request_id":"req-9"}}`,
			wantCode:      CodeInsufficientFunds,
			wantRequestID: "req-9",
		},
		{
			name:       "expired token",
			status:     http.StatusUnauthorized,
			payload:    `{"success":false,"data":null,"error":{"code":"INVALID_TOKEN","message":"m"}}`,
			wantCode:   CodeInvalidToken,
			wantUnauth: true,
		},
		{
			name:     "error without body details",
			status:   http.StatusBadGateway,
			payload:  `{"success":false}`,
			wantCode: "UNKNOWN",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.status, tc.payload)

			_, err := New(srv.URL, "tok", nil).AddExpense(context.Background(), Expense{Description: "a", Amount: decimal.NewFromInt(1)}, "")
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.wantCode, apiErr.Code)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantUnauth, Unauthorized(err))
			assert.Equal(t, tc.wantRequestID, apiErr.RequestID)

			details, ok := ConfirmationRequired(err)
			assert.Equal(t, tc.wantConfirm, ok)
			if tc.wantThreshold != "" {
				require.NotNil(t, details)
				assert.Equal(t, tc.wantThreshold, details.Threshold.String())
				assert.Equal(t, "600", details.ProjectedSpent.String())
			}
		})
	}
}

func TestRemaining_EscapesCurrency(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true,"data":{"currency":"USD","remaining":"16"}}`)

	r, err := New(srv.URL+"/", "tok", nil).Remaining(context.Background(), domain.CurrencyUSD)
	require.NoError(t, err)
	assert.True(t, r.Remaining.Equal(decimal.NewFromInt(16)))
	assert.Equal(t, "/api/v1/ledger/remaining?currency=USD", (*reqs)[0].Path)
}

func TestDeleteAndSetBudget(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true,"data":{"budget":"1500","alert_threshold":"0","transactions":[]}}`)
	c := New(srv.URL, "tok", nil)

	require.NoError(t, c.DeleteExpense(context.Background(), 42))
	l, err := c.SetBudget(context.Background(), decimal.NewFromInt(1500), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, l.Budget.Equal(decimal.NewFromInt(1500)))

	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodDelete, (*reqs)[0].Method)
	assert.Equal(t, "/api/v1/ledger/transactions/42", (*reqs)[0].Path)
	assert.Equal(t, http.MethodPut, (*reqs)[1].Method)
	assert.Equal(t, "1500", (*reqs)[1].Body["budget"])
}

func TestUpdateProfile_OmitsEmptyFields(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `{"success":true,"data":{"username":"maria","name":"Ana","lastname":"Perez","full_name":"Ana Perez"}}`)

	u, err := New(srv.URL, "tok", nil).UpdateProfile(context.Background(), ProfileUpdate{Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Perez", u.FullName)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPatch, (*reqs)[0].Method)
	assert.Equal(t, "/api/v1/users/me", (*reqs)[0].Path)
	assert.Equal(t, map[string]any{"name": "Ana"}, (*reqs)[0].Body)
}
