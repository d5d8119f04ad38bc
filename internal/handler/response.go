package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RequestIDHeader carries the per-request trace id. The tracing middleware
// sets it on the response before any handler runs, so error envelopes can
// echo it.
const RequestIDHeader = "X-Request-ID"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type thresholdDetails struct {
	Threshold      string `json:"threshold"`
	ProjectedSpent string `json:"projected_spent"`
	ValueInBase    string `json:"value_in_base"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Details:   details,
			RequestID: w.Header().Get(RequestIDHeader),
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var warning *domain.ThresholdWarning
	if errors.As(err, &warning) {
		RespondAppError(w, ErrConfirmationRequired, thresholdDetails{
			Threshold:      warning.Threshold.String(),
			ProjectedSpent: warning.ProjectedSpent.String(),
			ValueInBase:    warning.ValueInBase.String(),
		})
		return
	}

	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrInvalidSnapshot), errors.Is(err, domain.ErrPersistence):
		slog.Error("ledger unavailable", "error", err)
		appErr = ErrLedgerUnavailable
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrTransactionNotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrConfirmationRequired):
		appErr = ErrConfirmationRequired
	case errors.Is(err, domain.ErrInvalidDescription):
		appErr = ErrInvalidDescription
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, domain.ErrRateUnavailable), errors.Is(err, domain.ErrInvalidRate):
		appErr = ErrRateUnavailable
	case errors.Is(err, domain.ErrUserExists):
		appErr = ErrUserExists
	case errors.Is(err, domain.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidRequest):
		appErr = ErrInvalidRequest
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}

// decodeJSON rejects unknown fields and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}
