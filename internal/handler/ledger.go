package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/ledger"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
	"github.com/Reymilan15/milos-cuentas/internal/service"
)

type ledgerService interface {
	View(ctx context.Context, userID uuid.UUID) (*service.LedgerView, error)
	AddTransaction(ctx context.Context, userID uuid.UUID, req ledger.AddRequest) (*domain.Transaction, error)
	RemoveTransaction(ctx context.Context, userID uuid.UUID, id int64) error
	SetBudget(ctx context.Context, userID uuid.UUID, ceiling, threshold decimal.Decimal) (*service.LedgerView, error)
	Remaining(ctx context.Context, userID uuid.UUID, display domain.Currency) (decimal.Decimal, error)
	Reset(ctx context.Context, userID uuid.UUID) error
}

type LedgerHandler struct {
	ledgers ledgerService
}

func NewLedgerHandler(ledgers ledgerService) *LedgerHandler {
	return &LedgerHandler{ledgers: ledgers}
}

type setBudgetRequest struct {
	Budget         lenientDecimal `json:"budget"`
	AlertThreshold lenientDecimal `json:"alert_threshold"`
}

type addTransactionRequest struct {
	Description string      `json:"description"`
	Amount      amountValue `json:"amount"`
	Currency    string      `json:"currency"`
	Confirm     bool        `json:"confirm"`
}

func (r addTransactionRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "required"})
	}
	switch {
	case !r.Amount.set:
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	case !r.Amount.valid:
		errs = append(errs, FieldError{Field: "amount", Message: "must be a number"})
	case !r.Amount.IsPositive():
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}
	if r.Currency != "" {
		if _, err := domain.ParseCurrency(r.Currency); err != nil {
			errs = append(errs, FieldError{Field: "currency", Message: "must be VES, USD, or EUR"})
		}
	}
	return errs
}

type remainingResponse struct {
	Currency  domain.Currency `json:"currency"`
	Remaining decimal.Decimal `json:"remaining"`
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	view, err := h.ledgers.View(r.Context(), userID)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to load ledger", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, view)
}

func (h *LedgerHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	view, err := h.ledgers.SetBudget(r.Context(), userID, req.Budget.Decimal, req.AlertThreshold.Decimal)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to set budget", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, view)
}

func (h *LedgerHandler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req addTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	currency := domain.BaseCurrency
	if req.Currency != "" {
		currency, _ = domain.ParseCurrency(req.Currency)
	}

	tx, err := h.ledgers.AddTransaction(r.Context(), userID, ledger.AddRequest{
		Description: req.Description,
		Amount:      req.Amount.Decimal,
		Currency:    currency,
		Confirmed:   req.Confirm,
	})
	if err != nil {
		logging.FromContext(r.Context()).Info("transaction rejected", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, tx)
}

func (h *LedgerHandler) RemoveTransaction(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondAppError(w, ErrTransactionNotFound, nil)
		return
	}

	if err := h.ledgers.RemoveTransaction(r.Context(), userID, id); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]int64{"id": id})
}

func (h *LedgerHandler) Remaining(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	currency := domain.BaseCurrency
	if raw := r.URL.Query().Get("currency"); raw != "" {
		c, err := domain.ParseCurrency(raw)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "currency", Message: "must be VES, USD, or EUR"}})
			return
		}
		currency = c
	}

	remaining, err := h.ledgers.Remaining(r.Context(), userID, currency)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, remainingResponse{Currency: currency, Remaining: remaining})
}

func (h *LedgerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, appErr := currentUser(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.ledgers.Reset(r.Context(), userID); err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]bool{"reset": true})
}
