package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/fx"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

type rateService interface {
	Status() fx.Status
	Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (*fx.Conversion, error)
}

type RatesHandler struct {
	rates rateService
}

func NewRatesHandler(rates rateService) *RatesHandler {
	return &RatesHandler{rates: rates}
}

type ratesResponse struct {
	BaseCurrency domain.Currency `json:"base_currency"`
	Rates        domain.Rates    `json:"rates"`
	UpdatedAt    *time.Time      `json:"updated_at"`
	Fallback     bool            `json:"fallback"`
	LastError    string          `json:"last_error,omitempty"`
}

type conversionResponse struct {
	Amount      string `json:"amount"`
	From        string `json:"from"`
	To          string `json:"to"`
	Result      string `json:"result"`
	ValueInBase string `json:"value_in_base"`
	Timestamp   string `json:"timestamp"`
}

func (h *RatesHandler) List(w http.ResponseWriter, r *http.Request) {
	st := h.rates.Status()

	resp := ratesResponse{
		BaseCurrency: domain.BaseCurrency,
		Rates:        st.Rates,
		Fallback:     st.Fallback,
		LastError:    st.LastError,
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = &st.UpdatedAt
	}
	RespondSuccess(w, http.StatusOK, resp)
}

func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, from, to, fields := validateConvertParams(q.Get("amount"), q.Get("from"), q.Get("to"))
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	conv, err := h.rates.Convert(r.Context(), amount, from, to)
	if err != nil {
		logging.FromContext(r.Context()).Warn("conversion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, conversionResponse{
		Amount:      conv.Amount.String(),
		From:        string(conv.From),
		To:          string(conv.To),
		Result:      conv.Result.StringFixed(2),
		ValueInBase: conv.ValueInBase.StringFixed(2),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func validateConvertParams(amount, from, to string) (decimal.Decimal, domain.Currency, domain.Currency, []FieldError) {
	var errs []FieldError

	amt, err := decimal.NewFromString(amount)
	switch {
	case amount == "":
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	case err != nil:
		errs = append(errs, FieldError{Field: "amount", Message: "must be a number"})
	case !amt.IsPositive():
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than zero"})
	}

	fromCur, err := domain.ParseCurrency(from)
	if from == "" {
		errs = append(errs, FieldError{Field: "from", Message: "required"})
	} else if err != nil {
		errs = append(errs, FieldError{Field: "from", Message: "must be VES, USD, or EUR"})
	}

	toCur := domain.BaseCurrency
	if to != "" {
		toCur, err = domain.ParseCurrency(to)
		if err != nil {
			errs = append(errs, FieldError{Field: "to", Message: "must be VES, USD, or EUR"})
		}
	}

	return amt, fromCur, toCur, errs
}
