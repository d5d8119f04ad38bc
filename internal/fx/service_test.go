package fx

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type stubSource struct {
	rates domain.Rates
	err   error
	calls int
}

func (s *stubSource) FetchCurrentRates(_ context.Context) (domain.Rates, error) {
	s.calls++
	return s.rates, s.err
}

func newTestService(src rateSource) *RateService {
	return NewRateService(src, domain.DefaultRates(), 0, slog.Default(), nil)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		source       *stubSource
		wantErr      bool
		wantErrIs    error
		wantUSD      string
		wantFallback bool
	}{
		{
			name: "replaces table on success",
			source: &stubSource{rates: domain.Rates{
				domain.CurrencyUSD: decimal.RequireFromString("40"),
				domain.CurrencyEUR: decimal.RequireFromString("43.2"),
			}},
			wantUSD: "40",
		},
		{
			name:         "keeps defaults when source fails",
			source:       &stubSource{err: errors.New("connection refused")},
			wantErr:      true,
			wantUSD:      "36.30",
			wantFallback: true,
		},
		{
			name:         "rejects non-positive rate",
			source:       &stubSource{rates: domain.Rates{domain.CurrencyUSD: decimal.Zero}},
			wantErr:      true,
			wantErrIs:    domain.ErrInvalidRate,
			wantUSD:      "36.30",
			wantFallback: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(tc.source)

			err := svc.Refresh(ctx)
			if tc.wantErr {
				require.Error(t, err)
				if tc.wantErrIs != nil {
					require.ErrorIs(t, err, tc.wantErrIs)
				}
			} else {
				require.NoError(t, err)
			}

			st := svc.Status()
			assert.Equal(t, tc.wantFallback, st.Fallback)
			assert.True(t, st.Rates[domain.CurrencyUSD].Equal(decimal.RequireFromString(tc.wantUSD)),
				"usd: got %s, want %s", st.Rates[domain.CurrencyUSD], tc.wantUSD)
			assert.True(t, st.Rates[domain.CurrencyVES].Equal(decimal.NewFromInt(1)))
			if tc.wantErr {
				assert.NotEmpty(t, st.LastError)
			} else {
				assert.Empty(t, st.LastError)
				assert.False(t, st.UpdatedAt.IsZero())
			}
		})
	}
}

func TestRefresh_FailureKeepsLastKnown(t *testing.T) {
	src := &stubSource{rates: domain.Rates{domain.CurrencyUSD: decimal.RequireFromString("41")}}
	svc := newTestService(src)
	require.NoError(t, svc.Refresh(context.Background()))

	src.rates, src.err = nil, errors.New("timeout")
	require.Error(t, svc.Refresh(context.Background()))

	assert.True(t, svc.Current()[domain.CurrencyUSD].Equal(decimal.RequireFromString("41")))
	assert.False(t, svc.Status().Fallback)
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	svc := newTestService(&stubSource{})

	rates := svc.Current()
	rates[domain.CurrencyUSD] = decimal.NewFromInt(999)

	assert.True(t, svc.Current()[domain.CurrencyUSD].Equal(decimal.RequireFromString("36.30")))
}

func TestGetRate(t *testing.T) {
	svc := newTestService(&stubSource{})
	ctx := context.Background()

	tests := []struct {
		name     string
		currency domain.Currency
		wantRate string
		wantErr  error
	}{
		{name: "USD", currency: domain.CurrencyUSD, wantRate: "36.30"},
		{name: "EUR", currency: domain.CurrencyEUR, wantRate: "39.50"},
		{name: "base is identity", currency: domain.CurrencyVES, wantRate: "1"},
		{name: "invalid currency", currency: domain.Currency("XYZ"), wantErr: domain.ErrInvalidCurrency},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := svc.GetRate(ctx, tc.currency)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, domain.BaseCurrency, quote.BaseCurrency)
			assert.True(t, quote.Rate.Equal(decimal.RequireFromString(tc.wantRate)),
				"rate: got %s, want %s", quote.Rate, tc.wantRate)
		})
	}
}

func TestConvert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&stubSource{rates: domain.Rates{
		domain.CurrencyUSD: decimal.RequireFromString("40"),
		domain.CurrencyEUR: decimal.RequireFromString("50"),
	}})
	require.NoError(t, svc.Refresh(ctx))

	tests := []struct {
		name       string
		amount     string
		from       domain.Currency
		to         domain.Currency
		wantResult string
		wantBase   string
		wantErr    error
	}{
		{name: "USD to base", amount: "10", from: domain.CurrencyUSD, to: domain.CurrencyVES, wantResult: "400", wantBase: "400"},
		{name: "base to USD", amount: "640", from: domain.CurrencyVES, to: domain.CurrencyUSD, wantResult: "16", wantBase: "640"},
		{name: "USD to EUR via base", amount: "10", from: domain.CurrencyUSD, to: domain.CurrencyEUR, wantResult: "8", wantBase: "400"},
		{name: "same currency passthrough", amount: "5", from: domain.CurrencyEUR, to: domain.CurrencyEUR, wantResult: "5", wantBase: "250"},
		{name: "zero amount", amount: "0", from: domain.CurrencyUSD, to: domain.CurrencyVES, wantErr: domain.ErrInvalidAmount},
		{name: "negative amount", amount: "-1", from: domain.CurrencyUSD, to: domain.CurrencyVES, wantErr: domain.ErrInvalidAmount},
		{name: "invalid currency", amount: "1", from: domain.CurrencyUSD, to: domain.Currency("GBP"), wantErr: domain.ErrInvalidCurrency},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv, err := svc.Convert(ctx, decimal.RequireFromString(tc.amount), tc.from, tc.to)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.True(t, conv.Result.Equal(decimal.RequireFromString(tc.wantResult)),
				"result: got %s, want %s", conv.Result, tc.wantResult)
			assert.True(t, conv.ValueInBase.Equal(decimal.RequireFromString(tc.wantBase)),
				"base: got %s, want %s", conv.ValueInBase, tc.wantBase)
		})
	}
}
