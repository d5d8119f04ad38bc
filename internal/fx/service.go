package fx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/metrics"
)

type rateSource interface {
	FetchCurrentRates(ctx context.Context) (domain.Rates, error)
}

type Quote struct {
	Currency     domain.Currency
	BaseCurrency domain.Currency
	Rate         decimal.Decimal
	UpdatedAt    time.Time
}

type Conversion struct {
	Amount      decimal.Decimal
	From        domain.Currency
	To          domain.Currency
	Result      decimal.Decimal
	ValueInBase decimal.Decimal
	FromRate    decimal.Decimal
	ToRate      decimal.Decimal
}

type Status struct {
	Rates     domain.Rates
	UpdatedAt time.Time
	LastError string
	Fallback  bool
}

// RateService keeps the active rate table. It starts from defaults and is
// replaced whenever the source answers; failed refreshes keep the last-known
// table.
type RateService struct {
	source   rateSource
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	rates     domain.Rates
	updatedAt time.Time
	lastErr   error
	fetched   bool
}

func NewRateService(source rateSource, defaults domain.Rates, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *RateService {
	return &RateService{
		source:   source,
		interval: interval,
		logger:   logger,
		metrics:  m,
		rates:    defaults.Clone(),
	}
}

func (s *RateService) Current() domain.Rates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates.Clone()
}

func (s *RateService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Rates:     s.rates.Clone(),
		UpdatedAt: s.updatedAt,
		Fallback:  !s.fetched,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *RateService) Refresh(ctx context.Context) error {
	rates, err := s.source.FetchCurrentRates(ctx)
	if err == nil {
		rates = rates.Clone()
		err = rates.Validate()
	}
	s.metrics.RateRefresh(err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = err
		return fmt.Errorf("Refresh: %w", err)
	}

	s.rates = rates
	s.updatedAt = time.Now().UTC()
	s.lastErr = nil
	s.fetched = true
	for c, v := range rates {
		s.metrics.SetRate(string(c), v.InexactFloat64())
	}
	return nil
}

// Start refreshes immediately and then on every tick until ctx is done.
func (s *RateService) Start(ctx context.Context) {
	s.logger.Info("rate refresher started", "interval", s.interval)

	s.refreshOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rate refresher stopped")
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		}
	}
}

func (s *RateService) refreshOnce(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("rate refresh failed, keeping last known rates", "error", err)
		return
	}
	usd := s.Current()[domain.CurrencyUSD]
	s.logger.Info("rates updated", "usd", usd.String())
}

func (s *RateService) GetRate(_ context.Context, c domain.Currency) (*Quote, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("GetRate: %s: %w", c, domain.ErrInvalidCurrency)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.rates[c]
	if !ok || !rate.IsPositive() {
		return nil, fmt.Errorf("GetRate: %s: %w", c, domain.ErrRateUnavailable)
	}
	return &Quote{
		Currency:     c,
		BaseCurrency: domain.BaseCurrency,
		Rate:         rate,
		UpdatedAt:    s.updatedAt,
	}, nil
}

// Convert goes through the base currency: amount*rate(from)/rate(to).
func (s *RateService) Convert(ctx context.Context, amount decimal.Decimal, from, to domain.Currency) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}

	fromQuote, err := s.GetRate(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}
	toQuote, err := s.GetRate(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("Convert: %w", err)
	}

	base := amount.Mul(fromQuote.Rate)
	return &Conversion{
		Amount:      amount,
		From:        from,
		To:          to,
		Result:      base.Div(toQuote.Rate),
		ValueInBase: base,
		FromRate:    fromQuote.Rate,
		ToRate:      toQuote.Rate,
	}, nil
}
