package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
	"github.com/Reymilan15/milos-cuentas/internal/logging"
)

const officialRatePath = "/v1/dolares/oficial"

// DolarAPIClient fetches the official USD/VES average from a DolarAPI
// compatible endpoint. EUR is derived from USD with a fixed factor.
type DolarAPIClient struct {
	baseURL    string
	eurFactor  decimal.Decimal
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewDolarAPIClient(baseURL string, timeout time.Duration, eurFactor decimal.Decimal) *DolarAPIClient {
	return &DolarAPIClient{
		baseURL:   baseURL,
		eurFactor: eurFactor,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "dolarapi",
			MaxRequests: 1,
			Interval:    10 * time.Minute,
			Timeout:     5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("rate source circuit changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

type dolarAPIResponse struct {
	Promedio           decimal.NullDecimal `json:"promedio"`
	FechaActualizacion string              `json:"fechaActualizacion"`
}

func (c *DolarAPIClient) FetchCurrentRates(ctx context.Context) (domain.Rates, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchOfficial(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("FetchCurrentRates: %w", err)
	}

	usd := res.(decimal.Decimal)
	return domain.Rates{
		domain.CurrencyVES: decimal.NewFromInt(1),
		domain.CurrencyUSD: usd,
		domain.CurrencyEUR: usd.Mul(c.eurFactor),
	}, nil
}

func (c *DolarAPIClient) fetchOfficial(ctx context.Context) (decimal.Decimal, error) {
	log := logging.FromContext(ctx)

	url := c.baseURL + officialRatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetchOfficial: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetchOfficial: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("rate source response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("fetchOfficial: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload dolarAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("fetchOfficial: decode: %w", err)
	}
	if !payload.Promedio.Valid || !payload.Promedio.Decimal.IsPositive() {
		return decimal.Zero, fmt.Errorf("fetchOfficial: promedio missing or not positive: %w", domain.ErrInvalidRate)
	}

	return payload.Promedio.Decimal, nil
}
