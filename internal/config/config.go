package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/Reymilan15/milos-cuentas/internal/domain"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port        int           `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	RatesAPIURL          string        `env:"RATES_API_URL" envDefault:"https://ve.dolarapi.com"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL" envDefault:"1h"`
	RatesTimeout         time.Duration `env:"RATES_TIMEOUT" envDefault:"5s"`
	EURFactor            string        `env:"EUR_FACTOR" envDefault:"1.08"`
	DefaultRateUSD       string        `env:"DEFAULT_RATE_USD" envDefault:"36.30"`
	DefaultRateEUR       string        `env:"DEFAULT_RATE_EUR" envDefault:"39.50"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"ledger.updated"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`
	// TrustedProxies lists the addresses or CIDRs whose X-Forwarded-For is
	// believed. Empty means the peer address is always used.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.DefaultRates(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.EURMultiplier(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. A bare address is taken as a
// single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DefaultRates builds the fallback table used until the first successful
// refresh.
func (c *Config) DefaultRates() (domain.Rates, error) {
	usd, err := decimal.NewFromString(c.DefaultRateUSD)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_RATE_USD: %w", err)
	}
	eur, err := decimal.NewFromString(c.DefaultRateEUR)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_RATE_EUR: %w", err)
	}

	rates := domain.Rates{domain.CurrencyUSD: usd, domain.CurrencyEUR: eur}.Clone()
	if err := rates.Validate(); err != nil {
		return nil, fmt.Errorf("default rates: %w", err)
	}
	return rates, nil
}

func (c *Config) EURMultiplier() (decimal.Decimal, error) {
	f, err := decimal.NewFromString(c.EURFactor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("EUR_FACTOR: %w", err)
	}
	if !f.IsPositive() {
		return decimal.Zero, fmt.Errorf("EUR_FACTOR: %w", domain.ErrInvalidRate)
	}
	return f, nil
}
