// Package config содержит логику чтения конфигурации сервиса EcoDeli.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultInvoiceDueDays = 30
)

var defaultTaxRate = decimal.RequireFromString("0.20")

// Config содержит параметры конфигурации сервиса EcoDeli.
type Config struct {
	RunAddress      string          `env:"RUN_ADDRESS"`
	DatabaseURI     string          `env:"DATABASE_URI"`
	NotifierAddress string          `env:"NOTIFIER_ADDRESS"`
	RedisAddress    string          `env:"REDIS_ADDRESS"`
	AuthSecret      string          `env:"AUTH_SECRET"`
	TaxRate         decimal.Decimal `env:"TAX_RATE"`
	InvoiceDueDays  int             `env:"INVOICE_DUE_DAYS"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg
	_, taxFromEnv := os.LookupEnv("TAX_RATE")

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NotifierAddress, "n", "", "notification webhook base address")
	flag.StringVar(&cfg.RedisAddress, "q", "", "redis address for the notification queue")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret used to sign auth tokens")
	flag.TextVar(&cfg.TaxRate, "t", defaultTaxRate, "tax rate applied to invoices")
	flag.IntVar(&cfg.InvoiceDueDays, "due", defaultInvoiceDueDays, "invoice payment term in days")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.NotifierAddress != "" {
		cfg.NotifierAddress = fromEnv.NotifierAddress
	}
	if fromEnv.RedisAddress != "" {
		cfg.RedisAddress = fromEnv.RedisAddress
	}
	if fromEnv.AuthSecret != "" {
		cfg.AuthSecret = fromEnv.AuthSecret
	}
	if taxFromEnv {
		cfg.TaxRate = fromEnv.TaxRate
	}
	if fromEnv.InvoiceDueDays != 0 {
		cfg.InvoiceDueDays = fromEnv.InvoiceDueDays
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return errors.New("tax rate must be in [0, 1)")
	}
	if c.InvoiceDueDays <= 0 {
		return errors.New("invoice due days must be positive")
	}
	return nil
}
