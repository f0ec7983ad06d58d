// Package config содержит логику чтения конфигурации сервиса клубных привилегий.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса клубных привилегий.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	CatalogAddress string `env:"CATALOG_ADDRESS"`
	KafkaBrokers   string `env:"KAFKA_BROKERS"`
	AuthSecret     string `env:"AUTH_SECRET"`

	KafkaTopic      string        `env:"KAFKA_TOPIC" envDefault:"clubperks.redemptions"`
	LockTimeout     time.Duration `env:"LOCK_TIMEOUT" envDefault:"2s"`
	CodeTTL         time.Duration `env:"CODE_TTL" envDefault:"720h"`
	CatalogInterval time.Duration `env:"CATALOG_INTERVAL" envDefault:"1m"`
	SweepSchedule   string        `env:"SWEEP_SCHEDULE" envDefault:"0 */10 * * * *"`
	RelaySchedule   string        `env:"RELAY_SCHEDULE" envDefault:"*/5 * * * * *"`
}

// Brokers возвращает список адресов брокеров Kafka.
func (c *Config) Brokers() []string {
	var res []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			res = append(res, b)
		}
	}
	return res
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envCatalogAddress := cfg.CatalogAddress
	envKafkaBrokers := cfg.KafkaBrokers
	envAuthSecret := cfg.AuthSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.CatalogAddress, "c", "", "offer catalog address")
	flag.StringVar(&cfg.KafkaBrokers, "k", "", "comma separated Kafka brokers")
	flag.StringVar(&cfg.AuthSecret, "s", "", "access token signing secret")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envCatalogAddress != "" {
		cfg.CatalogAddress = envCatalogAddress
	}
	if envKafkaBrokers != "" {
		cfg.KafkaBrokers = envKafkaBrokers
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", cfg.LockTimeout)
	}
	if cfg.CodeTTL <= 0 {
		return nil, fmt.Errorf("CODE_TTL must be positive, got %s", cfg.CodeTTL)
	}

	return cfg, nil
}
