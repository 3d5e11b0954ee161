// Package config содержит логику чтения конфигурации сервиса синхронизации заказов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации сервиса синхронизации заказов.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	ShopName                 string   `env:"SHOPIFY_SHOP_NAME"`
	ShopifyAccessToken       string   `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPISecret         string   `env:"SHOPIFY_API_SECRET"`
	ShopifyScopes            []string `env:"SHOPIFY_SCOPES" envSeparator:","`
	ShopifyAPIVersion        string   `env:"SHOPIFY_API_VERSION" envDefault:"2024-01"`
	ShopifyWebhookSecret     string   `env:"SHOPIFY_WEBHOOK_SECRET"`
	ShopifyRequestsPerSecond float64  `env:"SHOPIFY_REQUESTS_PER_SECOND" envDefault:"2"`
	ShopifyMaxRetries        int      `env:"SHOPIFY_MAX_RETRIES" envDefault:"3"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:","`
	RedisAddr     string   `env:"REDIS_ADDR"`
	LogLevel      string   `env:"LOG_LEVEL" envDefault:"info"`
	WMSMaxRetries int      `env:"WMS_MAX_RETRIES" envDefault:"3"`
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
	envShopName := cfg.ShopName

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.ShopName, "s", "", "shopify shop name")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envShopName != "" {
		cfg.ShopName = envShopName
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
	if c.JWTExpiry <= 0 {
		return errors.New("JWT_EXPIRY must be positive")
	}
	if c.ShopifyMaxRetries < 0 {
		return errors.New("SHOPIFY_MAX_RETRIES must not be negative")
	}
	if c.WMSMaxRetries < 0 {
		return errors.New("WMS_MAX_RETRIES must not be negative")
	}
	return nil
}

// WebhookSecret возвращает секрет проверки подписи вебхуков.
// Без отдельного секрета используется секрет приложения витрины.
func (c *Config) WebhookSecret() string {
	if c.ShopifyWebhookSecret != "" {
		return c.ShopifyWebhookSecret
	}
	return c.ShopifyAPISecret
}

// ShopifyConfigured сообщает, заданы ли параметры доступа к API витрины.
func (c *Config) ShopifyConfigured() bool {
	return c.ShopName != "" && c.ShopifyAccessToken != ""
}
