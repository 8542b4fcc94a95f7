// Package config reads service settings from the environment, optionally seeded
// from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	PostgresURL string

	KafkaBrokers []string
	AuditTopic   string
	AuditGroupID string

	BusinessDayCutoverHour int
	BusinessLocation       *time.Location
	DashboardTopN          int

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	JWTSecret         string
	OrdersServiceURL  string
	CatalogServiceURL string

	OTLPEndpoint   string
	MigrationsPath string
	ServiceVersion string

	v *viper.Viper
}

type Option func(*viper.Viper)

// WithDefault overrides a default, e.g. a per-service PORT.
func WithDefault(key string, value any) Option {
	return func(v *viper.Viper) {
		v.SetDefault(key, value)
	}
}

// Load reads .env (if present) and the environment. Real environment variables
// win over .env entries.
func Load(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("AUDIT_TOPIC", "order.audit")
	v.SetDefault("AUDIT_GROUP_ID", "audit-worker")
	v.SetDefault("BUSINESS_DAY_CUTOVER_HOUR", 4)
	v.SetDefault("BUSINESS_TIMEZONE", "UTC")
	v.SetDefault("DASHBOARD_TOP_N", 5)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 100)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("SERVICE_VERSION", "1.0.0")
	for _, opt := range opts {
		opt(v)
	}

	cfg := &Config{
		Port:                   v.GetString("PORT"),
		PostgresURL:            v.GetString("POSTGRES_URL"),
		KafkaBrokers:           splitList(v.GetString("KAFKA_BROKERS")),
		AuditTopic:             v.GetString("AUDIT_TOPIC"),
		AuditGroupID:           v.GetString("AUDIT_GROUP_ID"),
		BusinessDayCutoverHour: v.GetInt("BUSINESS_DAY_CUTOVER_HOUR"),
		DashboardTopN:          v.GetInt("DASHBOARD_TOP_N"),
		OutboxPollInterval:     v.GetDuration("OUTBOX_POLL_INTERVAL"),
		OutboxBatchSize:        v.GetInt("OUTBOX_BATCH_SIZE"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		OrdersServiceURL:       v.GetString("ORDERS_SERVICE_URL"),
		CatalogServiceURL:      v.GetString("CATALOG_SERVICE_URL"),
		OTLPEndpoint:           v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MigrationsPath:         v.GetString("MIGRATIONS_PATH"),
		ServiceVersion:         v.GetString("SERVICE_VERSION"),
		v:                      v,
	}

	if cfg.BusinessDayCutoverHour < 0 || cfg.BusinessDayCutoverHour > 23 {
		return nil, fmt.Errorf("BUSINESS_DAY_CUTOVER_HOUR must be between 0 and 23, got %d", cfg.BusinessDayCutoverHour)
	}
	if cfg.OutboxPollInterval <= 0 {
		return nil, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive, got %q", v.GetString("OUTBOX_POLL_INTERVAL"))
	}

	loc, err := time.LoadLocation(v.GetString("BUSINESS_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	cfg.BusinessLocation = loc

	return cfg, nil
}

// Require reports the first of keys that has no value.
func (c *Config) Require(keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(c.v.GetString(key)) == "" {
			return fmt.Errorf("%s environment variable is required", key)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
