package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is read from the environment. A .env file, when present, is loaded
// into the environment before Load runs.
type Config struct {
	Port            int           `mapstructure:"PORT"`
	ServiceName     string        `mapstructure:"SERVICE_NAME"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	OrderCacheTTL   time.Duration `mapstructure:"ORDER_CACHE_TTL"`
	KafkaBrokers    string        `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string        `mapstructure:"KAFKA_ORDER_TOPIC"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	LogFormat       string        `mapstructure:"LOG_FORMAT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var defaults = map[string]interface{}{
	"PORT":              8080,
	"SERVICE_NAME":      "storefront-api",
	"DATABASE_URL":      "",
	"DB_MAX_CONNS":      8,
	"REDIS_ADDR":        "",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"ORDER_CACHE_TTL":   "5m",
	"KAFKA_BROKERS":     "",
	"KAFKA_ORDER_TOPIC": "order.created",
	"LOG_LEVEL":         "info",
	"LOG_FORMAT":        "json",
	"SHUTDOWN_TIMEOUT":  "10s",
}

// Load reads the configuration from environment variables, falling back to
// defaults. DATABASE_URL is required.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("invalid DB_MAX_CONNS %d", c.DBMaxConns)
	}
	if c.OrderCacheTTL < 0 {
		return fmt.Errorf("invalid ORDER_CACHE_TTL %s", c.OrderCacheTTL)
	}
	return nil
}

// Brokers splits KAFKA_BROKERS on commas. An empty result disables publishing.
func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// CacheEnabled reports whether a Redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
