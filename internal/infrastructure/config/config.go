package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
)

type Config struct {
	Server         sharedConfig.ServerConfig         `mapstructure:"server"`
	Database       sharedConfig.DatabaseConfig       `mapstructure:"database"`
	Logger         sharedConfig.LoggerConfig         `mapstructure:"logger"`
	Auth           sharedConfig.AuthConfig           `mapstructure:"auth"`
	Email          sharedConfig.EmailConfig          `mapstructure:"email"`
	Redis          sharedConfig.RedisConfig          `mapstructure:"redis"`
	Payment        sharedConfig.PaymentConfig        `mapstructure:"payment"`
	Webhook        sharedConfig.WebhookConfig        `mapstructure:"webhook"`
	Queue          sharedConfig.QueueConfig          `mapstructure:"queue"`
	Reconciliation sharedConfig.ReconciliationConfig `mapstructure:"reconciliation"`
	Kafka          sharedConfig.KafkaConfig          `mapstructure:"kafka"`
	Metrics        sharedConfig.MetricsConfig        `mapstructure:"metrics"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	v.SetEnvPrefix("PAYRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file, environment and defaults only
	}

	if env != "" && env != "default" {
		v.Set("server.mode", ModeForEnv(env))
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// ModeForEnv maps an environment name to a gin server mode.
func ModeForEnv(env string) string {
	switch strings.ToLower(env) {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}

// Validate checks struct-level constraints on the loaded configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Defaults returns a configuration populated only with default values.
func Defaults() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "payrecon_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "payrecon")
	v.SetDefault("auth.jwt.access_exp_minutes", 15)

	// Email defaults
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 1025)
	v.SetDefault("email.from_address", "payments@payrecon.local")
	v.SetDefault("email.from_name", "Payments")
	v.SetDefault("email.alert_cooldown", "30m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Payment defaults
	v.SetDefault("payment.default_currency", "INR")
	v.SetDefault("payment.razorpay.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("payment.razorpay.timeout_seconds", 15)

	// Webhook defaults
	v.SetDefault("webhook.dedupe_ttl", "24h")

	// Queue defaults
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", "5s")
	v.SetDefault("queue.visibility_timeout", "2m")
	v.SetDefault("queue.poll_interval", "1s")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.job_ttl", "24h")

	// Reconciliation defaults
	v.SetDefault("reconciliation.enabled", true)
	v.SetDefault("reconciliation.interval", "15m")
	v.SetDefault("reconciliation.recent_interval", "1h")
	v.SetDefault("reconciliation.lock_ttl", "30m")
	v.SetDefault("reconciliation.stale_after", "30m")
	v.SetDefault("reconciliation.recent_window_hours", 24)
	v.SetDefault("reconciliation.amount_epsilon", 0)
	v.SetDefault("reconciliation.batch_size", 200)
	v.SetDefault("reconciliation.auto_retry_failed", false)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "payment-audit")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
