package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port" validate:"gt=0,lt=65536"`
	Mode           string   `mapstructure:"mode" validate:"oneof=debug release test"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host" validate:"required"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database" validate:"required"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret" validate:"required,min=16"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type EmailConfig struct {
	SMTPHost      string        `mapstructure:"smtp_host"`
	SMTPPort      int           `mapstructure:"smtp_port"`
	SMTPUser      string        `mapstructure:"smtp_user"`
	SMTPPassword  string        `mapstructure:"smtp_password"`
	FromAddress   string        `mapstructure:"from_address"`
	FromName      string        `mapstructure:"from_name"`
	OpsRecipients []string      `mapstructure:"ops_recipients"`
	// AlertCooldown limits review alerts to one per review type and order.
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StripeConfig holds credentials for one Stripe account.
type StripeConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SecretKey     string `mapstructure:"secret_key" validate:"required_if=Enabled true"`
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required_if=Enabled true"`
	// BackendURL overrides the Stripe API endpoint, used against stripe-mock.
	BackendURL string `mapstructure:"backend_url"`
}

// RazorpayConfig holds credentials for one Razorpay account.
type RazorpayConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	KeyID          string `mapstructure:"key_id" validate:"required_if=Enabled true"`
	KeySecret      string `mapstructure:"key_secret" validate:"required_if=Enabled true"`
	WebhookSecret  string `mapstructure:"webhook_secret" validate:"required_if=Enabled true"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type PaymentConfig struct {
	DefaultCurrency string         `mapstructure:"default_currency"`
	Stripe          StripeConfig   `mapstructure:"stripe"`
	Razorpay        RazorpayConfig `mapstructure:"razorpay"`
}

type WebhookConfig struct {
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
}

type QueueConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	Concurrency       int           `mapstructure:"concurrency" validate:"gte=1"`
	JobTTL            time.Duration `mapstructure:"job_ttl"`
}

type ReconciliationConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval"`
	RecentInterval    time.Duration `mapstructure:"recent_interval"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	StaleAfter        time.Duration `mapstructure:"stale_after"`
	RecentWindowHours int           `mapstructure:"recent_window_hours" validate:"gte=1"`
	// AmountEpsilon is the tolerated difference in minor currency units.
	AmountEpsilon   int64 `mapstructure:"amount_epsilon" validate:"gte=0"`
	BatchSize       int   `mapstructure:"batch_size" validate:"gte=1"`
	AutoRetryFailed bool  `mapstructure:"auto_retry_failed"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
