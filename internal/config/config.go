package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"local"`
	Log       Log       `yaml:"log"`
	Postgres  Postgres  `yaml:"postgres"`
	Server    Server    `yaml:"server"`
	App       App       `yaml:"app"`
	Stripe    Stripe    `yaml:"stripe"`
	Mail      Mail      `yaml:"mail"`
	Redis     Redis     `yaml:"redis"`
	Repair    Repair    `yaml:"repair"`
	Admin     Admin     `yaml:"admin"`
	Outbox    Outbox    `yaml:"outbox"`
	RateLimit RateLimit `yaml:"ratelimit"`
}

type Log struct {
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env-default:"5"`
	MaxAgeDays int    `yaml:"max_age_days" env-default:"14"`
}

type Postgres struct {
	Username        string        `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password        string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host            string        `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port            string        `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Database        string        `yaml:"db" env:"POSTGRES_DB" env-required:"true"`
	SSLMode         string        `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"50"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"1m"`
}

// DSN renders the lib/pq connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type Server struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"PORT" env-default:"8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type App struct {
	BaseURL     string `yaml:"base_url" env:"APP_BASE_URL" env-default:"http://localhost:8080"`
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
}

type Stripe struct {
	SecretKey              string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY" env-required:"true"`
	WebhookSecret          string        `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	ConnectedWebhookSecret string        `yaml:"connected_webhook_secret" env:"STRIPE_CONNECTED_WEBHOOK_SECRET"`
	Currency               string        `yaml:"currency" env-default:"usd"`
	Timeout                time.Duration `yaml:"timeout" env-default:"15s"`
	MaxRetries             int64         `yaml:"max_retries" env-default:"1"`
	// APIURL overrides the provider endpoint; empty means the live API.
	APIURL string `yaml:"api_url" env:"STRIPE_API_URL"`
}

type Mail struct {
	Host       string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port       int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username   string `yaml:"username" env:"SMTP_USERNAME"`
	Password   string `yaml:"password" env:"SMTP_PASSWORD"`
	Sender     string `yaml:"sender" env:"SMTP_SENDER" env-default:"no-reply@tajer.local"`
	SenderName string `yaml:"sender_name" env-default:"Tajer"`
}

type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	URL     string `yaml:"url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
}

type Repair struct {
	DepositAmount         string `yaml:"deposit_amount" env:"REPAIR_DEPOSIT_AMOUNT" env-default:"20.00"`
	PlatformFeePercent    int    `yaml:"platform_fee_percent" env-default:"10"`
	ProviderPayoutPercent int    `yaml:"provider_payout_percent" env-default:"90"`
	JobCodeAttempts       int    `yaml:"job_code_attempts" env-default:"5"`
}

// Deposit parses DepositAmount.
func (r Repair) Deposit() (decimal.Decimal, error) {
	return decimal.NewFromString(r.DepositAmount)
}

type Admin struct {
	JWTSecret string        `yaml:"jwt_secret" env:"ADMIN_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"1h"`
}

type Outbox struct {
	Interval    time.Duration `yaml:"interval" env-default:"5s"`
	BatchSize   int           `yaml:"batch_size" env-default:"20"`
	MaxAttempts int           `yaml:"max_attempts" env-default:"5"`
	Lease       time.Duration `yaml:"lease" env-default:"2m"`
}

type RateLimit struct {
	LookupLimit int           `yaml:"lookup_limit" env-default:"10"`
	Window      time.Duration `yaml:"window" env-default:"1m"`
}

// Load reads the YAML file named by CONFIG_PATH and overlays the
// environment. A .env file in the working directory is loaded first when
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		return nil, errors.New("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	deposit, err := c.Repair.Deposit()
	if err != nil {
		return fmt.Errorf("invalid repair.deposit_amount: %w", err)
	}
	if !deposit.IsPositive() {
		return errors.New("repair.deposit_amount must be positive")
	}

	fee, payout := c.Repair.PlatformFeePercent, c.Repair.ProviderPayoutPercent
	if fee < 0 || payout < 0 || fee+payout > 100 {
		return fmt.Errorf("invalid split: fee %d%% + payout %d%% must stay within 100%%", fee, payout)
	}

	if c.Repair.JobCodeAttempts < 1 {
		return errors.New("repair.job_code_attempts must be at least 1")
	}

	return nil
}
