package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"partnershib-bot/internal/ledger"
)

type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"PartnerShib"`
	BotToken string `env:"TELEGRAM_BOT_TOKEN" validate:"required"`

	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Ledger   LedgerConfig
	Links    LinksConfig
	Reminder ReminderConfig

	// TapsPerSecond throttles callback floods per user before they reach the ledger.
	TapsPerSecond float64 `env:"TAPS_PER_SECOND" envDefault:"3" validate:"gt=0"`
	NotifyWorkers int     `env:"NOTIFY_WORKERS" envDefault:"4" validate:"gt=0"`
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL          string        `env:"DATABASE_URL"`
	User         string        `env:"DB_USER" envDefault:"postgres"`
	Password     string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name         string        `env:"DB_NAME" envDefault:"partnershib_bot"`
	Host         string        `env:"DB_HOST" envDefault:"localhost"`
	Port         string        `env:"DB_PORT" envDefault:"5432"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20" validate:"gt=0"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5" validate:"gte=0"`
	Timeout      time.Duration `env:"STORE_TIMEOUT" envDefault:"5s" validate:"gt=0"`
	MaxRetries   uint64        `env:"STORE_MAX_RETRIES" envDefault:"3"`
}

func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port)
}

type RedisConfig struct {
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     string        `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	DedupTTL time.Duration `env:"REDIS_DEDUP_TTL" envDefault:"10m" validate:"gt=0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
	OutputPath string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

type MetricsConfig struct {
	Enabled      bool     `env:"METRICS_ENABLED" envDefault:"true"`
	Addr         string   `env:"METRICS_ADDR" envDefault:":9090"`
	AllowedCIDRs []string `env:"METRICS_ALLOWED_CIDRS" envSeparator:"," envDefault:"127.0.0.0/8,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,::1/128"`
}

// LedgerConfig allows deployment-time overrides of the reward policy.
type LedgerConfig struct {
	MaxTapsPerDay           int           `env:"MAX_TAPS_PER_DAY" validate:"gt=0"`
	TapReward               int64         `env:"TAP_REWARD" validate:"gt=0"`
	InitialMiningPower      int64         `env:"INITIAL_MINING_POWER" validate:"gt=0"`
	TotalMiningTokens       int64         `env:"TOTAL_MINING_TOKENS" validate:"gt=0"`
	BonusTokens             int64         `env:"BONUS_TOKENS" validate:"gte=0"`
	TelegramTwitterBonus    int64         `env:"TELEGRAM_TWITTER_BONUS" validate:"gte=0"`
	MaxReferralUses         int           `env:"MAX_REFERRAL_USES" validate:"gte=0"`
	ReferralBonusPercentage string        `env:"REFERRAL_BONUS_PERCENTAGE" validate:"required,numeric"`
	TapWindow               time.Duration `env:"TAP_WINDOW" validate:"gt=0"`
}

// Policy converts the config into the ledger's reward policy.
func (c LedgerConfig) Policy() (ledger.Policy, error) {
	pct, err := decimal.NewFromString(c.ReferralBonusPercentage)
	if err != nil {
		return ledger.Policy{}, fmt.Errorf("invalid REFERRAL_BONUS_PERCENTAGE: %w", err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1)) {
		return ledger.Policy{}, fmt.Errorf("REFERRAL_BONUS_PERCENTAGE must be within [0, 1], got %s", pct)
	}

	return ledger.Policy{
		MaxTapsPerDay:           c.MaxTapsPerDay,
		TapReward:               c.TapReward,
		InitialMiningPower:      c.InitialMiningPower,
		TotalMiningTokens:       c.TotalMiningTokens,
		BonusTokens:             c.BonusTokens,
		TelegramTwitterBonus:    c.TelegramTwitterBonus,
		MaxReferralUses:         c.MaxReferralUses,
		ReferralBonusPercentage: pct,
		TapWindow:               c.TapWindow,
	}, nil
}

type LinksConfig struct {
	TelegramGroup string `env:"TELEGRAM_GROUP_URL" envDefault:"https://www.t.me/shibariumpartnershib" validate:"url"`
	Twitter       string `env:"TWITTER_URL" envDefault:"https://x.com/partnershib24" validate:"url"`
}

type ReminderConfig struct {
	Enabled  bool   `env:"REMINDER_ENABLED" envDefault:"true"`
	Schedule string `env:"REMINDER_SCHEDULE" envDefault:"@every 15m" validate:"required"`
	// Lookback bounds how far back a reopened window is still worth a reminder.
	Lookback time.Duration `env:"REMINDER_LOOKBACK" envDefault:"1h" validate:"gt=0"`
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return Parse()
}

// Parse builds the config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{Ledger: defaultLedgerConfig()}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.Ledger.Policy(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxTapsPerDay:           ledger.MaxTapsPerDay,
		TapReward:               ledger.TapReward,
		InitialMiningPower:      ledger.InitialMiningPower,
		TotalMiningTokens:       ledger.TotalMiningTokens,
		BonusTokens:             ledger.BonusTokens,
		TelegramTwitterBonus:    ledger.TelegramTwitterBonus,
		MaxReferralUses:         ledger.MaxReferralUses,
		ReferralBonusPercentage: ledger.ReferralBonusPercentage,
		TapWindow:               ledger.TapWindow,
	}
}
