package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Rewards  RewardsConfig
	Policy   PolicyConfig
	Events   EventsConfig
	Telegram TelegramConfig
	Redis    RedisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port        string
	FrontendURL string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret         string
	AdminSecret       string
	// AllowUnsignedOpen trusts the uid sent to /api/open without launch
	// credentials. Local development only.
	AllowUnsignedOpen bool
	InitDataMaxAge    time.Duration
}

// RewardsConfig holds the immutable money parameters, all in minor units
type RewardsConfig struct {
	JoinBonus          int64
	ReferralBonus      int64
	MinWithdraw        int64
	MaxWithdraw        int64
	WithdrawAmount     int64
	DailyWithdrawLimit int
	Timezone           *time.Location
	QuotaResetInterval time.Duration
}

// PolicyConfig holds switches for behaviour that is a business decision
type PolicyConfig struct {
	RequireVerifiedDevice  bool
	SurfaceUnknownReferrer bool
	RefundOnReject         bool
}

// EventsConfig sizes the outbound notification queue
type EventsConfig struct {
	QueueSize int
	Workers   int
}

// TelegramConfig holds the bot credentials used for notifications
type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

// RedisConfig holds the optional event publisher settings
type RedisConfig struct {
	Addr     string
	Password string
	Channel  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var errs []string
	intVar := func(key string, def int64) int64 {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}

	// Money is configured in minor units: 1000 is 10.00
	minWithdraw := intVar("MIN_WITHDRAW", 5000)

	config := &Config{
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			DBName:     getEnv("DB_NAME", "referral_ledger"),
			SQLitePath: getEnv("SQLITE_PATH", "referral.db"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", ""),
		},
		App: AppConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			AdminSecret:       getEnv("ADMIN_SECRET", ""),
			AllowUnsignedOpen: boolVar("ALLOW_UNSIGNED_OPEN", false),
		},
		Rewards: RewardsConfig{
			JoinBonus:          intVar("JOIN_BONUS", 1000),
			ReferralBonus:      intVar("REF_BONUS", 500),
			MinWithdraw:        minWithdraw,
			MaxWithdraw:        intVar("MAX_WITHDRAW", 50000),
			WithdrawAmount:     intVar("WITHDRAW_AMOUNT", minWithdraw),
			DailyWithdrawLimit: int(intVar("DAILY_WITHDRAW_LIMIT", 1)),
		},
		Policy: PolicyConfig{
			RequireVerifiedDevice:  boolVar("REQUIRE_VERIFIED_DEVICE", true),
			SurfaceUnknownReferrer: boolVar("SURFACE_UNKNOWN_REFERRER", false),
			RefundOnReject:         boolVar("REFUND_ON_REJECT", false),
		},
		Events: EventsConfig{
			QueueSize: int(intVar("EVENT_QUEUE_SIZE", 256)),
			Workers:   int(intVar("EVENT_WORKERS", 2)),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			AdminChatID: intVar("ADMIN_CHAT_ID", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			Channel:  getEnv("REDIS_CHANNEL", "referral-events"),
		},
	}

	loc, err := time.LoadLocation(getEnv("QUOTA_TIMEZONE", "UTC"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("QUOTA_TIMEZONE: %v", err))
		loc = time.UTC
	}
	config.Rewards.Timezone = loc

	interval, err := time.ParseDuration(getEnv("QUOTA_RESET_INTERVAL", "1h"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("QUOTA_RESET_INTERVAL: %v", err))
	}
	config.Rewards.QuotaResetInterval = interval

	maxAge, err := time.ParseDuration(getEnv("INIT_DATA_MAX_AGE", "24h"))
	if err != nil {
		errs = append(errs, fmt.Sprintf("INIT_DATA_MAX_AGE: %v", err))
	}
	config.App.InitDataMaxAge = maxAge

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks required fields and the consistency of the reward parameters
func (c *Config) Validate() error {
	if c.App.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.App.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required")
	}
	if c.Telegram.BotToken == "" && !c.App.AllowUnsignedOpen {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required to verify launch credentials (set ALLOW_UNSIGNED_OPEN=true for local development)")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	return c.Rewards.Validate()
}

// Validate checks that the money parameters describe a usable ledger
func (r RewardsConfig) Validate() error {
	if r.JoinBonus < 0 || r.ReferralBonus < 0 {
		return fmt.Errorf("bonuses must not be negative")
	}
	if r.MinWithdraw <= 0 {
		return fmt.Errorf("MIN_WITHDRAW must be positive")
	}
	if r.MaxWithdraw < r.MinWithdraw {
		return fmt.Errorf("MAX_WITHDRAW (%d) is below MIN_WITHDRAW (%d)", r.MaxWithdraw, r.MinWithdraw)
	}
	if r.WithdrawAmount < r.MinWithdraw || r.WithdrawAmount > r.MaxWithdraw {
		return fmt.Errorf("WITHDRAW_AMOUNT (%d) must lie within [%d, %d]", r.WithdrawAmount, r.MinWithdraw, r.MaxWithdraw)
	}
	if r.DailyWithdrawLimit <= 0 {
		return fmt.Errorf("DAILY_WITHDRAW_LIMIT must be positive")
	}
	if r.QuotaResetInterval <= 0 {
		return fmt.Errorf("QUOTA_RESET_INTERVAL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: %q is not a boolean", key, value)
	}
	return b, nil
}
