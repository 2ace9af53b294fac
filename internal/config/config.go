package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "villabook.db"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultJWTTTL            = "24h"
	defaultCurrency          = "usd"
	defaultSMTPPort          = "587"
	defaultSMTPFrom          = "bookings@villabook.local"
	defaultSMTPFromName      = "Villabook"
	defaultCRMTimeout        = "10s"
	defaultRateLimitCapacity = "10"
	defaultRateLimitRefill   = "6s"
	defaultDedupeTTL         = "72h"
	defaultCompleteInterval  = "1h"
	defaultReminderInterval  = "24h"
	defaultBalanceDueDays    = "14"
	defaultCRMSyncInterval   = "15m"
	defaultDBMaxIdle         = "10"
	defaultDBMaxOpen         = "100"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Enabled reports whether outbound mail should go through SMTP.
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

type CRMConfig struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

func (c CRMConfig) Enabled() bool {
	return c.APIURL != ""
}

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
}

type JobsConfig struct {
	Enabled          bool
	CompleteInterval time.Duration
	ReminderInterval time.Duration
	BalanceDueDays   int
	CRMSyncInterval  time.Duration
}

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string
	DBMaxIdle   int
	DBMaxOpen   int
	LogFile     string
	CORSOrigins []string

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL    string
	RabbitMQURL string
	DedupeTTL   time.Duration

	Stripe    StripeConfig
	SMTP      SMTPConfig
	CRM       CRMConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

func Load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.LogFile = strings.TrimSpace(os.Getenv("LOG_FILE"))
	cfg.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.RabbitMQURL = strings.TrimSpace(os.Getenv("RABBITMQ_URL"))

	cfg.Stripe = StripeConfig{
		SecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		WebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		Currency:      strings.ToLower(strings.TrimSpace(getEnv("STRIPE_CURRENCY", defaultCurrency))),
	}

	cfg.SMTP = SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     strings.TrimSpace(getEnv("SMTP_FROM", defaultSMTPFrom)),
		FromName: strings.TrimSpace(getEnv("SMTP_FROM_NAME", defaultSMTPFromName)),
	}

	cfg.CRM = CRMConfig{
		APIURL: strings.TrimRight(strings.TrimSpace(os.Getenv("CRM_API_URL")), "/"),
		APIKey: strings.TrimSpace(os.Getenv("CRM_API_KEY")),
	}

	var err error
	if cfg.DBMaxIdle, err = parseIntEnv("DB_MAX_IDLE_CONNS", defaultDBMaxIdle); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpen, err = parseIntEnv("DB_MAX_OPEN_CONNS", defaultDBMaxOpen); err != nil {
		return nil, err
	}
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.DedupeTTL, err = parseDurationEnv("WEBHOOK_DEDUPE_TTL", defaultDedupeTTL); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = parseIntEnv("SMTP_PORT", defaultSMTPPort); err != nil {
		return nil, err
	}
	if cfg.CRM.Timeout, err = parseDurationEnv("CRM_TIMEOUT", defaultCRMTimeout); err != nil {
		return nil, err
	}

	cfg.RateLimit.Enabled = parseBoolEnv("RATE_LIMIT_ENABLED", "true")
	if cfg.RateLimit.Capacity, err = parseIntEnv("RATE_LIMIT_CAPACITY", defaultRateLimitCapacity); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RefillInterval, err = parseDurationEnv("RATE_LIMIT_REFILL_INTERVAL", defaultRateLimitRefill); err != nil {
		return nil, err
	}

	cfg.Jobs.Enabled = parseBoolEnv("JOBS_ENABLED", "true")
	if cfg.Jobs.CompleteInterval, err = parseDurationEnv("JOB_COMPLETE_INTERVAL", defaultCompleteInterval); err != nil {
		return nil, err
	}
	if cfg.Jobs.ReminderInterval, err = parseDurationEnv("JOB_REMINDER_INTERVAL", defaultReminderInterval); err != nil {
		return nil, err
	}
	if cfg.Jobs.BalanceDueDays, err = parseIntEnv("BALANCE_DUE_DAYS", defaultBalanceDueDays); err != nil {
		return nil, err
	}
	if cfg.Jobs.CRMSyncInterval, err = parseDurationEnv("CRM_SYNC_INTERVAL", defaultCRMSyncInterval); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	log.Printf("level=info msg=config loaded env=%s addr=%s smtp=%t crm=%t redis=%t rabbitmq=%t",
		cfg.AppEnv, cfg.HTTPAddr, cfg.SMTP.Enabled(), cfg.CRM.Enabled(), cfg.RedisURL != "", cfg.RabbitMQURL != "")

	return cfg, nil
}

// IsProd reports whether the service runs with production safety checks.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.DedupeTTL <= 0 {
		return fmt.Errorf("WEBHOOK_DEDUPE_TTL must be > 0")
	}
	if cfg.RateLimit.Capacity < 1 {
		return fmt.Errorf("RATE_LIMIT_CAPACITY must be >= 1")
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_REFILL_INTERVAL must be > 0")
	}
	if cfg.Jobs.BalanceDueDays < 1 {
		return fmt.Errorf("BALANCE_DUE_DAYS must be >= 1")
	}
	if cfg.Jobs.CompleteInterval <= 0 || cfg.Jobs.ReminderInterval <= 0 || cfg.Jobs.CRMSyncInterval <= 0 {
		return fmt.Errorf("job intervals must be > 0")
	}
	if len(cfg.Stripe.Currency) != 3 {
		return fmt.Errorf("STRIPE_CURRENCY must be a 3-letter ISO code")
	}
	if cfg.CRM.Enabled() && cfg.CRM.Timeout <= 0 {
		return fmt.Errorf("CRM_TIMEOUT must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.Stripe.SecretKey == "" {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must be set")
		}
		if cfg.Stripe.WebhookSecret == "" {
			return fmt.Errorf("in prod/release STRIPE_WEBHOOK_SECRET must be set")
		}
		if !strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
			return fmt.Errorf("in prod/release DATABASE_URL must point to PostgreSQL")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
