// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	AdminPassword string
	Server        ServerConfig
	Database      DatabaseConfig
	JWT           JWTConfig
	Marketplace   MarketplaceConfig
	Payment       PaymentConfig
	Logging       LoggingConfig
	I18n          I18nConfig
	CORS          CORSConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

// MarketplaceConfig holds the pricing and swap pairing rules.
type MarketplaceConfig struct {
	PlatformFeeRate          float64
	ShippingFee              float64
	SwapShippingFee          float64
	SwapSiblingWindowMinutes int
	SwapFallbackMatching     bool
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig sizes the per-client token buckets. Auth endpoints get
// their own, stricter bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	AuthPerMinute     int
}

func Load() (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	config := &Config{
		Environment:   envString("ENVIRONMENT", "development"),
		AdminPassword: envString("ADMIN_PASSWORD", ""),
		Server: ServerConfig{
			Port:         envString("SERVER_PORT", "8080"),
			Host:         envString("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  envInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: envInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  envInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         envString("DB_HOST", "localhost"),
			Port:         envString("DB_PORT", "5432"),
			User:         envString("DB_USER", "postgres"),
			Password:     envString("DB_PASSWORD", ""),
			Database:     envString("DB_NAME", "swapmart"),
			SSLMode:      envString("DB_SSL_MODE", "disable"),
			MaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  envInt("DB_MAX_LIFETIME", 300),
			LogLevel:     envString("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			SecretKey:       envString("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  envInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: envInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Marketplace: MarketplaceConfig{
			PlatformFeeRate:          envFloat("PLATFORM_FEE_RATE", 0.15),
			ShippingFee:              envFloat("SHIPPING_FEE", 50),
			SwapShippingFee:          envFloat("SWAP_SHIPPING_FEE", 50),
			SwapSiblingWindowMinutes: envInt("SWAP_SIBLING_WINDOW_MINUTES", 10),
			SwapFallbackMatching:     envBool("SWAP_FALLBACK_MATCHING", true),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      envString("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: envString("STRIPE_PUBLISHABLE_KEY", ""),
			Currency:             envString("PAYMENT_CURRENCY", "usd"),
		},
		Logging: LoggingConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		I18n: I18nConfig{
			DefaultLocale: envString("DEFAULT_LOCALE", "en"),
			LocalesPath:   envString("LOCALES_PATH", "./internal/i18n/locales"),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloat("RATE_LIMIT_RPS", 10),
			Burst:             envInt("RATE_LIMIT_BURST", 20),
			AuthPerMinute:     envInt("AUTH_RATE_LIMIT_PER_MINUTE", 5),
		},
	}

	return config, config.Validate()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	production := c.Environment == "production"
	check(!production || c.JWT.SecretKey != "your-secret-key-change-in-production", "JWT secret key must be changed in production")
	check(!production || c.Database.Password != "", "database password is required in production")

	m := c.Marketplace
	check(m.PlatformFeeRate >= 0 && m.PlatformFeeRate < 1, "platform fee rate must be in [0, 1), got %v", m.PlatformFeeRate)
	check(m.ShippingFee >= 0 && m.SwapShippingFee >= 0, "shipping fees cannot be negative")
	check(m.SwapSiblingWindowMinutes > 0, "swap sibling window must be positive")

	rl := c.RateLimit
	check(rl.RequestsPerSecond > 0 && rl.Burst > 0 && rl.AuthPerMinute > 0, "rate limits must be positive")

	return errors.Join(errs...)
}

// lookup returns the parsed value of key, or def when it is unset or does
// not parse.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func envString(key, def string) string {
	return lookup(key, def, func(s string) (string, error) { return s, nil })
}

func envInt(key string, def int) int {
	return lookup(key, def, strconv.Atoi)
}

func envFloat(key string, def float64) float64 {
	return lookup(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func envBool(key string, def bool) bool {
	return lookup(key, def, func(s string) (bool, error) { return strconv.ParseBool(strings.ToLower(s)) })
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string, def []string) []string {
	return lookup(key, def, func(s string) ([]string, error) {
		var items []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	})
}
