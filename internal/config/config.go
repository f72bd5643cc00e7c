package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8000"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	AdminUsername string `env:"ADMIN_USERNAME" default:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	JWTSecret     string `env:"JWT_SECRET"`

	ShopifyShopDomain       string `env:"SHOPIFY_SHOP_DOMAIN" default:"fengculture.com"`
	ShopifyAccessToken      string `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyWebhookSecret    string `env:"SHOPIFY_WEBHOOK_SECRET"`
	ShopifyProductVariantID string `env:"SHOPIFY_PRODUCT_VARIANT_ID"`
	ShopifyAPIVersion       string `env:"SHOPIFY_API_VERSION" default:"2024-01"`

	AstrologyAPIKey string `env:"ASTROLOGY_API_KEY"`
	AstrologyAPIURL string `env:"ASTROLOGY_API_URL" default:"https://api.yuanfenju.com/index.php/v1"`

	TranslationAPIKey string `env:"TRANSLATION_API_KEY"`
	TranslationAPIURL string `env:"TRANSLATION_API_URL" default:"https://api.lkeap.cloud.tencent.com/v1/chat/completions"`
	TranslationModel  string `env:"TRANSLATION_MODEL" default:"deepseek-v3-0324"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" default:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	EmailFrom    string `env:"EMAIL_FROM" default:"noreply@mail.universalfuture.online"`

	VerificationCodeTTL  time.Duration `env:"VERIFICATION_CODE_TTL" default:"5m"`
	VerifiedStatusTTL    time.Duration `env:"VERIFIED_STATUS_TTL" default:"10m"`
	VerificationCooldown time.Duration `env:"VERIFICATION_SEND_COOLDOWN" default:"60s"`
	VerificationDailyCap int           `env:"VERIFICATION_DAILY_LIMIT" default:"10"`
	ResultCacheTTL       time.Duration `env:"RESULT_CACHE_TTL" default:"1h"`
	CheckoutFallbackURL  string        `env:"CHECKOUT_FALLBACK_URL" default:"https://fengculture.com/checkout"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":   cfg.DatabaseURL,
		"REDIS_URL":      cfg.RedisURL,
		"JWT_SECRET":     cfg.JWTSecret,
		"ADMIN_PASSWORD": cfg.AdminPassword,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if len(cfg.AdminPassword) < 8 {
		return errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}

	// Webhook verification cannot be disabled in production.
	if cfg.AppEnv == "production" && cfg.ShopifyWebhookSecret == "" {
		return errors.New("SHOPIFY_WEBHOOK_SECRET is required in production")
	}
	if cfg.ShopifyWebhookSecret != "" {
		if len(cfg.ShopifyWebhookSecret) < 10 || len(cfg.ShopifyWebhookSecret) > 100 {
			return errors.New("SHOPIFY_WEBHOOK_SECRET must be between 10 and 100 characters")
		}
	}

	if cfg.VerificationCodeTTL <= 0 {
		return errors.New("VERIFICATION_CODE_TTL must be positive")
	}
	if cfg.VerifiedStatusTTL < cfg.VerificationCodeTTL {
		return errors.New("VERIFIED_STATUS_TTL must not be shorter than VERIFICATION_CODE_TTL")
	}

	return nil
}
