package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	RedisAddr string
	CacheTTL  time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookInsecure     bool
	CheckoutCurrency    string

	FrontendURL   string
	PublicBaseURL string

	UploadDir        string
	MaxUploadBytes   int64
	UploadDailyQuota int

	ClerkSecretKey string
	ClerkAPIURL    string
	ClerkJWTKey    string

	RabbitMQURL      string
	RabbitMQExchange string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://127.0.0.1:27017")
	v.SetDefault("MONGO_DB", "Eventdb")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("WEBHOOK_INSECURE", false)
	v.SetDefault("CHECKOUT_CURRENCY", "usd")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("UPLOAD_DAILY_QUOTA", 200)
	v.SetDefault("CLERK_SECRET_KEY", "")
	v.SetDefault("CLERK_API_URL", "https://api.clerk.com/v1")
	v.SetDefault("CLERK_JWT_KEY", "")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "events")
}

// Load reads envFiles (missing ones are skipped) and then the process
// environment, which wins over both files and defaults.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	ttl, err := time.ParseDuration(v.GetString("CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Port:                v.GetString("PORT"),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDB:             v.GetString("MONGO_DB"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		CacheTTL:            ttl,
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		WebhookInsecure:     v.GetBool("WEBHOOK_INSECURE"),
		CheckoutCurrency:    strings.ToLower(v.GetString("CHECKOUT_CURRENCY")),
		FrontendURL:         v.GetString("FRONTEND_URL"),
		PublicBaseURL:       v.GetString("PUBLIC_BASE_URL"),
		UploadDir:           v.GetString("UPLOAD_DIR"),
		MaxUploadBytes:      v.GetInt64("MAX_UPLOAD_BYTES"),
		UploadDailyQuota:    v.GetInt("UPLOAD_DAILY_QUOTA"),
		ClerkSecretKey:      v.GetString("CLERK_SECRET_KEY"),
		ClerkAPIURL:         v.GetString("CLERK_API_URL"),
		ClerkJWTKey:         strings.ReplaceAll(v.GetString("CLERK_JWT_KEY"), `\n`, "\n"),
		RabbitMQURL:         v.GetString("RABBITMQ_URL"),
		RabbitMQExchange:    v.GetString("RABBITMQ_EXCHANGE"),
	}
	return cfg, cfg.Validate()
}

// Validate checks values the server cannot run with. A webhook with neither
// a secret nor insecure mode is allowed to boot; deliveries then fail.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.MongoURI == "" || c.MongoDB == "" {
		return errors.New("MONGO_URI and MONGO_DB are required")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.StripeWebhookSecret == "" && !c.WebhookInsecure {
		log.Println("config: STRIPE_WEBHOOK_SECRET is not set and WEBHOOK_INSECURE is off; webhook deliveries will be refused")
	}
	return nil
}
