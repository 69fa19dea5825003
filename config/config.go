package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver string
	MongoURL string
	MongoDB  string
	RedisURL string

	JWTSecret          string
	JWTExpires         time.Duration
	ActivationTokenTTL time.Duration
	CookieExpireDays   int
	CORSOrigins        []string
	FrontendURL        string

	StripeSecretKey      string
	StripePublishableKey string
	StripeAPIURL         string
	PaymentCurrency      string

	S3Bucket    string
	S3PublicURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

// devJWTSecret signs tokens outside release mode when JWT_SECRET_KEY is unset.
const devJWTSecret = "SECRET"

var ErrMissingJWTSecret = errors.New("JWT_SECRET_KEY must be set when GIN_MODE is release")

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	mongoURL := os.Getenv("MONGO_URL")
	if mongoURL == "" {
		mongoURL = os.Getenv("MONGO_PUBLIC_URL")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver: getEnv("DB_DRIVER", "mongo"),
		MongoURL: orDefault(mongoURL, "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "bookstore"),
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret:          os.Getenv("JWT_SECRET_KEY"),
		JWTExpires:         getDuration("JWT_EXPIRES", 5*24*time.Hour),
		ActivationTokenTTL: getDuration("ACTIVATION_TOKEN_TTL", 5*time.Minute),
		CookieExpireDays:   getInt("COOKIE_EXPIRE_DAYS", 5),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeAPIURL:         getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		PaymentCurrency:      getEnv("PAYMENT_CURRENCY", "usd"),

		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getInt("SMTP_PORT", 465),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     orDefault(os.Getenv("MAIL_FROM"), os.Getenv("SMTP_USER")),
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, ErrMissingJWTSecret
		}
		cfg.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	return orDefault(os.Getenv(key), fallback)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// getDuration accepts Go durations ("15m") and day counts in the "5d" form.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
