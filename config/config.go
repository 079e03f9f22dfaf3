package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Payments PaymentsConfig
	Mail     MailConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	BodyLimitBytes  int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type DatabaseConfig struct {
	Driver string // postgres | sqlite
	DSN    string
}

type AuthConfig struct {
	SessionSecret string
	CookieName    string
	SessionTTL    time.Duration
}

type PaymentsConfig struct {
	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	BaseURL             string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type StorageConfig struct {
	S3Bucket  string
	S3Region  string
	LocalDir  string
	PublicURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// IsDevelopment reports whether the server runs in local development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() *Config {
	_ = godotenv.Load()

	bodyLimit := envInt("BODY_LIMIT_BYTES", 0)
	if bodyLimit <= 0 {
		bodyLimit = envInt("BODY_LIMIT_MB", 8) * 1024 * 1024
	}

	var brokers []string
	if raw := strings.TrimSpace(getEnv("KAFKA_BROKERS", "")); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	secret := getEnv("SESSION_SECRET", "")
	if secret == "" {
		secret = getEnv("JWT_SECRET", "")
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("APP_ENV", "development"),
			BodyLimitBytes:  bodyLimit,
			AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
			RateLimitMax:    envInt("RATE_LIMIT_MAX", 120),
			RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			DSN:    getEnv("DATABASE_URL", "host=localhost user=fencing password=fencing dbname=fencing port=5432 sslmode=disable"),
		},
		Auth: AuthConfig{
			SessionSecret: secret,
			CookieName:    getEnv("SESSION_COOKIE", "session"),
			SessionTTL:    24 * time.Hour,
		},
		Payments: PaymentsConfig{
			StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:            strings.ToLower(getEnv("PAYMENT_CURRENCY", "zar")),
			BaseURL:             strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "quotes@localhost"),
		},
		Storage: StorageConfig{
			S3Bucket:  getEnv("S3_BUCKET", ""),
			S3Region:  getEnv("S3_REGION", "af-south-1"),
			LocalDir:  getEnv("UPLOAD_DIR", "./uploads"),
			PublicURL: strings.TrimRight(getEnv("UPLOAD_PUBLIC_URL", "/uploads"), "/"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    brokers,
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "audit-events"),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envInt reads an int env var with a default fallback.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
