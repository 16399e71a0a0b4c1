package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultGoogleRedirectURI is the frontend page Google sends the access token back to.
const DefaultGoogleRedirectURI = "http://127.0.0.1:5500/index.html"

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session tokens
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	BcryptCost       int

	// Google login
	GoogleClientID    string
	GoogleRedirectURI string
	GoogleUserInfoURL string
	GoogleTimeout     time.Duration
	GoogleMaxRetries  int

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	NATSURL       string
	SentryDSN     string
	AppEnv        string

	// Logging
	LogRetention time.Duration

	// Server
	Port           string
	CORSOrigins    string
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "accounts"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "5m"), 5*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "24h"), 24*time.Hour),
		BcryptCost:       parseInt(getEnv("BCRYPT_COST", "10"), 10),

		GoogleClientID:    getEnv("SOCIAL_AUTH_GOOGLE_CLIENT_ID", ""),
		GoogleRedirectURI: getEnv("GOOGLE_REDIRECT_URI", DefaultGoogleRedirectURI),
		GoogleUserInfoURL: getEnv("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v2/userinfo"),
		GoogleTimeout:     parseDuration(getEnv("GOOGLE_TIMEOUT", "5s"), 5*time.Second),
		GoogleMaxRetries:  parseInt(getEnv("GOOGLE_MAX_RETRIES", "2"), 2),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		NATSURL:       getEnv("NATS_URL", ""),
		SentryDSN:     getEnv("SENTRY_DSN", ""),
		AppEnv:        getEnv("APP_ENV", "development"),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		Port:           getEnv("PORT", "8080"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "http://127.0.0.1:5500"),
		AuthRateLimit:  parseInt(getEnv("AUTH_RATE_LIMIT", "10"), 10),
		AuthRateWindow: parseDuration(getEnv("AUTH_RATE_WINDOW", "1m"), time.Minute),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
