package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ledgerdesk/internal/pkg/jwt"
)

// Session store backends.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type AppConfig struct {
	// Server
	HTTPAddr        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	BaseURL         string

	// Storage
	DatabaseURL  string
	DBMaxConns   int32
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	SessionStore string

	// JWT
	JWT jwt.Config

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFromName string
	SMTPSecure   bool

	// Optional first manager created at startup
	SeedManagerEmail    string
	SeedManagerPassword string
	SeedManagerName     string
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	cfg := AppConfig{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     getEnvSlice("CORS_ORIGINS", []string{"*"}),
		BaseURL:         getEnv("BASE_URL", "http://localhost:3000"),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DBMaxConns:   int32(getEnvInt("DB_MAX_CONNS", 10)),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisPass:    getEnv("REDIS_PASS", ""),
		RedisDB:      getEnvInt("REDIS_DB", 0),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", "")),

		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   getEnv("JWT_ISSUER", "ledgerdesk"),
			Audience: getEnv("JWT_AUDIENCE", "ledgerdesk-clients"),
			TTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
			KID:      getEnv("JWT_KID", "ledgerdesk-key"),
		},

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "LedgerDesk"),
		SMTPSecure:   strings.ToLower(getEnv("SMTP_SECURE", "true")) == "true",

		SeedManagerEmail:    getEnv("SEED_MANAGER_EMAIL", ""),
		SeedManagerPassword: getEnv("SEED_MANAGER_PASSWORD", ""),
		SeedManagerName:     getEnv("SEED_MANAGER_NAME", "Manager"),
	}

	if cfg.SessionStore == "" {
		cfg.SessionStore = StoreMemory
		if cfg.RedisAddr != "" {
			cfg.SessionStore = StoreRedis
		}
	}
	return cfg
}

// UsesRedis reports whether sessions and rate limits live in Redis.
func (c AppConfig) UsesRedis() bool {
	return c.SessionStore == StoreRedis
}

// HasJWTKeys reports whether key files were configured. Without them the
// server signs with a key generated at startup.
func (c AppConfig) HasJWTKeys() bool {
	return c.JWT.PrivPath != "" && c.JWT.PubPath != ""
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
