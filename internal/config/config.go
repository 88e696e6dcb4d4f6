package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig describes how to reach PostgreSQL. URL, when set, wins over
// the individual fields.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Schema   string
	URL      string
}

// DSN builds the connection string handed to the GORM postgres driver.
func (db DatabaseConfig) DSN() string {
	if db.URL != "" {
		return db.URL
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		db.Host, db.User, db.Password, db.Name, db.Port)
	if db.Schema != "" {
		dsn += " search_path=" + db.Schema
	}
	return dsn
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	Port           int
	LogLevel       string
	JWTSecret      string
	SessionTTL     time.Duration
	CookieSecure   bool
	TrustProxy     bool
	AvatarDir      string
	AllowedOrigins []string

	AuthRateLimit  int
	AuthRateWindow time.Duration

	DB    DatabaseConfig
	Redis RedisConfig
}

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionTTL:     getDuration("SESSION_TTL", 24*time.Hour),
		CookieSecure:   getEnv("COOKIE_SECURE", "false") == "true",
		TrustProxy:     getEnv("TRUST_PROXY", "false") == "true",
		AvatarDir:      getEnv("AVATAR_DIR", "./uploads/avatars"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "https://*,http://*")),
		AuthRateLimit:  getInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow: time.Duration(getInt("AUTH_RATE_WINDOW_SECONDS", 60)) * time.Second,
		DB: DatabaseConfig{
			Host:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
			Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
			User:     getEnv("BLUEPRINT_DB_USERNAME", "postgres"),
			Password: getEnv("BLUEPRINT_DB_PASSWORD", "postgres"),
			Name:     getEnv("BLUEPRINT_DB_DATABASE", "tasks"),
			Schema:   os.Getenv("BLUEPRINT_DB_SCHEMA"),
			URL:      os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		fmt.Printf("Warning: invalid %s value '%s', using default %d\n", key, v, defaultValue)
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		fmt.Printf("Warning: invalid %s value '%s', using default %s\n", key, v, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
