package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	// InsecureDefaultSecret is used when no signing secret is configured.
	InsecureDefaultSecret = "changeme_insecure_default"

	AdminAccessRole = "role"
	AdminAccessOpen = "open"
)

var defaultOrigins = []string{
	"https://assemblymk1.onrender.com",
	"http://localhost:3000",
}

// Config centralises settings loaded from the environment.
type Config struct {
	Port              int
	DBDSN             string
	RedisURL          string
	AMQPURL           string
	EventsQueue       string
	JWTSecret         string
	JWTTTL            time.Duration
	InsecureSecret    bool
	DashboardCacheTTL time.Duration
	AllowOrigins      []string
	AdminAccess       string
	AutoMigrate       bool
	LogLevel          zerolog.Level
	RateLimitPublic   RateLimitConfig
	RateLimitAuth     RateLimitConfig
}

// RateLimitConfig holds simple throttling limits.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads the environment (and .env when present) and applies defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("PORT", "5000"))
	if err != nil || port <= 0 {
		return nil, errors.New("invalid PORT")
	}
	cfg.Port = port

	cfg.DBDSN = firstEnv("DATABASE_URL", "DB_DSN")
	if cfg.DBDSN == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))
	cfg.AMQPURL = firstEnv("AMQP_URL", "RABBITMQ_URL")
	cfg.EventsQueue = strings.TrimSpace(getEnv("EVENTS_QUEUE", "process.events"))
	if cfg.EventsQueue == "" {
		cfg.EventsQueue = "process.events"
	}

	cfg.JWTSecret = firstEnv("JWT_SECRET", "SECRET_KEY")
	if cfg.JWTSecret == "" || cfg.JWTSecret == "changeme" {
		cfg.JWTSecret = InsecureDefaultSecret
		cfg.InsecureSecret = true
	}

	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DashboardCacheTTL, err = parseDurationEnv("DASHBOARD_CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}

	cfg.AllowOrigins = parseList(getEnv("ALLOW_ORIGINS", ""))
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = append([]string(nil), defaultOrigins...)
	}

	cfg.AdminAccess = strings.ToLower(strings.TrimSpace(getEnv("ADMIN_ACCESS", AdminAccessRole)))
	if cfg.AdminAccess != AdminAccessRole && cfg.AdminAccess != AdminAccessOpen {
		return nil, errors.New("ADMIN_ACCESS must be role or open")
	}

	if cfg.AutoMigrate, err = parseBoolEnv("AUTO_MIGRATE", true); err != nil {
		return nil, err
	}

	cfg.LogLevel, err = zerolog.ParseLevel(strings.ToLower(getEnv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, errors.New("invalid LOG_LEVEL")
	}

	if cfg.RateLimitPublic, err = parseRateLimit("RATE_LIMIT_PUBLIC", 10, 20); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = parseRateLimit("RATE_LIMIT_AUTH", 10, 40); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(getEnv(key, "")); val != "" {
			return val
		}
	}
	return ""
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " is invalid")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " is invalid")
	}
	return b, nil
}

func parseRateLimit(prefix string, defRPS float64, defBurst int) (RateLimitConfig, error) {
	out := RateLimitConfig{RequestsPerSecond: defRPS, Burst: defBurst}
	if val := strings.TrimSpace(getEnv(prefix+"_RPS", "")); val != "" {
		rps, err := strconv.ParseFloat(val, 64)
		if err != nil || rps <= 0 {
			return out, errors.New(prefix + "_RPS is invalid")
		}
		out.RequestsPerSecond = rps
	}
	if val := strings.TrimSpace(getEnv(prefix+"_BURST", "")); val != "" {
		burst, err := strconv.Atoi(val)
		if err != nil || burst <= 0 {
			return out, errors.New(prefix + "_BURST is invalid")
		}
		out.Burst = burst
	}
	return out, nil
}
