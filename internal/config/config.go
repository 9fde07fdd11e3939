package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const envPrefix = "TASKBOARD_"

// Config holds the server configuration loaded from environment variables.
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Server    ServerConfig
	Slack     SlackConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings. URL, when set, wins
// over the individual fields.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

type JWTConfig struct {
	Secret     string //nolint:gosec // G117: JWT signing secret config
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	// StaticDir holds a built browser front-end served on unmatched routes.
	// Empty disables it.
	StaticDir string
}

// SlackConfig enables the task activity feed when both fields are set.
type SlackConfig struct {
	BotToken  string
	ChannelID string
}

// Enabled reports whether task activity should be posted to Slack.
func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// RateLimitConfig bounds request rates: per organization on authenticated
// routes, per client IP on public ones.
type RateLimitConfig struct {
	RequestsPerSecond       float64
	Burst                   int
	PublicRequestsPerSecond float64
	PublicBurst             int
}

type LogConfig struct {
	Level  zerolog.Level
	Format string // "json" or "text"
}

// parser reads typed variables and keeps the first error.
type parser struct {
	err error
}

func (p *parser) int(key string, fallback int) int {
	v, err := getEnvInt(envPrefix+key, fallback)
	p.keep(err)
	return v
}

func (p *parser) float(key string, fallback float64) float64 {
	v, err := getEnvFloat(envPrefix+key, fallback)
	p.keep(err)
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v, err := getEnvDuration(envPrefix+key, fallback)
	p.keep(err)
	return v
}

func (p *parser) level(key string, fallback zerolog.Level) zerolog.Level {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		p.keep(fmt.Errorf("parsing %s%s=%q as log level: %w", envPrefix, key, v, err))
		return fallback
	}
	return lvl
}

func (p *parser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

func str(key, fallback string) string {
	return getEnv(envPrefix+key, fallback)
}

// Load reads configuration from TASKBOARD_* environment variables.
// Defaults suit local development; the JWT secret has none.
func Load() (*Config, error) {
	var p parser

	cfg := &Config{
		Database: DatabaseConfig{
			URL:      str("DATABASE_URL", ""),
			Host:     str("DB_HOST", "localhost"),
			Port:     p.int("DB_PORT", 5432),
			User:     str("DB_USER", "taskboard"),
			Password: str("DB_PASSWORD", ""),
			DBName:   str("DB_NAME", "taskboard"),
			SSLMode:  str("DB_SSLMODE", "disable"),
			MaxConns: p.int("DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     str("REDIS_ADDR", "localhost:6379"),
			Password: str("REDIS_PASSWORD", ""),
			DB:       p.int("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     str("JWT_SECRET", ""),
			AccessTTL:  p.duration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL: p.duration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Server: ServerConfig{
			Addr:            str("SERVER_ADDR", ":8080"),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     getEnvList(envPrefix+"CORS_ORIGINS", []string{"http://localhost:5173"}),
			StaticDir:       str("STATIC_DIR", ""),
		},
		Slack: SlackConfig{
			BotToken:  str("SLACK_BOT_TOKEN", ""),
			ChannelID: str("SLACK_CHANNEL_ID", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond:       p.float("RATE_LIMIT_RPS", 100),
			Burst:                   p.int("RATE_LIMIT_BURST", 200),
			PublicRequestsPerSecond: p.float("RATE_LIMIT_PUBLIC_RPS", 5),
			PublicBurst:             p.int("RATE_LIMIT_PUBLIC_BURST", 20),
		},
		Log: LogConfig{
			Level:  p.level("LOG_LEVEL", zerolog.InfoLevel),
			Format: strings.ToLower(str("LOG_FORMAT", "json")),
		},
	}
	if p.err != nil {
		return nil, fmt.Errorf("config.Load: %w", p.err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return errors.New("TASKBOARD_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("TASKBOARD_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.URL == "" && c.Database.SSLMode == "disable" {
		log.Warn().Msg("TASKBOARD_DB_SSLMODE=disable is insecure outside local development")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TASKBOARD_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TASKBOARD_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("TASKBOARD_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("TASKBOARD_JWT_ACCESS_TTL must be positive, got %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return fmt.Errorf("TASKBOARD_JWT_REFRESH_TTL must be >= the access TTL, got %s", c.JWT.RefreshTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("TASKBOARD_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("TASKBOARD_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("TASKBOARD_SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.PublicRequestsPerSecond <= 0 {
		return errors.New("TASKBOARD_RATE_LIMIT_RPS and TASKBOARD_RATE_LIMIT_PUBLIC_RPS must be positive")
	}
	if c.RateLimit.Burst < 1 || c.RateLimit.PublicBurst < 1 {
		return errors.New("TASKBOARD_RATE_LIMIT_BURST and TASKBOARD_RATE_LIMIT_PUBLIC_BURST must be >= 1")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TASKBOARD_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if (c.Slack.BotToken == "") != (c.Slack.ChannelID == "") {
		log.Warn().Msg("Slack activity feed needs both TASKBOARD_SLACK_BOT_TOKEN and TASKBOARD_SLACK_CHANNEL_ID; disabled")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + strconv.Itoa(c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
