package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string
	DBURL             string
	JWTSecret         string
	JWTTTLHours       int
	LogLevel          string
	LogFormat         string
	CORSOrigins       []string
	OTelEndpoint      string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	MaxPageSize       int
	AdminEmail        string
	AdminPassword     string
}

// LoadDotenv loads a .env file from the working directory when one exists.
func LoadDotenv() {
	_ = godotenv.Load()
}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_MAX_CONN_IDLE_SECS", 300)
	v.SetDefault("DB_MAX_CONN_LIFETIME_SECS", 3600)
	v.SetDefault("DB_CONN_TIMEOUT_SECS", 10)
	v.SetDefault("DB_STATEMENT_CACHE_CAPACITY", 256)
	v.SetDefault("LISTING_MAX_PAGE_SIZE", 0)
	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_PASSWORD", "Admin@123")
}

// Load reads configuration from environment variables, applying defaults and validation.
func Load() (Config, error) {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Port:              v.GetString("PORT"),
		DBURL:             v.GetString("DB_URL"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTTTLHours:       v.GetInt("JWT_TTL_HOURS"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:         strings.ToLower(v.GetString("LOG_FORMAT")),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		OTelEndpoint:      v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ReadTimeoutSecs:   v.GetInt("SERVER_READ_TIMEOUT"),
		WriteTimeoutSecs:  v.GetInt("SERVER_WRITE_TIMEOUT"),
		IdleTimeoutSecs:   v.GetInt("SERVER_IDLE_TIMEOUT"),
		DBMaxConns:        v.GetInt("DB_MAX_CONNS"),
		DBMinConns:        v.GetInt("DB_MIN_CONNS"),
		DBMaxIdleSecs:     v.GetInt("DB_MAX_CONN_IDLE_SECS"),
		DBMaxLifeSecs:     v.GetInt("DB_MAX_CONN_LIFETIME_SECS"),
		DBConnTimeoutSecs: v.GetInt("DB_CONN_TIMEOUT_SECS"),
		DBStatementCache:  v.GetInt("DB_STATEMENT_CACHE_CAPACITY"),
		MaxPageSize:       v.GetInt("LISTING_MAX_PAGE_SIZE"),
		AdminEmail:        v.GetString("ADMIN_EMAIL"),
		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
	}

	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWTTTLHours < 0 {
		return Config{}, fmt.Errorf("JWT_TTL_HOURS must be non-negative")
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Config{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Config{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if cfg.MaxPageSize < 0 {
		return Config{}, fmt.Errorf("LISTING_MAX_PAGE_SIZE must be non-negative")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimRight(strings.TrimSpace(part), "/"); item != "" {
			out = append(out, item)
		}
	}
	return out
}
